// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage implements each of them as a store that
// shares one connection pool (see sqlite.DB.Users, sqlite.DB.Projects, ...).
package repository

import (
	"context"
	"time"

	"github.com/sakif/story-studio/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// ProjectRepository lookups that take a userID match on (id, user_id), so a
// project owned by someone else is reported exactly like a missing one.
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetOwned(ctx context.Context, userID, id string) (*model.Project, error)
	// ListOwned and Search attach each project's most recently updated
	// session as a one-element Sessions slice.
	ListOwned(ctx context.Context, userID string) ([]model.Project, error)
	Search(ctx context.Context, userID string, opts model.ProjectSearch) ([]model.Project, error)
	Count(ctx context.Context, userID string, opts model.ProjectSearch) (int, error)
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id string) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// GetWithProject returns the session with Project populated so callers
	// can check ownership on the parent.
	GetWithProject(ctx context.Context, id string) (*model.Session, error)
	// ListByProject returns sessions newest-updated first, each with its
	// ordered message log attached.
	ListByProject(ctx context.Context, projectID string) ([]model.Session, error)
	// ListSummaries returns the project's sessions newest-updated first
	// without their messages.
	ListSummaries(ctx context.Context, projectID string) ([]model.Session, error)
	Update(ctx context.Context, session *model.Session) error
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Message, error)
}

type ConversationRepository interface {
	// Upsert creates the snapshot for conv.ProjectID or replaces its messages
	// in one statement.
	Upsert(ctx context.Context, conv *model.Conversation) error
	GetByProject(ctx context.Context, userID, projectID string) (*model.Conversation, error)
}
