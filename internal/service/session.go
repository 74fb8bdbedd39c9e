package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

// SessionService manages the chat sessions of a project.
type SessionService struct {
	projects repository.ProjectRepository
	sessions repository.SessionRepository
	messages repository.MessageRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessionService(
	projects repository.ProjectRepository,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		projects: projects,
		sessions: sessions,
		messages: messages,
		logger:   logger,
		now:      time.Now,
	}
}

// ListForProject returns the project's sessions, each with its messages.
func (s *SessionService) ListForProject(ctx context.Context, userID, projectID string) ([]model.Session, error) {
	if _, err := s.projects.GetOwned(ctx, userID, projectID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByProject(ctx, projectID)
	if err != nil {
		logStoreError(s.logger, "failed to list sessions", err, slog.String("projectID", projectID))
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Create adds a session to the project. An empty title becomes
// "Session M/D/YYYY" for today's local date.
func (s *SessionService) Create(ctx context.Context, userID, projectID, title string) (*model.Session, error) {
	if _, err := s.projects.GetOwned(ctx, userID, projectID); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle(s.now())
	}

	sess := &model.Session{ProjectID: projectID, Title: title, IsActive: true}
	if err := s.sessions.Create(ctx, sess); err != nil {
		logStoreError(s.logger, "failed to create session", err, slog.String("projectID", projectID))
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("session created", slog.String("id", sess.ID), slog.String("projectID", projectID))
	return sess, nil
}

// Get returns the session with its project and ordered messages.
func (s *SessionService) Get(ctx context.Context, userID, id string) (*model.Session, error) {
	sess, err := ownedSession(ctx, s.sessions, userID, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("listing messages of session %s: %w", sess.ID, err)
	}
	sess.Messages = msgs
	return sess, nil
}

// Update applies the non-nil fields of patch.
func (s *SessionService) Update(ctx context.Context, userID, id string, patch model.SessionPatch) (*model.Session, error) {
	sess, err := ownedSession(ctx, s.sessions, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		sess.Title = *patch.Title
	}
	if patch.IsActive != nil {
		sess.IsActive = *patch.IsActive
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		logStoreError(s.logger, "failed to update session", err, slog.String("id", id))
		return nil, fmt.Errorf("updating session: %w", err)
	}

	// The response carries the plain session, like a create.
	sess.Project = nil
	return sess, nil
}

// Delete removes the session and its messages.
func (s *SessionService) Delete(ctx context.Context, userID, id string) error {
	if _, err := ownedSession(ctx, s.sessions, userID, id); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		logStoreError(s.logger, "failed to delete session", err, slog.String("id", id))
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func defaultSessionTitle(t time.Time) string {
	return fmt.Sprintf("Session %d/%d/%d", int(t.Month()), t.Day(), t.Year())
}
