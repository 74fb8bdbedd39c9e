package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

var _ repository.ConversationRepository = (*ConversationStore)(nil)

// ConversationStore persists one transcript snapshot per project. The
// messages column holds the client's JSON array byte for byte.
type ConversationStore struct {
	conn *sql.DB
}

// Upsert stores conv as the project's snapshot in a single statement: insert
// when absent, otherwise replace messages and updated_at. On return conv
// reflects the stored row (its id, owner and created_at survive an update).
func (s *ConversationStore) Upsert(ctx context.Context, conv *model.Conversation) error {
	if len(conv.Messages) == 0 {
		conv.Messages = model.EmptyTranscript()
	}
	if !model.IsArrayTranscript(conv.Messages) {
		return fmt.Errorf("sqlite: conversation messages for project %s are not a JSON array", conv.ProjectID)
	}

	ts := now()
	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO conversations (id, project_id, user_id, messages, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		     messages   = excluded.messages,
		     updated_at = excluded.updated_at
		 RETURNING id, user_id, created_at, updated_at`,
		xid.New().String(), conv.ProjectID, conv.UserID, string(conv.Messages), ts, ts,
	).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upserting conversation for project %s: %w", conv.ProjectID, err)
	}
	return nil
}

// GetByProject returns apperror.ErrNotFound when the project has no snapshot
// yet; the service turns that into an empty transcript.
func (s *ConversationStore) GetByProject(ctx context.Context, userID, projectID string) (*model.Conversation, error) {
	var conv model.Conversation
	var blob string

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, project_id, user_id, messages, created_at, updated_at
		 FROM conversations
		 WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	).Scan(&conv.ID, &conv.ProjectID, &conv.UserID, &blob, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Conversation")
		}
		return nil, fmt.Errorf("sqlite: getting conversation for project %s: %w", projectID, err)
	}

	conv.Messages = model.Transcript(blob)
	if !model.IsArrayTranscript(conv.Messages) {
		return nil, fmt.Errorf("sqlite: stored messages for project %s are not a JSON array", projectID)
	}
	return &conv, nil
}
