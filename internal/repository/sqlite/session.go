package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

// SessionStore persists sessions.
type SessionStore struct {
	conn *sql.DB
}

const sessionColumns = `id, project_id, title, is_active, created_at, updated_at`

func (s *SessionStore) Create(ctx context.Context, sess *model.Session) error {
	ts := now()
	sess.ID = xid.New().String()
	sess.CreatedAt = ts
	sess.UpdatedAt = ts

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ProjectID, sess.Title, sess.IsActive, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session: %w", err)
	}
	return nil
}

// GetWithProject loads the session joined with its parent project. The
// caller checks Project.UserID; this method does not know who is asking.
func (s *SessionStore) GetWithProject(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	var p model.Project
	var status string

	err := s.conn.QueryRowContext(ctx,
		`SELECT s.id, s.project_id, s.title, s.is_active, s.created_at, s.updated_at,
		        p.id, p.title, p.genre, p.description, p.status, p.user_id, p.created_at, p.updated_at
		 FROM sessions s
		 JOIN projects p ON p.id = s.project_id
		 WHERE s.id = ?`,
		id,
	).Scan(
		&sess.ID, &sess.ProjectID, &sess.Title, &sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt,
		&p.ID, &p.Title, &p.Genre, &p.Description, &status, &p.UserID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Session")
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	p.Status = model.ProjectStatus(status)
	sess.Project = &p
	return &sess, nil
}

func (s *SessionStore) ListSummaries(ctx context.Context, projectID string) ([]model.Session, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE project_id = ?
		 ORDER BY updated_at DESC, rowid DESC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing sessions: %w", err)
	}
	return collectSessions(rows)
}

// ListByProject returns the project's sessions newest updated first, each
// with its full message log in (created_at, rowid) order. Two queries: one
// for the sessions, one for all of their messages.
func (s *SessionStore) ListByProject(ctx context.Context, projectID string) ([]model.Session, error) {
	sessions, err := s.ListSummaries(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+messageColumnsFor("m")+`
		 FROM messages m
		 JOIN sessions s ON s.id = m.session_id
		 WHERE s.project_id = ?
		 ORDER BY m.created_at ASC, m.rowid ASC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing session messages: %w", err)
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(sessions))
	for i := range sessions {
		index[sessions[i].ID] = i
		sessions[i].Messages = []model.Message{}
	}
	for _, m := range messages {
		if i, ok := index[m.SessionID]; ok {
			sessions[i].Messages = append(sessions[i].Messages, m)
		}
	}
	return sessions, nil
}

// Update writes title and is_active and bumps updated_at.
func (s *SessionStore) Update(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = now()

	res, err := s.conn.ExecContext(ctx,
		`UPDATE sessions SET title = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		sess.Title, sess.IsActive, sess.UpdatedAt, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating session %s: %w", sess.ID, err)
	}
	return expectOneRow(res, "Session")
}

// Touch sets updated_at to at. Called after a message append so the
// session's last activity follows message traffic.
func (s *SessionStore) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: touching session %s: %w", id, err)
	}
	return expectOneRow(res, "Session")
}

// Delete removes the session and, through ON DELETE CASCADE, its messages.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return expectOneRow(res, "Session")
}

func scanSession(row scanner) (*model.Session, error) {
	var sess model.Session
	if err := row.Scan(
		&sess.ID, &sess.ProjectID, &sess.Title, &sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sess, nil
}

func collectSessions(rows *sql.Rows) ([]model.Session, error) {
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning session row: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating sessions: %w", err)
	}
	return sessions, nil
}
