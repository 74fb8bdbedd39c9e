package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

var _ repository.MessageRepository = (*MessageStore)(nil)

// MessageStore persists the append-only message log. There is no update or
// delete; messages only disappear with their session.
type MessageStore struct {
	conn *sql.DB
}

var messageFields = []string{"id", "session_id", "content", "sender", "created_at"}

// messageColumnsFor returns the message column list qualified with alias,
// or unqualified when alias is empty.
func messageColumnsFor(alias string) string {
	if alias == "" {
		return strings.Join(messageFields, ", ")
	}
	qualified := make([]string, len(messageFields))
	for i, f := range messageFields {
		qualified[i] = alias + "." + f
	}
	return strings.Join(qualified, ", ")
}

func (s *MessageStore) Create(ctx context.Context, m *model.Message) error {
	m.ID = xid.New().String()
	m.CreatedAt = now()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumnsFor("")+`) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Content, string(m.Sender), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating message: %w", err)
	}
	return nil
}

// ListBySession returns the session's messages oldest first. Messages with
// equal created_at keep insertion order through rowid.
func (s *MessageStore) ListBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+messageColumnsFor("")+` FROM messages
		 WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages: %w", err)
	}
	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]model.Message, error) {
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		var sender string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Content, &sender, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		m.Sender = model.Sender(sender)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating messages: %w", err)
	}
	return messages, nil
}
