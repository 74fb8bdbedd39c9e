package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

// MessageService reads and appends the message log of a session.
type MessageService struct {
	sessions repository.SessionRepository
	messages repository.MessageRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewMessageService(sessions repository.SessionRepository, messages repository.MessageRepository, logger *slog.Logger) *MessageService {
	return &MessageService{sessions: sessions, messages: messages, logger: logger, now: time.Now}
}

type AppendMessageInput struct {
	Content string       `json:"content"`
	Sender  model.Sender `json:"sender"`
}

func (s *MessageService) List(ctx context.Context, userID, sessionID string) ([]model.Message, error) {
	if _, err := ownedSession(ctx, s.sessions, userID, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		logStoreError(s.logger, "failed to list messages", err, slog.String("sessionID", sessionID))
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// Append stores a message and then moves the session's updatedAt forward to
// at least the message's createdAt. The two writes are separate statements;
// if the second fails the message is kept and the failure is only logged.
func (s *MessageService) Append(ctx context.Context, userID, sessionID string, in AppendMessageInput) (*model.Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperror.ValidationFailed("content", "Message content is required")
	}
	if !in.Sender.Valid() {
		return nil, apperror.ValidationFailed("sender", "Sender must be USER or AI")
	}

	if _, err := ownedSession(ctx, s.sessions, userID, sessionID); err != nil {
		return nil, err
	}

	msg := &model.Message{SessionID: sessionID, Content: in.Content, Sender: in.Sender}
	if err := s.messages.Create(ctx, msg); err != nil {
		logStoreError(s.logger, "failed to append message", err, slog.String("sessionID", sessionID))
		return nil, fmt.Errorf("appending message: %w", err)
	}

	touchAt := s.now()
	if touchAt.Before(msg.CreatedAt) {
		touchAt = msg.CreatedAt
	}
	if err := s.sessions.Touch(ctx, sessionID, touchAt); err != nil {
		s.logger.Error("failed to touch session after append",
			slog.String("sessionID", sessionID),
			slog.String("messageID", msg.ID),
			slog.String("error", err.Error()),
		)
	}
	return msg, nil
}
