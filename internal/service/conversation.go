package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

// ConversationService saves and loads the per-project transcript snapshot.
// The snapshot is independent of the session ledger; nothing here reads or
// writes sessions or messages.
type ConversationService struct {
	projects      repository.ProjectRepository
	conversations repository.ConversationRepository
	logger        *slog.Logger
}

func NewConversationService(projects repository.ProjectRepository, conversations repository.ConversationRepository, logger *slog.Logger) *ConversationService {
	return &ConversationService{projects: projects, conversations: conversations, logger: logger}
}

// Save replaces the project's snapshot with messages. The caller sends the
// whole transcript every time. A missing or null array is stored as empty;
// anything other than an array is rejected.
func (s *ConversationService) Save(ctx context.Context, userID, projectID string, messages model.Transcript) (*model.Conversation, error) {
	if projectID == "" {
		return nil, apperror.NotFound("Project")
	}
	if _, err := s.projects.GetOwned(ctx, userID, projectID); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(messages)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		messages = model.EmptyTranscript()
	case !model.IsArrayTranscript(trimmed):
		return nil, apperror.ValidationFailed("messages", "Messages must be an array")
	default:
		messages = trimmed
	}
	conv := &model.Conversation{ProjectID: projectID, UserID: userID, Messages: messages}
	if err := s.conversations.Upsert(ctx, conv); err != nil {
		logStoreError(s.logger, "failed to save conversation", err, slog.String("projectID", projectID))
		return nil, fmt.Errorf("saving conversation: %w", err)
	}

	s.logger.Debug("conversation saved",
		slog.String("projectID", projectID),
		slog.Int("bytes", len(messages)),
	)
	return conv, nil
}

// Load returns the snapshot's messages, or an empty list when none was saved.
func (s *ConversationService) Load(ctx context.Context, userID, projectID string) (model.Transcript, error) {
	if _, err := s.projects.GetOwned(ctx, userID, projectID); err != nil {
		return nil, err
	}

	conv, err := s.conversations.GetByProject(ctx, userID, projectID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.EmptyTranscript(), nil
		}
		logStoreError(s.logger, "failed to load conversation", err, slog.String("projectID", projectID))
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return conv.Messages, nil
}
