// Package service holds the business rules of the story backend.
//
// Handlers parse HTTP and call a service; services validate input, check
// ownership and call the repository interfaces. Services return
// *apperror.AppError for every failure a client should see and wrap
// everything else with fmt.Errorf so the handler can log it and answer 500.
//
// Ownership is enforced here, never in the handler:
//   - projects are loaded with ProjectRepository.GetOwned, which matches on
//     (id, user_id);
//   - sessions and messages are reached through ownedSession, which loads the
//     session with its parent project and compares the project's owner.
//
// In both cases a resource owned by someone else is reported exactly like a
// missing one.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

// ownedSession loads session id and verifies userID owns its project.
func ownedSession(ctx context.Context, sessions repository.SessionRepository, userID, id string) (*model.Session, error) {
	if id == "" {
		return nil, apperror.NotFound("Session")
	}
	sess, err := sessions.GetWithProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Project == nil || sess.Project.UserID != userID {
		return nil, apperror.NotFound("Session")
	}
	return sess, nil
}

// logStoreError logs err unless it is an AppError the client will see anyway.
func logStoreError(logger *slog.Logger, msg string, err error, attrs ...any) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return
	}
	logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
}
