package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// ProjectService manages projects on behalf of their owner.
type ProjectService struct {
	projects repository.ProjectRepository
	sessions repository.SessionRepository
	logger   *slog.Logger
}

func NewProjectService(projects repository.ProjectRepository, sessions repository.SessionRepository, logger *slog.Logger) *ProjectService {
	return &ProjectService{projects: projects, sessions: sessions, logger: logger}
}

type CreateProjectInput struct {
	Title       string  `json:"title"`
	Genre       *string `json:"genre"`
	Description *string `json:"description"`
}

// List returns every project of userID with its latest session as preview.
func (s *ProjectService) List(ctx context.Context, userID string) ([]model.Project, error) {
	projects, err := s.projects.ListOwned(ctx, userID)
	if err != nil {
		logStoreError(s.logger, "failed to list projects", err, slog.String("userID", userID))
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) Create(ctx context.Context, userID string, in CreateProjectInput) (*model.Project, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "Project title is required")
	}

	p := &model.Project{
		Title:       title,
		Genre:       in.Genre,
		Description: in.Description,
		Status:      model.StatusDraft,
		UserID:      userID,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		logStoreError(s.logger, "failed to create project", err, slog.String("userID", userID))
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created", slog.String("id", p.ID), slog.String("userID", userID))
	return p, nil
}

// Get returns the project with all of its sessions, newest updated first.
func (s *ProjectService) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	p, err := s.projects.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListSummaries(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions of project %s: %w", p.ID, err)
	}
	p.Sessions = sessions
	return p, nil
}

// Update applies the non-nil fields of patch. userID is never changed.
func (s *ProjectService) Update(ctx context.Context, userID, id string, patch model.ProjectPatch) (*model.Project, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperror.ValidationFailed("title", "Title cannot be empty")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperror.ValidationFailed("status", "Invalid status")
	}

	p, err := s.projects.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Genre != nil {
		p.Genre = patch.Genre
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}

	if err := s.projects.Update(ctx, p); err != nil {
		logStoreError(s.logger, "failed to update project", err, slog.String("id", id))
		return nil, fmt.Errorf("updating project: %w", err)
	}
	return p, nil
}

// Delete removes the project and everything under it.
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.projects.GetOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		logStoreError(s.logger, "failed to delete project", err, slog.String("id", id))
		return fmt.Errorf("deleting project: %w", err)
	}
	s.logger.Info("project deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

// CheckOwner returns nil when userID owns project id and the same NotFound
// as Get otherwise. The realtime hub calls it before letting a client join a
// project room.
func (s *ProjectService) CheckOwner(ctx context.Context, userID, id string) error {
	_, err := s.projects.GetOwned(ctx, userID, id)
	return err
}

// NormalizeSearch fills defaults and rejects values the store cannot use.
func NormalizeSearch(opts model.ProjectSearch) (model.ProjectSearch, error) {
	opts.Query = strings.TrimSpace(opts.Query)
	opts.Genre = strings.TrimSpace(opts.Genre)

	if opts.SortBy == "" {
		opts.SortBy = "updatedAt"
	}
	if !slices.Contains(model.ProjectSortFields, opts.SortBy) {
		return opts, apperror.ValidationFailed("sortBy",
			"sortBy must be one of "+strings.Join(model.ProjectSortFields, ", "))
	}

	switch strings.ToLower(opts.SortOrder) {
	case "":
		opts.SortOrder = "desc"
	case "asc", "desc":
		opts.SortOrder = strings.ToLower(opts.SortOrder)
	default:
		return opts, apperror.ValidationFailed("sortOrder", "sortOrder must be asc or desc")
	}

	if opts.Status != "" && !opts.Status.Valid() {
		return opts, apperror.ValidationFailed("status", "Invalid status")
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Limit > MaxSearchLimit {
		opts.Limit = MaxSearchLimit
	}
	return opts, nil
}

// Search returns one page of matching projects and the pagination block.
// The page query and the count query run concurrently.
func (s *ProjectService) Search(ctx context.Context, userID string, opts model.ProjectSearch) (*model.ProjectPage, error) {
	opts, err := NormalizeSearch(opts)
	if err != nil {
		return nil, err
	}

	var (
		projects []model.Project
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = s.projects.Search(gctx, userID, opts)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.projects.Count(gctx, userID, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		logStoreError(s.logger, "failed to search projects", err, slog.String("userID", userID))
		return nil, fmt.Errorf("searching projects: %w", err)
	}

	return &model.ProjectPage{
		Projects:   projects,
		Pagination: model.NewPagination(opts.Page, opts.Limit, total),
	}, nil
}
