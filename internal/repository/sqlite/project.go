package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

var _ repository.ProjectRepository = (*ProjectStore)(nil)

// ProjectStore persists projects.
type ProjectStore struct {
	conn *sql.DB
}

const projectColumns = `id, title, genre, description, status, user_id, created_at, updated_at`

// sortColumns maps model.ProjectSortFields onto SQL columns. ORDER BY is
// only ever built from this map.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"status":    "status",
	"genre":     "genre",
}

func (s *ProjectStore) Create(ctx context.Context, p *model.Project) error {
	ts := now()
	p.ID = xid.New().String()
	p.CreatedAt = ts
	p.UpdatedAt = ts
	if p.Status == "" {
		p.Status = model.StatusDraft
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Genre, p.Description, string(p.Status), p.UserID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating project: %w", err)
	}
	return nil
}

// GetOwned matches on both id and owner. A project owned by someone else is
// indistinguishable from a missing one.
func (s *ProjectStore) GetOwned(ctx context.Context, userID, id string) (*model.Project, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`,
		id, userID)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Project")
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}
	return p, nil
}

// ListOwned returns every project of userID, newest updated first, each with
// its latest session attached.
func (s *ProjectStore) ListOwned(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE user_id = ?
		 ORDER BY updated_at DESC, rowid DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	projects, err := collectProjects(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachLatestSessions(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// searchWhere builds the shared WHERE clause of Search and Count.
func searchWhere(userID string, opts model.ProjectSearch) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}

	if q := strings.TrimSpace(opts.Query); q != "" {
		// instr on lowered text instead of LIKE: no wildcard escaping needed.
		clauses = append(clauses,
			"(instr(lower(title), lower(?)) > 0 OR instr(lower(coalesce(description, '')), lower(?)) > 0)")
		args = append(args, q, q)
	}
	if opts.Genre != "" {
		clauses = append(clauses, "genre = ?")
		args = append(args, opts.Genre)
	}
	if opts.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(opts.Status))
	}
	return strings.Join(clauses, " AND "), args
}

// Search returns one page of userID's projects. opts must already be
// normalised by the service (valid sort field, page >= 1, limit >= 1).
func (s *ProjectStore) Search(ctx context.Context, userID string, opts model.ProjectSearch) ([]model.Project, error) {
	where, args := searchWhere(userID, opts)

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "updated_at"
	}
	direction := "DESC"
	if strings.EqualFold(opts.SortOrder, "asc") {
		direction = "ASC"
	}

	query := fmt.Sprintf(
		`SELECT %s FROM projects WHERE %s ORDER BY %s %s, rowid %s LIMIT ? OFFSET ?`,
		projectColumns, where, column, direction, direction)
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching projects: %w", err)
	}
	projects, err := collectProjects(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachLatestSessions(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Count returns the number of projects matching the search filters, ignoring
// paging.
func (s *ProjectStore) Count(ctx context.Context, userID string, opts model.ProjectSearch) (int, error) {
	where, args := searchWhere(userID, opts)

	var total int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE `+where, args...,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlite: counting projects: %w", err)
	}
	return total, nil
}

// Update writes every mutable field and bumps updated_at. user_id is never
// written.
func (s *ProjectStore) Update(ctx context.Context, p *model.Project) error {
	p.UpdatedAt = now()

	res, err := s.conn.ExecContext(ctx,
		`UPDATE projects
		 SET title = ?, genre = ?, description = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Genre, p.Description, string(p.Status), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating project %s: %w", p.ID, err)
	}
	return expectOneRow(res, "Project")
}

// Delete removes the project. Sessions, messages and the conversation
// snapshot go with it through ON DELETE CASCADE.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting project %s: %w", id, err)
	}
	return expectOneRow(res, "Project")
}

// attachLatestSessions sets Sessions on each project to a slice holding its
// most recently updated session, or to an empty slice when it has none.
func (s *ProjectStore) attachLatestSessions(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}

	ids := make([]any, len(projects))
	index := make(map[string]int, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
		index[p.ID] = i
		projects[i].Sessions = []model.Session{}
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE project_id IN (`+placeholders(len(ids))+`)
		 ORDER BY project_id, updated_at DESC, rowid DESC`,
		ids...)
	if err != nil {
		return fmt.Errorf("sqlite: loading session previews: %w", err)
	}
	sessions, err := collectSessions(rows)
	if err != nil {
		return err
	}

	for _, sess := range sessions {
		i := index[sess.ProjectID]
		if len(projects[i].Sessions) == 0 {
			projects[i].Sessions = []model.Session{sess}
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*model.Project, error) {
	var p model.Project
	var status string
	if err := row.Scan(
		&p.ID, &p.Title, &p.Genre, &p.Description, &status, &p.UserID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = model.ProjectStatus(status)
	return &p, nil
}

func collectProjects(rows *sql.Rows) ([]model.Project, error) {
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning project row: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating projects: %w", err)
	}
	return projects, nil
}

// expectOneRow turns "zero rows affected" into a NotFound for resource.
func expectOneRow(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource)
	}
	return nil
}
