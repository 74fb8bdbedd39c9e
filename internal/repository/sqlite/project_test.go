package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
)

func strPtr(s string) *string { return &s }

func TestProjectCreate_Defaults(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "p@example.com")

	p := &model.Project{Title: "Novel", UserID: user.ID, Genre: strPtr("fantasy")}
	if err := db.Projects().Create(context.Background(), p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if p.ID == "" {
		t.Error("Create() did not set ID")
	}
	if p.Status != model.StatusDraft {
		t.Errorf("Status = %q, want DRAFT", p.Status)
	}

	found, err := db.Projects().GetOwned(context.Background(), user.ID, p.ID)
	if err != nil {
		t.Fatalf("GetOwned() error = %v", err)
	}
	if found.Genre == nil || *found.Genre != "fantasy" {
		t.Errorf("Genre = %v, want fantasy", found.Genre)
	}
	if found.Description != nil {
		t.Errorf("Description = %v, want nil", *found.Description)
	}
}

func TestProjectGetOwned_OtherUserIsNotFound(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	p := createTestProject(t, db, owner.ID, "Private")

	_, err := db.Projects().GetOwned(context.Background(), other.ID, p.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetOwned(other) error = %v, want ErrNotFound", err)
	}

	_, err = db.Projects().GetOwned(context.Background(), owner.ID, "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetOwned(missing) error = %v, want ErrNotFound", err)
	}
}

func TestProjectListOwned_OrderAndPreview(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "list@example.com")
	other := createTestUser(t, db, "list-other@example.com")

	first := createTestProject(t, db, user.ID, "First")
	second := createTestProject(t, db, user.ID, "Second")
	createTestProject(t, db, other.ID, "Not mine")

	older := createTestSession(t, db, first.ID, "older")
	newer := createTestSession(t, db, first.ID, "newer")
	// Make "older" the most recently updated session.
	if err := db.Sessions().Touch(ctx, older.ID, newer.UpdatedAt.Add(time.Second)); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	// Bump First so it sorts ahead of Second.
	first.Title = "First (edited)"
	if err := db.Projects().Update(ctx, first); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	projects, err := db.Projects().ListOwned(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListOwned() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("len = %d, want 2", len(projects))
	}
	if projects[0].ID != first.ID || projects[1].ID != second.ID {
		t.Errorf("order = [%s %s], want [%s %s]", projects[0].Title, projects[1].Title, first.Title, second.Title)
	}
	if len(projects[0].Sessions) != 1 || projects[0].Sessions[0].ID != older.ID {
		t.Errorf("preview = %+v, want only session %q", projects[0].Sessions, older.ID)
	}
	if projects[1].Sessions == nil || len(projects[1].Sessions) != 0 {
		t.Errorf("project without sessions has preview %#v, want empty slice", projects[1].Sessions)
	}
}

func TestProjectUpdate_KeepsOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "keep@example.com")
	thief := createTestUser(t, db, "thief@example.com")
	p := createTestProject(t, db, owner.ID, "Mine")

	p.UserID = thief.ID
	p.Status = model.StatusArchived
	if err := db.Projects().Update(ctx, p); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.Projects().GetOwned(ctx, owner.ID, p.ID)
	if err != nil {
		t.Fatalf("GetOwned(owner) error = %v", err)
	}
	if found.Status != model.StatusArchived {
		t.Errorf("Status = %q, want ARCHIVED", found.Status)
	}
}

func TestProjectUpdateDelete_Missing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Projects().Update(ctx, &model.Project{ID: "missing", Title: "x", Status: model.StatusDraft})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if err := db.Projects().Delete(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func seedSearch(t *testing.T, db *DB, userID string) {
	t.Helper()
	ctx := context.Background()
	rows := []struct {
		title, genre, desc string
		status             model.ProjectStatus
	}{
		{"Dragon Saga", "fantasy", "A tale of fire", model.StatusDraft},
		{"Moon Base", "scifi", "Dragons in space", model.StatusArchived},
		{"Quiet Town", "drama", "", model.StatusArchived},
		{"Star Map", "scifi", "Navigation", model.StatusInProgress},
	}
	for _, r := range rows {
		p := &model.Project{Title: r.title, Genre: strPtr(r.genre), Status: r.status, UserID: userID}
		if r.desc != "" {
			p.Description = strPtr(r.desc)
		}
		if err := db.Projects().Create(ctx, p); err != nil {
			t.Fatalf("seeding %q: %v", r.title, err)
		}
	}
}

func searchOpts(mod func(*model.ProjectSearch)) model.ProjectSearch {
	opts := model.ProjectSearch{SortBy: "title", SortOrder: "asc", Page: 1, Limit: 10}
	if mod != nil {
		mod(&opts)
	}
	return opts
}

func titles(projects []model.Project) []string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = p.Title
	}
	return out
}

func TestProjectSearch(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "search@example.com")
	other := createTestUser(t, db, "search-other@example.com")
	seedSearch(t, db, user.ID)
	seedSearch(t, db, other.ID)

	tests := []struct {
		name  string
		opts  model.ProjectSearch
		want  []string
		total int
	}{
		{"all sorted by title", searchOpts(nil),
			[]string{"Dragon Saga", "Moon Base", "Quiet Town", "Star Map"}, 4},
		{"query hits title and description case-insensitively",
			searchOpts(func(o *model.ProjectSearch) { o.Query = "DRAGON" }),
			[]string{"Dragon Saga", "Moon Base"}, 2},
		{"genre filter", searchOpts(func(o *model.ProjectSearch) { o.Genre = "scifi" }),
			[]string{"Moon Base", "Star Map"}, 2},
		{"status filter", searchOpts(func(o *model.ProjectSearch) { o.Status = model.StatusArchived }),
			[]string{"Moon Base", "Quiet Town"}, 2},
		{"descending", searchOpts(func(o *model.ProjectSearch) { o.SortOrder = "desc" }),
			[]string{"Star Map", "Quiet Town", "Moon Base", "Dragon Saga"}, 4},
		{"second page", searchOpts(func(o *model.ProjectSearch) { o.Limit = 3; o.Page = 2 }),
			[]string{"Star Map"}, 4},
		{"wildcards are literal", searchOpts(func(o *model.ProjectSearch) { o.Query = "%" }),
			[]string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			got, err := db.Projects().Search(ctx, user.ID, tt.opts)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			gotTitles := titles(got)
			if len(gotTitles) != len(tt.want) {
				t.Fatalf("Search() = %v, want %v", gotTitles, tt.want)
			}
			for i := range tt.want {
				if gotTitles[i] != tt.want[i] {
					t.Errorf("Search()[%d] = %q, want %q", i, gotTitles[i], tt.want[i])
				}
			}

			total, err := db.Projects().Count(ctx, user.ID, tt.opts)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if total != tt.total {
				t.Errorf("Count() = %d, want %d", total, tt.total)
			}
		})
	}
}
