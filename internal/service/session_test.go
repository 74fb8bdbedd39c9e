package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
)

func newTestSessionService(store *fakeStore) *SessionService {
	return NewSessionService(fakeProjects{store}, fakeSessions{store}, fakeMessages{store}, quietLogger())
}

func TestSessionCreate_DefaultTitle(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	svc.now = func() time.Time { return time.Date(2024, 3, 7, 15, 0, 0, 0, time.Local) }
	u := store.seedUser("a@x.com")
	p := store.seedProject(u.ID, "T1")

	sess, err := svc.Create(context.Background(), u.ID, p.ID, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.Title != "Session 3/7/2024" {
		t.Errorf("Title = %q, want %q", sess.Title, "Session 3/7/2024")
	}
	if !sess.IsActive {
		t.Error("new session should be active")
	}

	named, err := svc.Create(context.Background(), u.ID, p.ID, "Brainstorm")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if named.Title != "Brainstorm" {
		t.Errorf("Title = %q", named.Title)
	}
}

func TestSessionCreate_ForeignProject(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	owner := store.seedUser("owner@x.com")
	other := store.seedUser("other@x.com")
	p := store.seedProject(owner.ID, "T1")

	_, err := svc.Create(context.Background(), other.ID, p.ID, "")
	if !errors.Is(err, apperror.ErrNotFound) || appMessage(t, err) != "Project not found" {
		t.Errorf("Create() error = %v, want Project not found", err)
	}
	if len(store.sessions) != 0 {
		t.Errorf("session created under a foreign project")
	}
}

// Session access is checked through the parent project's owner.
func TestSession_TransitiveOwnership(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	owner := store.seedUser("owner@x.com")
	other := store.seedUser("other@x.com")
	p := store.seedProject(owner.ID, "T1")
	sess := store.seedSession(p.ID, "private")
	ctx := context.Background()

	if _, err := svc.Get(ctx, other.ID, sess.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, other.ID, sess.ID, model.SessionPatch{Title: ptr("x")}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, other.ID, sess.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.ListForProject(ctx, other.ID, p.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ListForProject() error = %v, want ErrNotFound", err)
	}
	if _, ok := store.sessions[sess.ID]; !ok {
		t.Error("session deleted by non-owner")
	}
}

func TestSessionGet_WithProjectAndMessages(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	u := store.seedUser("a@x.com")
	p := store.seedProject(u.ID, "T1")
	sess := store.seedSession(p.ID, "chat")
	msgs := fakeMessages{store}
	for _, c := range []string{"first", "second"} {
		if err := msgs.Create(context.Background(), &model.Message{SessionID: sess.ID, Content: c, Sender: model.SenderUser}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.Get(context.Background(), u.ID, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Project == nil || got.Project.ID != p.ID {
		t.Errorf("Project = %+v", got.Project)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "first" {
		t.Errorf("Messages = %+v", got.Messages)
	}
}

func TestSessionUpdate_Partial(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	u := store.seedUser("a@x.com")
	p := store.seedProject(u.ID, "T1")
	sess := store.seedSession(p.ID, "keep me")

	got, err := svc.Update(context.Background(), u.ID, sess.ID, model.SessionPatch{IsActive: ptr(false)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Title != "keep me" || got.IsActive {
		t.Errorf("Update() = %+v", got)
	}
	if got.Project != nil {
		t.Error("Update() response should not embed the project")
	}
}

func TestSessionDelete(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(store)
	u := store.seedUser("a@x.com")
	p := store.seedProject(u.ID, "T1")
	sess := store.seedSession(p.ID, "bye")

	if err := svc.Delete(context.Background(), u.ID, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(context.Background(), u.ID, sess.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}

func TestDefaultSessionTitle(t *testing.T) {
	got := defaultSessionTitle(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	if got != "Session 12/31/2025" {
		t.Errorf("defaultSessionTitle() = %q", got)
	}
}
