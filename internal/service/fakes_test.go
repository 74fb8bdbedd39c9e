package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
)

// fakeStore is an in-memory stand-in for the sqlite stores. One value
// implements every repository interface through thin views so that the
// ownership rules can be checked across aggregates.
type fakeStore struct {
	mu            sync.Mutex
	nextID        int
	clock         time.Time
	users         map[string]*model.User
	projects      map[string]*model.Project
	sessions      map[string]*model.Session
	messages      []model.Message
	conversations map[string]*model.Conversation
	upserts       int

	// set to simulate store failures
	failCreate bool
	failTouch  bool
	failSearch bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:         time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		users:         map[string]*model.User{},
		projects:      map[string]*model.Project{},
		sessions:      map[string]*model.Session{},
		conversations: map[string]*model.Conversation{},
	}
}

var errFakeDB = errors.New("fake db failure")

// tick advances the fake clock so every write gets a distinct timestamp.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---- users ----

type fakeUsers struct{ *fakeStore }

func (f fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errFakeDB
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("User with this email already exists")
		}
	}
	u.ID = f.id("user")
	u.CreatedAt = f.tick()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	copied := *u
	return &copied, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("User")
}

// ---- projects ----

type fakeProjects struct{ *fakeStore }

func (f fakeProjects) Create(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errFakeDB
	}
	p.ID = f.id("project")
	p.CreatedAt = f.tick()
	p.UpdatedAt = p.CreatedAt
	copied := *p
	f.projects[p.ID] = &copied
	return nil
}

func (f fakeProjects) GetOwned(_ context.Context, userID, id string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, apperror.NotFound("Project")
	}
	copied := *p
	copied.Sessions = nil
	return &copied, nil
}

func (f fakeProjects) owned(userID string) []model.Project {
	out := []model.Project{}
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (f fakeProjects) ListOwned(_ context.Context, userID string) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owned(userID), nil
}

func (f fakeProjects) matching(userID string, opts model.ProjectSearch) []model.Project {
	out := []model.Project{}
	for _, p := range f.owned(userID) {
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		if opts.Genre != "" && (p.Genre == nil || *p.Genre != opts.Genre) {
			continue
		}
		if q := strings.ToLower(opts.Query); q != "" {
			desc := ""
			if p.Description != nil {
				desc = *p.Description
			}
			if !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(desc), q) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func (f fakeProjects) Search(_ context.Context, userID string, opts model.ProjectSearch) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSearch {
		return nil, errFakeDB
	}
	all := f.matching(userID, opts)
	start := (opts.Page - 1) * opts.Limit
	if start >= len(all) {
		return []model.Project{}, nil
	}
	end := min(start+opts.Limit, len(all))
	return all[start:end], nil
}

func (f fakeProjects) Count(_ context.Context, userID string, opts model.ProjectSearch) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matching(userID, opts)), nil
}

func (f fakeProjects) Update(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.projects[p.ID]
	if !ok {
		return apperror.NotFound("Project")
	}
	p.UpdatedAt = f.tick()
	owner := existing.UserID
	*existing = *p
	existing.UserID = owner
	return nil
}

func (f fakeProjects) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return apperror.NotFound("Project")
	}
	delete(f.projects, id)
	delete(f.conversations, id)
	for sid, s := range f.sessions {
		if s.ProjectID == id {
			f.dropSession(sid)
		}
	}
	return nil
}

// ---- sessions ----

type fakeSessions struct{ *fakeStore }

func (f fakeSessions) Create(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errFakeDB
	}
	s.ID = f.id("session")
	s.CreatedAt = f.tick()
	s.UpdatedAt = s.CreatedAt
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f fakeSessions) GetWithProject(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("Session")
	}
	copied := *s
	p := *f.projects[s.ProjectID]
	copied.Project = &p
	return &copied, nil
}

func (f fakeSessions) summaries(projectID string) []model.Session {
	out := []model.Session{}
	for _, s := range f.sessions {
		if s.ProjectID == projectID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (f fakeSessions) ListSummaries(_ context.Context, projectID string) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries(projectID), nil
}

func (f fakeSessions) ListByProject(_ context.Context, projectID string) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.summaries(projectID)
	for i := range out {
		out[i].Messages = f.messagesOf(out[i].ID)
	}
	return out, nil
}

func (f fakeSessions) Update(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.sessions[s.ID]
	if !ok {
		return apperror.NotFound("Session")
	}
	s.UpdatedAt = f.tick()
	existing.Title = s.Title
	existing.IsActive = s.IsActive
	existing.UpdatedAt = s.UpdatedAt
	return nil
}

func (f fakeSessions) Touch(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTouch {
		return errFakeDB
	}
	s, ok := f.sessions[id]
	if !ok {
		return apperror.NotFound("Session")
	}
	s.UpdatedAt = at
	return nil
}

func (f fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return apperror.NotFound("Session")
	}
	f.dropSession(id)
	return nil
}

// dropSession removes a session and its messages. Caller holds mu.
func (f *fakeStore) dropSession(id string) {
	delete(f.sessions, id)
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.SessionID != id {
			kept = append(kept, m)
		}
	}
	f.messages = kept
}

// ---- messages ----

type fakeMessages struct{ *fakeStore }

func (f fakeMessages) Create(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errFakeDB
	}
	m.ID = f.id("message")
	m.CreatedAt = f.tick()
	f.messages = append(f.messages, *m)
	return nil
}

func (f fakeMessages) ListBySession(_ context.Context, sessionID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messagesOf(sessionID), nil
}

// messagesOf returns a session's messages in insertion order. Caller holds mu.
func (f *fakeStore) messagesOf(sessionID string) []model.Message {
	out := []model.Message{}
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

// ---- conversations ----

type fakeConversations struct{ *fakeStore }

func (f fakeConversations) Upsert(_ context.Context, c *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	ts := f.tick()
	if existing, ok := f.conversations[c.ProjectID]; ok {
		existing.Messages = append(model.Transcript(nil), c.Messages...)
		existing.UpdatedAt = ts
		*c = *existing
		return nil
	}
	c.ID = f.id("conversation")
	c.CreatedAt = ts
	c.UpdatedAt = ts
	copied := *c
	f.conversations[c.ProjectID] = &copied
	return nil
}

func (f fakeConversations) GetByProject(_ context.Context, userID, projectID string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[projectID]
	if !ok || c.UserID != userID {
		return nil, apperror.NotFound("Conversation")
	}
	copied := *c
	return &copied, nil
}

// seedUser inserts an active user directly, bypassing registration.
func (f *fakeStore) seedUser(email string) *model.User {
	u := &model.User{Email: email, Name: "Seed", Role: model.RoleUser, IsActive: true}
	if err := (fakeUsers{f}).Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (f *fakeStore) seedProject(userID, title string) *model.Project {
	p := &model.Project{Title: title, UserID: userID, Status: model.StatusDraft}
	if err := (fakeProjects{f}).Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

func (f *fakeStore) seedSession(projectID, title string) *model.Session {
	s := &model.Session{ProjectID: projectID, Title: title, IsActive: true}
	if err := (fakeSessions{f}).Create(context.Background(), s); err != nil {
		panic(err)
	}
	return s
}
