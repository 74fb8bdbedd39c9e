package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
)

func TestConversationUpsert_OverwritesInPlace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "c@example.com")
	p := createTestProject(t, db, user.ID, "Parent")

	first := &model.Conversation{ProjectID: p.ID, UserID: user.ID,
		Messages: model.Transcript(`[{"content":"hello","sender":"user"}]`)}
	if err := db.Conversations().Upsert(ctx, first); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	secondPayload := `[{"content":"hello","sender":"user"},{"content":"once upon a time","sender":"ai"}]`
	second := &model.Conversation{ProjectID: p.ID, UserID: user.ID, Messages: model.Transcript(secondPayload)}
	if err := db.Conversations().Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	if n := countRows(t, db, "conversations"); n != 1 {
		t.Fatalf("conversation rows = %d, want 1", n)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed on upsert: %q -> %q", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert")
	}

	got, err := db.Conversations().GetByProject(ctx, user.ID, p.ID)
	if err != nil {
		t.Fatalf("GetByProject() error = %v", err)
	}
	if string(got.Messages) != secondPayload {
		t.Errorf("Messages = %s, want second payload", got.Messages)
	}
}

func TestConversationUpsert_KeepsMessagesVerbatim(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "raw@example.com")
	p := createTestProject(t, db, user.ID, "Parent")

	tests := []struct {
		name    string
		payload string
	}{
		{"extra fields", `[{"content":"a","sender":"user","id":"m1","isFavorite":true}]`},
		{"null timestamp", `[{"content":"b","sender":"ai","timestamp":null}]`},
		{"epoch millis timestamp", `[{"content":"c","sender":"user","timestamp":1700000000000}]`},
		{"no timestamp", `[{"content":"d","sender":"user"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &model.Conversation{ProjectID: p.ID, UserID: user.ID, Messages: model.Transcript(tt.payload)}
			if err := db.Conversations().Upsert(ctx, conv); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
			got, err := db.Conversations().GetByProject(ctx, user.ID, p.ID)
			if err != nil {
				t.Fatalf("GetByProject() error = %v", err)
			}
			if string(got.Messages) != tt.payload {
				t.Errorf("Messages = %s, want %s", got.Messages, tt.payload)
			}
		})
	}
}

func TestConversationUpsert_RejectsNonArray(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "obj@example.com")
	p := createTestProject(t, db, user.ID, "Parent")

	conv := &model.Conversation{ProjectID: p.ID, UserID: user.ID, Messages: model.Transcript(`{"content":"a"}`)}
	if err := db.Conversations().Upsert(context.Background(), conv); err == nil {
		t.Fatal("Upsert() error = nil, want error for a non-array payload")
	}
	if n := countRows(t, db, "conversations"); n != 0 {
		t.Errorf("conversation rows = %d, want 0", n)
	}
}

func TestConversationGetByProject_Missing(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "none@example.com")
	p := createTestProject(t, db, user.ID, "Parent")

	_, err := db.Conversations().GetByProject(context.Background(), user.ID, p.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByProject() error = %v, want ErrNotFound", err)
	}
}

func TestConversationUpsert_NilMessagesStoredAsEmpty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "nil@example.com")
	p := createTestProject(t, db, user.ID, "Parent")

	if err := db.Conversations().Upsert(ctx, &model.Conversation{ProjectID: p.ID, UserID: user.ID}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, err := db.Conversations().GetByProject(ctx, user.ID, p.ID)
	if err != nil {
		t.Fatalf("GetByProject() error = %v", err)
	}
	if string(got.Messages) != "[]" {
		t.Errorf("Messages = %s, want []", got.Messages)
	}
}
