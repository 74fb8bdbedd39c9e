package model

import "testing"

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, limit, total int
		want               Pagination
	}{
		{1, 10, 0, Pagination{Page: 1, Limit: 10, Total: 0, TotalPages: 0}},
		{1, 10, 10, Pagination{Page: 1, Limit: 10, Total: 10, TotalPages: 1}},
		{1, 10, 11, Pagination{Page: 1, Limit: 10, Total: 11, TotalPages: 2, HasNext: true}},
		{2, 10, 11, Pagination{Page: 2, Limit: 10, Total: 11, TotalPages: 2, HasPrev: true}},
		{2, 1, 3, Pagination{Page: 2, Limit: 1, Total: 3, TotalPages: 3, HasNext: true, HasPrev: true}},
		// A page past the end is reported as such, not clamped.
		{5, 10, 11, Pagination{Page: 5, Limit: 10, Total: 11, TotalPages: 2, HasPrev: true}},
	}
	for _, tt := range tests {
		if got := NewPagination(tt.page, tt.limit, tt.total); got != tt.want {
			t.Errorf("NewPagination(%d, %d, %d) = %+v, want %+v", tt.page, tt.limit, tt.total, got, tt.want)
		}
	}
}

func TestStatusAndSenderValid(t *testing.T) {
	for _, s := range []ProjectStatus{StatusDraft, StatusInProgress, StatusComplete, StatusArchived} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []ProjectStatus{"", "draft", "DONE"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
	if !SenderUser.Valid() || !SenderAI.Valid() {
		t.Error("USER and AI must be valid senders")
	}
	for _, s := range []Sender{"", "user", "Ai", "SYSTEM"} {
		if s.Valid() {
			t.Errorf("sender %q should be invalid", s)
		}
	}
}
