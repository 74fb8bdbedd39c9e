package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Transcript is the client's message array, stored and returned as sent.
// Entries are opaque: no field of a message is read or rewritten here.
type Transcript = json.RawMessage

// EmptyTranscript returns a fresh empty array.
func EmptyTranscript() Transcript {
	return Transcript("[]")
}

// IsArrayTranscript reports whether t is a well-formed JSON array.
func IsArrayTranscript(t Transcript) bool {
	trimmed := bytes.TrimSpace(t)
	return len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed)
}

// Conversation is the whole-transcript snapshot of a project. There is at most
// one per project and every save replaces Messages in full.
//
// It is a second record of chat history next to Session/Message; the two are
// never synchronised.
type Conversation struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	UserID    string     `json:"userId"`
	Messages  Transcript `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
