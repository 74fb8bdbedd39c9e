package model

import "time"

// Session is a chat session under a project. Its owner is the owner of the
// parent project; the row itself stores no user id.
type Session struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Messages is nil on create and update responses and left out of the
	// JSON; reads that attach the log always set it, so an empty log
	// renders as [].
	Project  *Project  `json:"project,omitempty"`
	Messages []Message `json:"messages,omitzero"`
}

// SessionPatch carries the fields of a partial session update.
type SessionPatch struct {
	Title    *string `json:"title"`
	IsActive *bool   `json:"isActive"`
}
