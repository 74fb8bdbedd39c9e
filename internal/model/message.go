package model

import "time"

// Sender identifies who authored a message. Values are case-sensitive.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderAI   Sender = "AI"
)

// Valid reports whether s is exactly USER or AI.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// Message is one entry of a session's append-only log.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}
