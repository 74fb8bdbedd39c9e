// Package realtime runs the project rooms behind the websocket endpoint.
//
// A client joins the room of a project it owns and then broadcasts edit and
// typing events to the other members. Delivery is at most once: nothing is
// persisted, a member whose send buffer is full is disconnected, and a
// disconnect discards whatever was queued for it.
//
// With a Backplane configured (Redis pub/sub in production) every frame
// published on one instance is also delivered to the room's members on the
// other instances.
package realtime

import "encoding/json"

// Inbound event types.
const (
	EventJoinProject   = "join-project"
	EventLeaveProject  = "leave-project"
	EventProjectUpdate = "project-update"
	EventTyping        = "typing"
)

// Outbound event types.
const (
	EventJoined         = "joined"
	EventProjectUpdated = "project-updated"
	EventUserTyping     = "user-typing"
	EventError          = "error"
)

// Event is the JSON frame exchanged with clients in both directions.
type Event struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func encode(ev Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
