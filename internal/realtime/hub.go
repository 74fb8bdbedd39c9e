package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
)

const publishTimeout = 2 * time.Second

// Hub tracks room membership for the clients connected to this instance.
type Hub struct {
	id        string
	logger    *slog.Logger
	backplane Backplane

	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}

	stop context.CancelFunc
	done chan struct{}
}

// NewHub returns a hub. backplane may be nil for a single instance.
func NewHub(backplane Backplane, logger *slog.Logger) *Hub {
	return &Hub{
		id:        xid.New().String(),
		logger:    logger,
		backplane: backplane,
		rooms:     make(map[string]map[*Client]struct{}),
		clients:   make(map[*Client]struct{}),
	}
}

// Start subscribes to the backplane and relays remote frames to local
// members until Close. It returns once the subscription is live. Without a
// backplane it does nothing.
func (h *Hub) Start(ctx context.Context) error {
	if h.backplane == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	envelopes, err := h.backplane.Listen(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("realtime: subscribing to backplane: %w", err)
	}

	h.stop = cancel
	h.done = make(chan struct{})
	go func() {
		defer close(h.done)
		for env := range envelopes {
			if env.Origin == h.id {
				continue
			}
			h.deliver(env.Room, env.Frame, nil)
		}
	}()
	return nil
}

// Close disconnects every client and stops the backplane relay.
func (h *Hub) Close() error {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}

	if h.stop != nil {
		h.stop()
		<-h.done
	}
	if h.backplane != nil {
		return h.backplane.Close()
	}
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// unregister removes c from every room. Called once from Client.close.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	for room := range c.rooms {
		h.leaveLocked(room, c)
	}
}

// Join adds c to room. A client that is already closed is ignored, so a
// join racing with a disconnect cannot leave a dead member behind.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

func (h *Hub) leaveLocked(room string, c *Client) {
	delete(c.rooms, room)
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// IsMember reports whether c has joined room.
func (h *Hub) IsMember(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// MemberCount returns the number of local members of room.
func (h *Hub) MemberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish sends ev to every member of room except sender, here and, through
// the backplane, on the other instances. Backplane failures are logged; the
// local fan-out has already happened.
func (h *Hub) Publish(room string, ev Event, sender *Client) {
	frame := encode(ev)
	h.deliver(room, frame, sender)

	if h.backplane == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.backplane.Publish(ctx, Envelope{Origin: h.id, Room: room, Frame: frame}); err != nil {
		h.logger.Warn("backplane publish failed",
			slog.String("room", room),
			slog.String("error", err.Error()),
		)
	}
}

// deliver fans frame out to local members. A member that cannot take the
// frame right away is disconnected.
func (h *Hub) deliver(room string, frame json.RawMessage, except *Client) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != except {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.enqueue(frame) {
			h.logger.Debug("dropping slow client",
				slog.String("room", room),
				slog.String("userID", c.user.ID),
			)
			c.close()
		}
	}
}
