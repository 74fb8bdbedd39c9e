package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/story-studio/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// RoomAuthorizer decides whether user may join the room of projectID.
type RoomAuthorizer func(ctx context.Context, user *model.User, projectID string) error

// Client is one websocket connection. Room membership lives in the hub and
// c.rooms is guarded by the hub's mutex.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	user      *model.User
	authorize RoomAuthorizer
	logger    *slog.Logger

	send  chan []byte
	rooms map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(h *Hub, conn *websocket.Conn, user *model.User, authorize RoomAuthorizer) *Client {
	c := &Client{
		hub:       h,
		conn:      conn,
		user:      user,
		authorize: authorize,
		logger:    h.logger,
		send:      make(chan []byte, sendBuffer),
		rooms:     make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	h.register(c)
	return c
}

// enqueue hands frame to the write pump without blocking. It returns false
// when the buffer is full or the client is closed.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close leaves every room and tears down the connection. Safe to call more
// than once and from any goroutine.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.unregister(c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump decodes inbound events until the connection fails or ctx ends.
func (c *Client) readPump(ctx context.Context) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.reply(Event{Type: EventError, Error: "Invalid event"})
			continue
		}
		c.handle(ctx, ev)
	}
}

// writePump is the only goroutine that writes to conn.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) reply(ev Event) {
	if !c.enqueue(encode(ev)) {
		c.close()
	}
}

const msgNotMember = "Not a member of this project"

// handle applies one inbound event.
func (c *Client) handle(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventJoinProject:
		if ev.ProjectID == "" {
			c.reply(Event{Type: EventError, Error: "projectId is required"})
			return
		}
		if err := c.authorize(ctx, c.user, ev.ProjectID); err != nil {
			c.reply(Event{Type: EventError, ProjectID: ev.ProjectID, Error: "Project not found"})
			return
		}
		c.hub.Join(ev.ProjectID, c)
		c.reply(Event{Type: EventJoined, ProjectID: ev.ProjectID})

	case EventLeaveProject:
		c.hub.Leave(ev.ProjectID, c)

	case EventProjectUpdate:
		if !c.hub.IsMember(ev.ProjectID, c) {
			c.reply(Event{Type: EventError, ProjectID: ev.ProjectID, Error: msgNotMember})
			return
		}
		c.hub.Publish(ev.ProjectID, Event{
			Type:      EventProjectUpdated,
			ProjectID: ev.ProjectID,
			Data:      ev.Data,
			UserID:    c.user.ID,
		}, c)

	case EventTyping:
		if !c.hub.IsMember(ev.ProjectID, c) {
			c.reply(Event{Type: EventError, ProjectID: ev.ProjectID, Error: msgNotMember})
			return
		}
		c.hub.Publish(ev.ProjectID, Event{
			Type:      EventUserTyping,
			ProjectID: ev.ProjectID,
			UserID:    c.user.ID,
			Name:      c.user.Name,
		}, c)

	default:
		c.reply(Event{Type: EventError, Error: "Unknown event type"})
	}
}
