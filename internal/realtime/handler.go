package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/auth"
	"github.com/sakif/story-studio/internal/model"
)

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Handler upgrades GET /api/ws?token=<jwt> to a websocket bound to the hub.
type Handler struct {
	hub       *Hub
	authn     Authenticator
	authorize RoomAuthorizer
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewHandler accepts upgrades from allowedOrigin only ("*" allows any).
// Requests without an Origin header, such as non-browser clients, are
// accepted.
func NewHandler(hub *Hub, authn Authenticator, authorize RoomAuthorizer, allowedOrigin string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:       hub,
		authn:     authn,
		authorize: authorize,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r)
	}

	user, err := h.authn.Authenticate(r.Context(), token)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			http.Error(w, appErr.Message, http.StatusUnauthorized)
			return
		}
		h.logger.Error("websocket auth failed", slog.String("error", err.Error()))
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	// The connection outlives nothing but itself; detach from the request's
	// cancellation.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	c := newClient(h.hub, conn, user, h.authorize)
	h.logger.Debug("websocket connected", slog.String("userID", user.ID))

	go c.writePump()
	c.readPump(ctx)

	h.logger.Debug("websocket disconnected", slog.String("userID", user.ID))
}
