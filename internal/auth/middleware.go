package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
)

// Messages returned to clients for each way authentication can fail.
const (
	MsgNoToken     = "Not authorized, no token"
	MsgTokenFailed = "Not authorized, token failed"
	MsgTokenExpiry = "Not authorized, token expired"
	MsgNoUser      = "User not found"
	MsgInactive    = "User account is deactivated"
	MsgRoleDenied  = "User role is not authorized"
)

type contextKey string

const userKey contextKey = "user"

// UserLookup is the slice of the user repository the authenticator needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Authenticator turns a raw bearer token into the current user record.
type Authenticator struct {
	tokens *TokenService
	users  UserLookup
}

func NewAuthenticator(tokens *TokenService, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate verifies token and re-fetches its user. Every failure is an
// apperror.ErrUnauthorized carrying one of the Msg* constants.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.Unauthorized(MsgNoToken)
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, apperror.Unauthorized(MsgTokenExpiry)
		}
		return nil, apperror.Unauthorized(MsgTokenFailed)
	}

	user, err := a.users.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(MsgNoUser)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized(MsgInactive)
	}
	return user, nil
}

// RequireAuth rejects the request with 401 unless it carries a valid
// "Authorization: Bearer <token>" header for an active user. The resolved
// user is stored in the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				writeAuthError(w, http.StatusUnauthorized, appErr.Message)
				return
			}
			writeAuthError(w, http.StatusInternalServerError, "Server error")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireRole must run after RequireAuth. It answers 403 when the user's
// role is not one of roles.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, MsgNoToken)
				return
			}
			if !slices.Contains(roles, user.Role) {
				writeAuthError(w, http.StatusForbidden, MsgRoleDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken returns the token from the Authorization header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// writeAuthError writes the same envelope shape as the handler package. It
// lives here so the middleware does not import handler.
func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
