package handler

import (
	"net/http"

	"github.com/sakif/story-studio/internal/auth"
	"github.com/sakif/story-studio/internal/service"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	auth *service.AuthService
	errs *ErrorWriter
}

func NewAuthHandler(auth *service.AuthService, errs *ErrorWriter) *AuthHandler {
	return &AuthHandler{auth: auth, errs: errs}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /api/auth/register → 201 {user, token}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

// HandleLogin
//
// HTTP: POST /api/auth/login → 200 {user, token}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// HandleMe returns a fresh copy of the signed-in user.
//
// HTTP: GET /api/auth/me → 200 {user}
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), userID(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": user})
}

// HandleValidate only answers if RequireAuth let the request through.
//
// HTTP: GET /api/auth/validate → 200 {valid: true}
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]bool{"valid": true})
}

// userID returns the id of the user RequireAuth put in the context, or "".
// Every route calling it is mounted behind RequireAuth.
func userID(r *http.Request) string {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		return u.ID
	}
	return ""
}
