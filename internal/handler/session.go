package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/service"
)

// SessionHandler serves the session routes, both the ones nested under a
// project and /api/sessions/{id}.
type SessionHandler struct {
	sessions *service.SessionService
	errs     *ErrorWriter
}

func NewSessionHandler(sessions *service.SessionService, errs *ErrorWriter) *SessionHandler {
	return &SessionHandler{sessions: sessions, errs: errs}
}

type createSessionRequest struct {
	Title string `json:"title"`
}

// HandleListForProject: GET /api/projects/{projectId}/sessions
func (h *SessionHandler) HandleListForProject(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListForProject(r.Context(), userID(r), chi.URLParam(r, "projectId"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sessions)
}

// HandleCreate: POST /api/projects/{projectId}/sessions → 201. The body and
// its title are optional.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createSessionRequest
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	sess, err := h.sessions.Create(r.Context(), userID(r), chi.URLParam(r, "projectId"), in.Title)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, sess)
}

// HandleGet: GET /api/sessions/{id}
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sess)
}

// HandleUpdate: PUT /api/sessions/{id}
func (h *SessionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.SessionPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	sess, err := h.sessions.Update(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sess)
}

// HandleDelete: DELETE /api/sessions/{id}
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeMessage(w, "Session deleted successfully")
}
