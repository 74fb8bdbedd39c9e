package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/service"
)

// ConversationHandler serves the per-project transcript snapshot.
type ConversationHandler struct {
	conversations *service.ConversationService
	errs          *ErrorWriter
}

func NewConversationHandler(conversations *service.ConversationService, errs *ErrorWriter) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, errs: errs}
}

type saveConversationRequest struct {
	ProjectID string           `json:"projectId"`
	Messages  model.Transcript `json:"messages"`
}

// HandleSave: POST /api/conversations {projectId, messages}. The stored
// messages are replaced in full by the array exactly as sent.
func (h *ConversationHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var in saveConversationRequest
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	conv, err := h.conversations.Save(r.Context(), userID(r), in.ProjectID, in.Messages)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, conv)
}

// HandleLoad: GET /api/conversations/{projectId} → {messages}. A project
// with no snapshot yet gets an empty list.
func (h *ConversationHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	messages, err := h.conversations.Load(r.Context(), userID(r), chi.URLParam(r, "projectId"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"messages": messages})
}
