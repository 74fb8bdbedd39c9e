package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/story-studio/internal/service"
)

// MessageHandler serves /api/sessions/{sessionId}/messages.
type MessageHandler struct {
	messages *service.MessageService
	errs     *ErrorWriter
}

func NewMessageHandler(messages *service.MessageService, errs *ErrorWriter) *MessageHandler {
	return &MessageHandler{messages: messages, errs: errs}
}

func (h *MessageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messages.List(r.Context(), userID(r), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, messages)
}

// HandleAppend answers 201 with the stored message.
func (h *MessageHandler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	var in service.AppendMessageInput
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	msg, err := h.messages.Append(r.Context(), userID(r), chi.URLParam(r, "sessionId"), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, msg)
}
