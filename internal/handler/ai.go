package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/story-studio/internal/aiproxy"
)

const msgAIFailed = "Failed to get a response from the AI service."

// AIHandler proxies generation requests to the AI service.
type AIHandler struct {
	ai     aiproxy.Generator
	errs   *ErrorWriter
	logger *slog.Logger
}

func NewAIHandler(ai aiproxy.Generator, errs *ErrorWriter, logger *slog.Logger) *AIHandler {
	return &AIHandler{ai: ai, errs: errs, logger: logger}
}

// HandleGenerate forwards the raw request body and relays the reply with its
// content type. Every failure, upstream or local, is the same opaque 500.
//
// HTTP: POST /api/ai/generate
func (h *AIHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("reading AI request body failed", slog.String("error", err.Error()))
		h.errs.internal(w, msgAIFailed, err)
		return
	}

	res, err := h.ai.Generate(r.Context(), body)
	if err != nil {
		h.logger.Error("AI proxy request failed",
			slog.String("userID", userID(r)),
			slog.String("error", err.Error()),
		)
		// Upstream detail stays in the log, even in development.
		h.errs.internal(w, msgAIFailed, nil)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Body); err != nil {
		h.logger.Warn("writing AI response failed", slog.String("error", err.Error()))
	}
}
