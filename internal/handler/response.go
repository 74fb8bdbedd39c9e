package handler

// Every response shares one envelope:
//
//	{"success": true,  "data": ...}
//	{"success": true,  "message": "Project deleted successfully"}
//	{"success": false, "error": "Project not found"}
//
// Errors from the service layer are mapped to a status in exactly one place,
// ErrorWriter.Write. Anything that is not an *apperror.AppError is logged
// and answered with a generic 500.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/story-studio/internal/apperror"
)

const msgServerError = "Server error"

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	// Stack carries the internal error chain of a 500 outside production.
	Stack string `json:"stack,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are gone already; all that is left is to log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: msg})
}

// ErrorWriter turns errors into error envelopes.
type ErrorWriter struct {
	logger      *slog.Logger
	exposeStack bool
}

// NewErrorWriter returns an ErrorWriter. With exposeStack set, 500 responses
// include the wrapped error text in "stack"; production leaves it off.
func NewErrorWriter(logger *slog.Logger, exposeStack bool) *ErrorWriter {
	return &ErrorWriter{logger: logger, exposeStack: exposeStack}
}

// Write maps err onto a status:
//
//	ErrValidation, ErrConflict → 400
//	ErrUnauthorized            → 401
//	ErrForbidden               → 403
//	ErrNotFound                → 404
//	anything else              → 500 "Server error"
//
// A duplicate email is a 400, not a 409, to match what the frontend expects.
func (ew *ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrConflict):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		}
		if status != http.StatusInternalServerError {
			writeJSON(w, status, Envelope{Error: appErr.Message})
			return
		}
	}

	ew.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("requestID", chimiddleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
	ew.internal(w, msgServerError, err)
}

// internal writes a 500 with msg, plus the error chain when allowed.
func (ew *ErrorWriter) internal(w http.ResponseWriter, msg string, err error) {
	body := Envelope{Error: msg}
	if ew.exposeStack && err != nil {
		body.Stack = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched; malformed or oversized bodies are validation errors.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "Request body too large")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// WriteNotFound answers requests that match no route.
func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Envelope{Error: "Not found - " + r.URL.Path})
}
