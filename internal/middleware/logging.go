// Package middleware holds the HTTP middleware that wraps every route:
// request logging, security headers, CORS, rate limiting and a body size
// cap.
//
// Each one has the shape chi's Use expects:
//
//	func Example(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // before the handler
//	        next.ServeHTTP(w, r)
//	        // after the handler
//	    })
//	}
//
// Constructors that need settings (Logger, CORS, MaxBodySize) return such a
// function instead of being one.
package middleware

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter records the status code and byte count of a response.
// http.ResponseWriter has no getter for either, so the wrapper overrides
// WriteHeader and Write and keeps its own copy; every other method comes
// from the embedded writer.
type responseWriter struct {
	http.ResponseWriter       // embedded: Header and friends pass through
	statusCode          int   // 200 until WriteHeader says otherwise
	written             int64 // body bytes, headers excluded
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets the websocket upgrade take over the connection through this
// wrapper. The logged status of a hijacked request is 101.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("middleware: response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Logger logs one line per request: method, path, status, duration, bytes
// and chi's request id. 5xx responses are logged at Error, 4xx at Warn.
//
// With the JSON handler a line looks like:
//
//	{"level":"WARN","msg":"request completed","method":"GET","path":"/api/projects/x",
//	 "status":404,"duration":312000,"bytes":52,"requestID":"host/abc-000001"}
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
