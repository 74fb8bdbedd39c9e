package handler

import (
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping() error
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	db          Pinger
	environment string
	now         func() time.Time
}

func NewHealthHandler(db Pinger, environment string) *HealthHandler {
	return &HealthHandler{db: db, environment: environment, now: time.Now}
}

type healthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

// HandleHealth answers 200 {"status":"OK"} while the database responds and
// 503 {"status":"UNAVAILABLE"} otherwise. The body is not wrapped in the API
// envelope.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{
		Status:      "OK",
		Timestamp:   h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Environment: h.environment,
	}
	status := http.StatusOK
	if err := h.db.Ping(); err != nil {
		res.Status = "UNAVAILABLE"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}
