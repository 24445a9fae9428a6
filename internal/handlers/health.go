package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/msgguard/msgguard/internal/risk"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports readiness of the classifier and blocklist.
type HealthHandler struct {
	engine    *risk.Engine
	backend   string
	blocklist Pinger
}

// NewHealthHandler creates a HealthHandler. blocklist may be nil when the
// domain reputation store is disabled.
func NewHealthHandler(engine *risk.Engine, backend string, blocklist Pinger) *HealthHandler {
	return &HealthHandler{engine: engine, backend: backend, blocklist: blocklist}
}

// Ping handles GET /ping.
func (hh *HealthHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("pong"))
}

// Healthz handles GET /healthz. It returns 503 when the text classifier is
// not loaded; an unreachable blocklist only degrades the report.
func (hh *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !hh.engine.HasClassifier() {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	blocklist := "disabled"
	if hh.blocklist != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := hh.blocklist.PingContext(ctx); err != nil {
			blocklist = "unreachable"
			if status == "ok" {
				status = "degraded"
			}
		} else {
			blocklist = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":             status,
		"classifier_backend": hh.backend,
		"classifier_ready":   hh.engine.HasClassifier(),
		"blocklist":          blocklist,
	})
}
