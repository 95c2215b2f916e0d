package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/videotube/backend/internal/logging"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler responds with service health information.
type HealthHandler struct {
	Checks map[string]Pinger
}

// Check implements GET /api/v1/healthcheck.
func (HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "ok"}, "health check passed")
}

// Ready implements GET /healthz by pinging every registered dependency.
func (h HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.Checks[name].Ping(ctx); err != nil {
			logging.FromContext(ctx).Warn("health check failed", "dependency", name, "error", err)
			checks[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	result := "ok"
	if status != http.StatusOK {
		result = "degraded"
	}
	respondJSON(ctx, w, status, map[string]any{
		"status": result,
		"checks": checks,
	})
}
