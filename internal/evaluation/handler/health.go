package handler

import (
	"context"
	"net/http"
	"time"

	"screener/pkg/platform/httputil"
)

// ReadinessCheck probes one dependency for GET /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// WithReadinessCheck adds a dependency probe to GET /readyz.
func WithReadinessCheck(name string, check func(ctx context.Context) error) Option {
	return func(h *Handler) {
		if check != nil {
			h.checks = append(h.checks, ReadinessCheck{Name: name, Check: check})
		}
	}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HandleLive handles GET /healthz. It only reports that the process serves.
func (h *Handler) HandleLive(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady handles GET /readyz. Any failing check makes the instance
// unready.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.checks)),
	}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.WarnContext(ctx, "readiness check failed", "check", c.Name, "error", err)
			resp.Checks[c.Name] = "fail"
			resp.Status = "fail"
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	status := http.StatusOK
	if resp.Status == "fail" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}
