package handler

import (
	"context"
	"net/http"
	"time"
)

// Check is one dependency probed by /ready.
type Check struct {
	ID       string
	Name     string
	Degraded time.Duration // latency above this reports degraded
	Required bool          // a failing required check fails readiness
	Ping     func(ctx context.Context) error
}

type SystemHandler struct {
	checks    []Check
	logger    Logger
	startTime time.Time
}

func NewSystemHandler(log Logger, checks ...Check) *SystemHandler {
	return &SystemHandler{
		checks:    checks,
		logger:    log,
		startTime: time.Now(),
	}
}

type ServiceStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"` // operational, degraded, outage
	LastUpdated string `json:"lastUpdated"`
	LatencyMs   int64  `json:"latency_ms"`
}

type SystemStatusResponse struct {
	Status        string          `json:"status"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Services      []ServiceStatus `json:"services"`
}

// Health reports liveness only.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

// Ready probes every dependency. It answers 503 when a required one is down.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := SystemStatusResponse{
		Status:        "ready",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Services:      make([]ServiceStatus, 0, len(h.checks)),
	}
	code := http.StatusOK

	for _, c := range h.checks {
		start := time.Now()
		err := c.Ping(ctx)
		latency := time.Since(start)

		status := "operational"
		switch {
		case err != nil:
			status = "outage"
			h.logger.Error("Dependency check failed", map[string]interface{}{
				"dependency": c.ID,
				"error":      err.Error(),
			})
			if c.Required {
				resp.Status = "not_ready"
				code = http.StatusServiceUnavailable
			}
		case c.Degraded > 0 && latency > c.Degraded:
			status = "degraded"
		}

		resp.Services = append(resp.Services, ServiceStatus{
			ID:          c.ID,
			Name:        c.Name,
			Status:      status,
			LastUpdated: time.Now().Format(time.RFC3339),
			LatencyMs:   latency.Milliseconds(),
		})
	}

	respondJSON(w, code, resp)
}
