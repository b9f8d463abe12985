package handlers

import (
	"context"
	"net/http"

	"github.com/ironsheep/parkspot-mcp/internal/detection"
)

// healthChecker is implemented by detectors that depend on a remote service.
type healthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthHandler reports whether the API and its detector are usable.
type HealthHandler struct {
	detector detection.Detector
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(d detection.Detector) *HealthHandler {
	return &HealthHandler{detector: d}
}

// Check answers 200 when the detector is reachable and 503 otherwise.
// Detectors that run in-process are always reported as "local".
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	hc, ok := h.detector.(healthChecker)
	if !ok {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "detector": "local"})
		return
	}

	if err := hc.CheckHealth(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"detector": "unavailable",
			"error":    err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "detector": "ok"})
}
