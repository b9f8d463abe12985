package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ironsheep/parkspot-mcp/internal/detection"
	"github.com/ironsheep/parkspot-mcp/internal/store"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, zones.ErrDataFormat):
		return http.StatusBadRequest
	case errors.Is(err, zones.ErrUnknownLot), errors.Is(err, store.ErrNoSnapshot):
		return http.StatusNotFound
	case errors.Is(err, detection.ErrDetector):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// lotID parses the {lotID} URL parameter.
func lotID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "lotID"))
	return id, err == nil
}
