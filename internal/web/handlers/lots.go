package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/ironsheep/parkspot-mcp/internal/imaging"
	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
	"github.com/ironsheep/parkspot-mcp/internal/pipeline"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

// MaxUploadSize bounds the multipart form of a detect request.
const MaxUploadSize = 32 << 20

// Run history page sizes.
const (
	DefaultRunLimit = 20
	MaxRunLimit     = 500
)

// LotsHandler serves zone definitions and occupancy per lot.
type LotsHandler struct {
	runner *pipeline.Runner
	zones  zones.Source
}

// NewLotsHandler creates a new lots handler.
func NewLotsHandler(runner *pipeline.Runner, src zones.Source) *LotsHandler {
	return &LotsHandler{runner: runner, zones: src}
}

// List returns the ids of lots with a stored snapshot.
func (h *LotsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.runner.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "no occupancy store configured")
		return
	}

	ids, err := h.runner.Store.Lots(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string][]int{"lots": ids})
}

// Zones returns the zone definition of a lot.
func (h *LotsHandler) Zones(w http.ResponseWriter, r *http.Request) {
	id, ok := lotID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid lot id")
		return
	}

	lot, err := h.zones.Lot(id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, lot)
}

// Detect runs the pipeline on an uploaded image (multipart field "file"),
// stores the result and posts it to the collector when configured.
func (h *LotsHandler) Detect(w http.ResponseWriter, r *http.Request) {
	id, ok := lotID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid lot id")
		return
	}

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	img, _, err := imaging.Decode(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lot, err := h.zones.Lot(id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	res, err := h.runner.RunImage(r.Context(), img, lot)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	if err := h.runner.Persist(r.Context(), res); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.runner.Publish(r.Context(), res); err != nil {
		log.Printf("lot %d: %v", id, err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Occupancy returns the latest stored snapshot of a lot.
func (h *LotsHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	id, ok := lotID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid lot id")
		return
	}
	if h.runner.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "no occupancy store configured")
		return
	}

	snap, err := h.runner.Store.Latest(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// OccupancyCSV returns the latest stored snapshot as lot_id,spot_id,taken
// rows.
func (h *LotsHandler) OccupancyCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := lotID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid lot id")
		return
	}
	if h.runner.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "no occupancy store configured")
		return
	}

	snap, err := h.runner.Store.Latest(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=lot-%d.csv", id))
	w.WriteHeader(http.StatusOK)
	if err := occupancy.WriteCSV(w, snap.Records); err != nil {
		log.Printf("lot %d: write csv: %v", id, err)
	}
}

// Runs returns the most recent runs of a lot, newest first. The page size
// comes from ?limit=, default DefaultRunLimit.
func (h *LotsHandler) Runs(w http.ResponseWriter, r *http.Request) {
	id, ok := lotID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid lot id")
		return
	}

	limit := DefaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxRunLimit {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", MaxRunLimit))
			return
		}
		limit = n
	}

	if h.runner.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "no occupancy store configured")
		return
	}

	runs, err := h.runner.Store.Runs(r.Context(), id, limit)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, runs)
}
