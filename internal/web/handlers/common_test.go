package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ironsheep/parkspot-mcp/internal/detection"
	"github.com/ironsheep/parkspot-mcp/internal/store"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("lot.json: %w", zones.ErrDataFormat), http.StatusBadRequest},
		{fmt.Errorf("%w: 3", zones.ErrUnknownLot), http.StatusNotFound},
		{fmt.Errorf("%w for lot 3", store.ErrNoSnapshot), http.StatusNotFound},
		{fmt.Errorf("detection: variant 1: %w", detection.ErrDetector), http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusTeapot, "short and stout")

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "short and stout" {
		t.Errorf("body = %v", body)
	}
}

func TestLotID(t *testing.T) {
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"lotID": "12"})
	if id, ok := lotID(req); !ok || id != 12 {
		t.Errorf("lotID = %d, %v", id, ok)
	}

	req = requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"lotID": "north"})
	if _, ok := lotID(req); ok {
		t.Error("non-numeric lot id accepted")
	}
}
