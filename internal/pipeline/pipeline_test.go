package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsheep/parkspot-mcp/internal/detection"
	"github.com/ironsheep/parkspot-mcp/internal/geometry"
	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
	"github.com/ironsheep/parkspot-mcp/internal/report"
	"github.com/ironsheep/parkspot-mcp/internal/store"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

// fixedDetector returns the same boxes for every variant.
type fixedDetector struct {
	boxes []geometry.Box
	err   error
	calls atomic.Int32
}

func (d *fixedDetector) Detect(ctx context.Context, img image.Image, opts detection.Options) ([]geometry.Box, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.boxes, nil
}

func square(x, y, size int) geometry.Polygon {
	return geometry.Polygon{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

func twoSpotLot() *zones.Lot {
	return &zones.Lot{
		LotID: 7,
		Zones: []zones.Zone{
			{SpotID: "A1", Coords: square(0, 0, 10)},
			{SpotID: "A2", Coords: square(100, 100, 10)},
		},
	}
}

func grayImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{90, 90, 90, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lot.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func carDetector() *fixedDetector {
	return &fixedDetector{boxes: []geometry.Box{{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: 0.9, ClassID: detection.ClassCar}}}
}

func TestRunImage(t *testing.T) {
	d := carDetector()
	r := New(d)

	res, err := r.RunImage(context.Background(), grayImage(120, 120), twoSpotLot())
	if err != nil {
		t.Fatalf("RunImage failed: %v", err)
	}

	if got := d.calls.Load(); got != 2 {
		t.Errorf("detector called %d times, want once per variant", got)
	}
	// Both variants see the same car; the merge keeps one.
	if len(res.Detections) != 1 || res.Detections[0].Class != "car" {
		t.Errorf("Detections = %+v", res.Detections)
	}

	want := []occupancy.Record{
		{LotID: 7, SpotID: "A1", Taken: true},
		{LotID: 7, SpotID: "A2", Taken: false},
	}
	if len(res.Records) != len(want) {
		t.Fatalf("got %d records, want %d", len(res.Records), len(want))
	}
	for i := range want {
		if res.Records[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, res.Records[i], want[i])
		}
	}
	if res.Summary != (occupancy.Summary{Total: 2, Occupied: 1}) {
		t.Errorf("Summary = %+v", res.Summary)
	}
	if res.RunID == "" || res.LotID != 7 || res.CreatedAt.IsZero() {
		t.Errorf("run metadata = %q %d %v", res.RunID, res.LotID, res.CreatedAt)
	}
}

func TestRunImage_NoDetections(t *testing.T) {
	r := New(&fixedDetector{})

	res, err := r.RunImage(context.Background(), grayImage(50, 50), twoSpotLot())
	if err != nil {
		t.Fatalf("RunImage failed: %v", err)
	}
	for _, rec := range res.Records {
		if rec.Taken {
			t.Errorf("spot %s taken without detections", rec.SpotID)
		}
	}
}

func TestRunImage_InvalidLot(t *testing.T) {
	d := carDetector()
	r := New(d)

	tests := []struct {
		name string
		lot  *zones.Lot
	}{
		{"nil", nil},
		{"no zones", &zones.Lot{LotID: 1}},
		{"triangle", &zones.Lot{LotID: 1, Zones: []zones.Zone{{SpotID: "x", Coords: square(0, 0, 5)[:3]}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.RunImage(context.Background(), grayImage(20, 20), tt.lot)
			if !errors.Is(err, zones.ErrDataFormat) {
				t.Errorf("error = %v, want ErrDataFormat", err)
			}
		})
	}
	if d.calls.Load() != 0 {
		t.Error("detector must not run for an invalid lot")
	}
}

func TestRunImage_DetectorFailure(t *testing.T) {
	r := New(&fixedDetector{err: detection.ErrDetector})

	res, err := r.RunImage(context.Background(), grayImage(20, 20), twoSpotLot())
	if !errors.Is(err, detection.ErrDetector) {
		t.Errorf("error = %v, want ErrDetector", err)
	}
	if res != nil {
		t.Error("failed run must not return records")
	}
}

func TestRun_FromFile(t *testing.T) {
	path := writePNG(t, grayImage(120, 80))
	r := New(carDetector())

	res, err := r.Run(context.Background(), path, twoSpotLot())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Image == nil || res.Image.Width != 120 || res.Image.Height != 80 || res.Image.Format != "png" {
		t.Errorf("Image = %+v", res.Image)
	}
	if r.Cache.Len() != 1 {
		t.Errorf("cache holds %d images, want 1", r.Cache.Len())
	}

	if _, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "none.png"), twoSpotLot()); err == nil {
		t.Error("missing image should fail")
	}
}

func TestDeliver(t *testing.T) {
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		data, _ := io.ReadAll(req.Body)
		body.Store(string(data))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := store.Open(filepath.Join(t.TempDir(), "parkspot.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r := New(carDetector())
	r.Store = s
	r.Reporter = report.NewClient(srv.URL, time.Second)

	ctx := context.Background()
	res, err := r.RunImage(ctx, grayImage(120, 120), twoSpotLot())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Deliver(ctx, res); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	snap, err := s.Latest(ctx, 7)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if snap.RunID != res.RunID || len(snap.Records) != 2 || !snap.Records[0].Taken {
		t.Errorf("snapshot = %+v", snap)
	}
	if got, _ := body.Load().(string); got != "lot_id,spot_id,taken\n7,A1,true\n7,A2,false\n" {
		t.Errorf("reported body = %q", got)
	}
}

func TestDeliver_NoSinks(t *testing.T) {
	r := New(carDetector())
	res := &Result{RunID: "r", LotID: 1}
	if err := r.Deliver(context.Background(), res); err != nil {
		t.Errorf("Deliver without sinks = %v", err)
	}
}

func TestDeliver_ReportFailureStillPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := store.Open(filepath.Join(t.TempDir(), "parkspot.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r := New(carDetector())
	r.Store = s
	r.Reporter = report.NewClient(srv.URL, time.Second)

	ctx := context.Background()
	res, err := r.RunImage(ctx, grayImage(120, 120), twoSpotLot())
	if err != nil {
		t.Fatal(err)
	}

	err = r.Deliver(ctx, res)
	if err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Errorf("error = %v, want report status", err)
	}
	if _, err := s.Latest(ctx, 7); err != nil {
		t.Errorf("snapshot missing after report failure: %v", err)
	}
}

func TestLabelTable(t *testing.T) {
	if got := (&Runner{}).LabelTable(); len(got) != len(detection.COCOLabels) || got.Name(detection.ClassCar) != "car" {
		t.Errorf("zero Runner labels = %d entries, want the COCO table", len(got))
	}
	custom := detection.Labels{"bike", "car"}
	if got := (&Runner{Labels: custom}).LabelTable(); got.Name(1) != "car" || len(got) != 2 {
		t.Errorf("custom labels = %v", got)
	}
}
