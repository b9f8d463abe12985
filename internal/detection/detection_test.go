package detection

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
)

func TestLabelsName(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{0, "person"},
		{ClassCar, "car"},
		{7, "truck"},
		{79, "toothbrush"},
		{80, "unknown"},
		{-1, "unknown"},
	}

	for _, tt := range tests {
		if got := COCOLabels.Name(tt.id); got != tt.want {
			t.Errorf("Name(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}

	if len(COCOLabels) != 80 {
		t.Errorf("COCO table has %d labels, want 80", len(COCOLabels))
	}
}

func TestNewDetection(t *testing.T) {
	d := NewDetection(geometry.Box{X1: 10.7, Y1: 20.2, X2: 99.9, Y2: 50.5, Confidence: 0.8765, ClassID: 2}, COCOLabels)

	if d.Class != "car" {
		t.Errorf("Class = %q, want car", d.Class)
	}
	if d.Confidence != 0.88 {
		t.Errorf("Confidence = %v, want 0.88", d.Confidence)
	}
	if d.Box != (geometry.Rect{X1: 10, Y1: 20, X2: 99, Y2: 50}) {
		t.Errorf("Box = %+v, want truncated", d.Box)
	}
}

func TestDetectionJSON(t *testing.T) {
	d := Detection{Class: "car", ClassID: 2, Confidence: 0.5, Box: geometry.Rect{X1: 1, Y1: 2, X2: 3, Y2: 4}}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"class":"car","class_id":2,"confidence":0.5,"box":[1,2,3,4]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

// stubDetector returns canned boxes per call, keyed by image width.
type stubDetector struct {
	byWidth map[int][]geometry.Box
	failOn  int
	calls   atomic.Int32
}

func (s *stubDetector) Detect(_ context.Context, img image.Image, _ Options) ([]geometry.Box, error) {
	s.calls.Add(1)
	w := img.Bounds().Dx()
	if w == s.failOn {
		return nil, errors.Join(ErrDetector, errors.New("model crashed"))
	}
	return s.byWidth[w], nil
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestRun_MergesVariants(t *testing.T) {
	d := &stubDetector{byWidth: map[int][]geometry.Box{
		10: {box(0, 0, 100, 50, 0.62)},
		11: {box(1, 1, 100, 50, 0.91), box(200, 0, 300, 50, 0.4)},
	}}

	got, err := Run(context.Background(), d, COCOLabels, DefaultOptions(), blank(10, 10), blank(11, 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if d.calls.Load() != 2 {
		t.Errorf("detector called %d times, want 2", d.calls.Load())
	}
	if len(got) != 2 {
		t.Fatalf("got %d detections, want 2", len(got))
	}
	if got[0].Confidence != 0.91 || got[0].Box != (geometry.Rect{X1: 1, Y1: 1, X2: 100, Y2: 50}) {
		t.Errorf("first detection = %+v", got[0])
	}
	if got[1].Class != "car" {
		t.Errorf("second detection class = %q", got[1].Class)
	}
}

func TestRun_VariantFailure(t *testing.T) {
	d := &stubDetector{
		byWidth: map[int][]geometry.Box{10: {box(0, 0, 100, 50, 0.62)}},
		failOn:  11,
	}

	got, err := Run(context.Background(), d, COCOLabels, DefaultOptions(), blank(10, 10), blank(11, 10))
	if err == nil {
		t.Fatal("expected error when one variant fails")
	}
	if !errors.Is(err, ErrDetector) {
		t.Errorf("error %v does not wrap ErrDetector", err)
	}
	if !strings.Contains(err.Error(), "variant 1") {
		t.Errorf("error %q should name the failing variant", err)
	}
	if got != nil {
		t.Errorf("expected no detections on failure, got %v", got)
	}
}

func TestRun_NoDetections(t *testing.T) {
	d := &stubDetector{byWidth: map[int][]geometry.Box{}}

	got, err := Run(context.Background(), d, COCOLabels, DefaultOptions(), blank(10, 10), blank(11, 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Confidence != 0.1 || opts.IoU != 0.4 {
		t.Errorf("DefaultOptions = %+v, want {0.1 0.4}", opts)
	}
}
