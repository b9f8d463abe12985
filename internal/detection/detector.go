package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
)

// ErrDetector is wrapped by every detector failure.
var ErrDetector = errors.New("detector failed")

// Options are the tunable thresholds of a detection call.
type Options struct {
	// Confidence drops boxes scoring below it (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// IoU is the suppression threshold used by the detector and by Merge.
	IoU float64 `json:"iou"`
}

// DefaultOptions returns confidence 0.1 and IoU 0.4.
func DefaultOptions() Options {
	return Options{Confidence: 0.1, IoU: 0.4}
}

// Detector finds objects in a single image.
//
// Implementations return boxes in the image's pixel coordinates and must be
// safe for concurrent use, since Run calls Detect once per variant in
// parallel.
type Detector interface {
	Detect(ctx context.Context, img image.Image, opts Options) ([]geometry.Box, error)
}

// Run detects objects on every variant concurrently, merges the union with
// Merge and labels the survivors.
//
// If any variant fails, Run returns an error wrapping every failure and no
// detections.
func Run(ctx context.Context, d Detector, labels Labels, opts Options, variants ...image.Image) ([]Detection, error) {
	sets := make([][]geometry.Box, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, img := range variants {
		wg.Add(1)
		go func(i int, img image.Image) {
			defer wg.Done()
			boxes, err := d.Detect(ctx, img, opts)
			if err != nil {
				errs[i] = fmt.Errorf("variant %d: %w", i, err)
				return
			}
			sets[i] = boxes
		}(i, img)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := Merge(opts.IoU, sets...)
	return ToDetections(merged, labels), nil
}
