// Package pipeline runs one lot photograph end to end: preprocessing,
// detection on both variants, merge, occupancy resolution, then optional
// persistence and reporting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/parkspot-mcp/internal/detection"
	"github.com/ironsheep/parkspot-mcp/internal/imaging"
	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
	"github.com/ironsheep/parkspot-mcp/internal/report"
	"github.com/ironsheep/parkspot-mcp/internal/store"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

// Runner owns the detector and the optional sinks of a run. A Runner is
// built once and shared; it holds no per-run state.
type Runner struct {
	Detector   detection.Detector
	Labels     detection.Labels
	Detection  detection.Options
	Preprocess imaging.PreprocessOptions
	Occupancy  occupancy.Options

	// Cache is used by Run to load images by path. Nil means a private cache.
	Cache *imaging.ImageCache

	// Store and Reporter are optional.
	Store    *store.Store
	Reporter *report.Client

	Debug bool
}

// New creates a Runner with default thresholds and the COCO label table.
func New(d detection.Detector) *Runner {
	return &Runner{
		Detector:   d,
		Labels:     detection.COCOLabels,
		Detection:  detection.DefaultOptions(),
		Preprocess: imaging.DefaultPreprocessOptions(),
		Occupancy:  occupancy.DefaultOptions(),
		Cache:      imaging.NewImageCache(),
	}
}

// Result is the outcome of one run.
type Result struct {
	RunID      string                `json:"run_id"`
	LotID      int                   `json:"lot_id"`
	Image      *imaging.ImageInfo    `json:"image,omitempty"`
	Detections []detection.Detection `json:"detections"`
	Records    []occupancy.Record    `json:"records"`
	Summary    occupancy.Summary     `json:"summary"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Run loads the image at path and resolves it against lot.
func (r *Runner) Run(ctx context.Context, path string, lot *zones.Lot) (*Result, error) {
	cache := r.Cache
	if cache == nil {
		cache = imaging.NewImageCache()
	}

	info, err := imaging.LoadImageInfo(cache, path)
	if err != nil {
		return nil, err
	}
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	r.debugf("%s: %dx%d, %d images cached", path, info.Width, info.Height, cache.Len())

	res, err := r.RunImage(ctx, img, lot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Image = info
	return res, nil
}

// RunImage resolves an already decoded image against lot. The lot is
// validated first; an invalid zone definition never reaches the resolver.
func (r *Runner) RunImage(ctx context.Context, img image.Image, lot *zones.Lot) (*Result, error) {
	if lot == nil {
		return nil, fmt.Errorf("%w: no zone definition", zones.ErrDataFormat)
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	variants := imaging.Variants(img, r.Preprocess)
	r.debugf("lot %d: %d variants prepared in %v", lot.LotID, len(variants), time.Since(start))

	dets, err := detection.Run(ctx, r.Detector, r.LabelTable(), r.Detection, variants...)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}
	r.debugf("lot %d: %d detections after merge", lot.LotID, len(dets))

	records := occupancy.Compute(dets, lot.Zones, lot.LotID, r.Occupancy)
	return &Result{
		RunID:      uuid.New().String(),
		LotID:      lot.LotID,
		Detections: dets,
		Records:    records,
		Summary:    occupancy.Summarize(records),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Persist stores res as the lot's latest snapshot. It is a no-op without a
// store.
func (r *Runner) Persist(ctx context.Context, res *Result) error {
	if r.Store == nil {
		return nil
	}
	run := store.Run{
		ID:         res.RunID,
		LotID:      res.LotID,
		Summary:    res.Summary,
		Detections: len(res.Detections),
		CreatedAt:  res.CreatedAt,
	}
	if err := r.Store.SaveRun(ctx, run, res.Records); err != nil {
		return fmt.Errorf("persist run %s: %w", res.RunID, err)
	}
	r.debugf("run %s persisted", res.RunID)
	return nil
}

// Publish posts res to the collector. It is a no-op without a reporter.
func (r *Runner) Publish(ctx context.Context, res *Result) error {
	if r.Reporter == nil {
		return nil
	}
	if err := r.Reporter.Post(ctx, res.Records); err != nil {
		return fmt.Errorf("report run %s: %w", res.RunID, err)
	}
	r.debugf("run %s reported to %s", res.RunID, r.Reporter.URL())
	return nil
}

// Deliver persists and publishes res. Both sinks are attempted; their
// errors are joined.
func (r *Runner) Deliver(ctx context.Context, res *Result) error {
	return errors.Join(r.Persist(ctx, res), r.Publish(ctx, res))
}

// LabelTable returns Labels, or the COCO table when none is set.
func (r *Runner) LabelTable() detection.Labels {
	if r.Labels == nil {
		return detection.COCOLabels
	}
	return r.Labels
}

func (r *Runner) debugf(format string, args ...any) {
	if r.Debug {
		log.Printf("[DEBUG] "+format, args...)
	}
}
