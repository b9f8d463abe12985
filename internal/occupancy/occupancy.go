// Package occupancy decides which parking spots are taken.
//
// Every detection is reduced to a small grid of sample points around its
// centre (geometry.ClusterPoints). Each point is tested against the zones in
// order and marks the first zone that contains it. A detection straddling a
// boundary can therefore mark two neighbouring spots; that is expected.
// Once taken, a spot stays taken for the rest of the run.
package occupancy

import (
	"github.com/ironsheep/parkspot-mcp/internal/detection"
	"github.com/ironsheep/parkspot-mcp/internal/geometry"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

// Options shape the sample grid drawn inside each detection box.
type Options struct {
	// GridSize is the number of sample points per axis.
	GridSize int `json:"grid_size"`

	// MarginRatio is the fraction of the box spanned by the grid;
	// 0 collapses it onto the centre, 1 spans the whole box.
	MarginRatio float64 `json:"margin_ratio"`
}

// DefaultOptions returns a 3x3 grid covering the central 30% of each box.
func DefaultOptions() Options {
	return Options{GridSize: 3, MarginRatio: 0.3}
}

// Record is the occupancy of one spot.
type Record struct {
	LotID  int    `json:"lot_id"`
	SpotID string `json:"spot_id"`
	Taken  bool   `json:"taken"`
}

// Compute returns one Record per zone, in zone order.
//
// Zones with fewer than three vertices can never contain a point and are
// reported free. An empty detection list reports every zone free.
func Compute(dets []detection.Detection, zs []zones.Zone, lotID int, opts Options) []Record {
	taken := make([]bool, len(zs))

	for _, det := range dets {
		for _, p := range geometry.ClusterPoints(det.Box.Box(), opts.GridSize, opts.MarginRatio) {
			for i, z := range zs {
				if z.Coords.Contains(p) {
					taken[i] = true
					break
				}
			}
		}
	}

	records := make([]Record, len(zs))
	for i, z := range zs {
		records[i] = Record{LotID: lotID, SpotID: z.SpotID, Taken: taken[i]}
	}
	return records
}

// Summary counts spots.
type Summary struct {
	Total    int `json:"total"`
	Occupied int `json:"occupied"`
}

// Summarize counts total and taken spots in records.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Taken {
			s.Occupied++
		}
	}
	return s
}

// Free returns Total - Occupied.
func (s Summary) Free() int {
	return s.Total - s.Occupied
}
