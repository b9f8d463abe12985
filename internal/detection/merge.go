package detection

import (
	"sort"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
)

// Merge deduplicates boxes from any number of detection sets with greedy
// non-max suppression.
//
// All boxes are flattened and ordered by descending confidence (ties keep
// their input order). The highest remaining box is accepted and every other
// remaining box whose IoU with it exceeds iouThreshold is discarded; this
// repeats until nothing remains.
//
// The result is in acceptance order. No two returned boxes overlap by more
// than iouThreshold, and the most confident member of each duplicate cluster
// survives. Merging an already merged set returns it unchanged.
func Merge(iouThreshold float64, sets ...[]geometry.Box) []geometry.Box {
	var remaining []geometry.Box
	for _, set := range sets {
		remaining = append(remaining, set...)
	}
	if len(remaining) == 0 {
		return []geometry.Box{}
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Confidence > remaining[j].Confidence
	})

	picked := make([]geometry.Box, 0, len(remaining))
	for len(remaining) > 0 {
		best := remaining[0]
		picked = append(picked, best)

		keep := remaining[1:1]
		for _, b := range remaining[1:] {
			if geometry.IoU(best, b) <= iouThreshold {
				keep = append(keep, b)
			}
		}
		remaining = keep
	}

	return picked
}
