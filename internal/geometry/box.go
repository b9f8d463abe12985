package geometry

import (
	"encoding/json"
	"fmt"
)

// Box is a detector bounding box in floating-point pixel coordinates.
//
// X1 < X2 and Y1 < Y2 are expected but not enforced; malformed boxes flow
// through IoU and ClusterPoints without error.
type Box struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// Area returns the signed area of the box. Inverted boxes yield a
// non-positive area.
func (b Box) Area() float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Rect truncates the box coordinates toward zero.
func (b Box) Rect() Rect {
	return Rect{X1: int(b.X1), Y1: int(b.Y1), X2: int(b.X2), Y2: int(b.Y2)}
}

// IoU returns the intersection-over-union of two boxes.
//
// The intersection width and height are clamped at zero; the union carries a
// 1e-9 epsilon so two zero-area boxes score 0 instead of dividing by zero.
// IoU(a, b) == IoU(b, a) for all inputs.
func IoU(a, b Box) float64 {
	xx1 := max(a.X1, b.X1)
	yy1 := max(a.Y1, b.Y1)
	xx2 := min(a.X2, b.X2)
	yy2 := min(a.Y2, b.Y2)

	w := max(0, xx2-xx1)
	h := max(0, yy2-yy1)
	inter := w * h

	return inter / (a.Area() + b.Area() - inter + epsilon)
}

// ClusterPoints samples a gridSize x gridSize grid around the box centroid.
//
// The grid spans marginRatio/2 of the box width and height on each side of
// the centroid, so marginRatio 0.3 covers the central 30% of the box. Points
// are truncated to integers and emitted column by column: for each x, every y.
// A zero-area box yields gridSize*gridSize copies of its centroid; a gridSize
// below 1 yields no points.
func ClusterPoints(b Box, gridSize int, marginRatio float64) []Point {
	if gridSize < 1 {
		return nil
	}

	cx := (b.X1 + b.X2) / 2
	cy := (b.Y1 + b.Y2) / 2
	marginX := (b.X2 - b.X1) * marginRatio / 2
	marginY := (b.Y2 - b.Y1) * marginRatio / 2

	xs := linspace(cx-marginX, cx+marginX, gridSize)
	ys := linspace(cy-marginY, cy+marginY, gridSize)

	points := make([]Point, 0, gridSize*gridSize)
	for _, x := range xs {
		for _, y := range ys {
			points = append(points, Point{X: int(x), Y: int(y)})
		}
	}
	return points
}

// linspace returns n evenly spaced samples over [start, stop]. The last
// sample is exactly stop; a single sample is start.
func linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}

	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = float64(i)*step + start
	}
	out[n-1] = stop
	return out
}

// Rect is an integer bounding box, encoded in JSON as [x1, y1, x2, y2].
type Rect struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Box converts the rectangle to a floating-point Box with zero confidence.
func (r Rect) Box() Box {
	return Box{X1: float64(r.X1), Y1: float64(r.Y1), X2: float64(r.X2), Y2: float64(r.Y2)}
}

// Dx returns the rectangle width.
func (r Rect) Dx() int { return r.X2 - r.X1 }

// Dy returns the rectangle height.
func (r Rect) Dy() int { return r.Y2 - r.Y1 }

// MarshalJSON encodes the rectangle as [x1, y1, x2, y2].
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{r.X1, r.Y1, r.X2, r.Y2})
}

// UnmarshalJSON decodes a four element integer array [x1, y1, x2, y2].
func (r *Rect) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("box must be an [x1, y1, x2, y2] integer array: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("box must have exactly 4 coordinates, got %d", len(v))
	}
	r.X1, r.Y1, r.X2, r.Y2 = v[0], v[1], v[2], v[3]
	return nil
}
