package geometry

import (
	"encoding/json"
	"fmt"
)

// epsilon guards the divisions in this package against zero denominators.
const epsilon = 1e-9

// Point is an integer pixel coordinate.
type Point struct {
	X int
	Y int
}

// MarshalJSON encodes the point as a two element array [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON decodes a two element integer array [x, y].
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []int
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point must be an [x, y] integer pair: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have exactly 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Polygon is an ordered list of vertices. The closing edge from the last
// vertex back to the first is implied.
type Polygon []Point

// Contains reports whether p lies inside the polygon. See PointInPolygon.
func (poly Polygon) Contains(p Point) bool {
	return PointInPolygon(p, poly)
}

// Bounds returns the axis-aligned bounding rectangle of the polygon.
// An empty polygon yields the zero Rect.
func (poly Polygon) Bounds() Rect {
	if len(poly) == 0 {
		return Rect{}
	}
	r := Rect{X1: poly[0].X, Y1: poly[0].Y, X2: poly[0].X, Y2: poly[0].Y}
	for _, v := range poly[1:] {
		r.X1 = min(r.X1, v.X)
		r.Y1 = min(r.Y1, v.Y)
		r.X2 = max(r.X2, v.X)
		r.Y2 = max(r.Y2, v.Y)
	}
	return r
}

// PointInPolygon tests membership with the even-odd ray casting rule.
//
// For every edge (i, j) with j the previous vertex, the horizontal ray through
// p crosses the edge when exactly one endpoint lies strictly below p.Y. The
// crossing toggles the result when p.X is left of the edge's x-intercept at
// p.Y. The intercept denominator carries a 1e-9 epsilon so horizontal edges
// never divide by zero.
//
// Polygons with fewer than three distinct vertices contain no points.
func PointInPolygon(p Point, poly Polygon) bool {
	x, y := float64(p.X), float64(p.Y)
	inside := false

	j := len(poly) - 1
	for i := range poly {
		xi, yi := float64(poly[i].X), float64(poly[i].Y)
		xj, yj := float64(poly[j].X), float64(poly[j].Y)
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi+epsilon)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
