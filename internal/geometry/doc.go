// Package geometry provides the planar primitives used to decide whether a
// detected vehicle sits inside a parking spot.
//
// All coordinates are image pixel coordinates with the origin at the top-left
// corner, X increasing rightward and Y increasing downward.
//
// # Primitives
//
//   - Point: an integer pixel coordinate, encoded in JSON as [x, y]
//   - Polygon: an ordered vertex list (parking zones use four vertices in click order)
//   - Box: a floating-point detector box (x1, y1, x2, y2) with confidence and class id
//   - Rect: an integer box, encoded in JSON as [x1, y1, x2, y2]
//
// # Numeric Conventions
//
// Every division in this package is guarded by a 1e-9 epsilon instead of an
// explicit zero check. Degenerate inputs (zero-area boxes, horizontal polygon
// edges, inverted coordinates) therefore never fail; they produce valid but
// degenerate results such as a cluster of identical points or an IoU of 0.
//
// The epsilon in PointInPolygon biases the crossing test by a negligible
// amount. Points lying exactly on a zone edge are classified by that rule and
// nothing else: for an axis-aligned square the left edge counts as inside and
// the right edge as outside.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package geometry
