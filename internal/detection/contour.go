package detection

import (
	"context"
	"image"
	"math"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
	"github.com/ironsheep/parkspot-mcp/internal/imaging"
)

// ContourDetector is an offline Detector that boxes closed edge contours.
//
// It has no notion of what a vehicle looks like. Every sufficiently large,
// roughly rectangular outline is reported as ClassCar, which works for
// overhead shots of lots with plain pavement and is otherwise a stand-in for
// a real model.
type ContourDetector struct {
	// MinArea is the smallest bounding box area in square pixels.
	MinArea int

	// ThresholdLow and ThresholdHigh are the Canny hysteresis thresholds.
	ThresholdLow  int
	ThresholdHigh int
}

// NewContourDetector returns a detector with MinArea 400 and Canny
// thresholds 100/200.
func NewContourDetector() *ContourDetector {
	return &ContourDetector{
		MinArea:       400,
		ThresholdLow:  100,
		ThresholdHigh: 200,
	}
}

// minContourPixels discards tiny edge fragments.
const minContourPixels = 10

// Detect implements Detector.
//
// # Algorithm
//
//  1. Edge map via imaging.EdgeMap
//  2. 8-connected flood fill groups edge pixels into contours
//  3. Each contour's bounding box is kept if its area reaches MinArea
//  4. Confidence is the rectangularity score
//     1 - |contour_pixels - 2*(w+h)| / (2*(w+h)), clamped to [0, 1]
//  5. Boxes below opts.Confidence are dropped and the rest are suppressed
//     with Merge at opts.IoU, mirroring a model's built-in NMS
func (d *ContourDetector) Detect(ctx context.Context, img image.Image, opts Options) ([]geometry.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	edges := imaging.EdgeMap(img, d.ThresholdLow, d.ThresholdHigh)
	contours := traceContours(edges, width, height)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes := make([]geometry.Box, 0)
	for _, contour := range contours {
		minX, minY := width, height
		maxX, maxY := 0, 0
		for _, p := range contour {
			minX = min(minX, p.X)
			minY = min(minY, p.Y)
			maxX = max(maxX, p.X)
			maxY = max(maxY, p.Y)
		}

		boxWidth := maxX - minX
		boxHeight := maxY - minY
		if boxWidth*boxHeight < d.MinArea {
			continue
		}

		perimeter := 2 * (boxWidth + boxHeight)
		rectangularity := 1.0 - math.Abs(float64(len(contour)-perimeter))/float64(perimeter)
		rectangularity = math.Max(0, math.Min(1, rectangularity))
		if rectangularity < opts.Confidence {
			continue
		}

		boxes = append(boxes, geometry.Box{
			X1:         float64(minX + bounds.Min.X),
			Y1:         float64(minY + bounds.Min.Y),
			X2:         float64(maxX + bounds.Min.X),
			Y2:         float64(maxY + bounds.Min.Y),
			Confidence: rectangularity,
			ClassID:    ClassCar,
		})
	}

	return Merge(opts.IoU, boxes), nil
}

// traceContours groups edge pixels into 8-connected components, dropping
// components smaller than minContourPixels.
func traceContours(edges [][]bool, width, height int) [][]geometry.Point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	contours := make([][]geometry.Point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				contour := fillContour(edges, visited, x, y, width, height)
				if len(contour) >= minContourPixels {
					contours = append(contours, contour)
				}
			}
		}
	}
	return contours
}

// fillContour collects the component containing (startX, startY) with an
// explicit stack so large outlines cannot overflow the goroutine stack.
func fillContour(edges, visited [][]bool, startX, startY, width, height int) []geometry.Point {
	var contour []geometry.Point
	stack := []geometry.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		contour = append(contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, geometry.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return contour
}
