package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
)

// OverlayZone is a parking spot outline to draw.
type OverlayZone struct {
	SpotID  string           `json:"spot_id"`
	Polygon geometry.Polygon `json:"coords"`
	Taken   bool             `json:"taken"`
}

// OverlayBox is a detection rectangle to draw, with an optional caption
// such as "car 0.87".
type OverlayBox struct {
	Rect  geometry.Rect `json:"box"`
	Label string        `json:"label,omitempty"`
}

// OverlayOptions selects the colours used by Overlay, as hex strings
// ("#RRGGBB"). Invalid or empty values fall back to the defaults.
type OverlayOptions struct {
	FreeColor  string `json:"free_color"`
	TakenColor string `json:"taken_color"`
	BoxColor   string `json:"box_color"`
}

// DefaultOverlayOptions draws free spots green, taken spots red and
// detections yellow.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{
		FreeColor:  "#00C800",
		TakenColor: "#DC1E1E",
		BoxColor:   "#FFD700",
	}
}

// OverlayResult contains the annotated image.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Zones       int    `json:"zones"`
	Boxes       int    `json:"boxes"`
}

// Overlay renders zone outlines, detection boxes and their labels on a copy
// of img. It is purely presentational; occupancy is decided elsewhere.
func Overlay(img image.Image, zones []OverlayZone, boxes []OverlayBox, opts OverlayOptions) (*OverlayResult, error) {
	defaults := DefaultOverlayOptions()
	freeColor := hexColor(opts.FreeColor, defaults.FreeColor)
	takenColor := hexColor(opts.TakenColor, defaults.TakenColor)
	boxColor := hexColor(opts.BoxColor, defaults.BoxColor)

	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for _, z := range zones {
		c := freeColor
		if z.Taken {
			c = takenColor
		}
		for i := range z.Polygon {
			a := z.Polygon[i]
			b := z.Polygon[(i+1)%len(z.Polygon)]
			drawLine(canvas, a.X, a.Y, b.X, b.Y, c)
		}
		if len(z.Polygon) > 0 {
			r := z.Polygon.Bounds()
			drawLabel(canvas, r.X1+3, r.Y1+3, z.SpotID, c)
		}
	}

	for _, b := range boxes {
		r := b.Rect
		drawLine(canvas, r.X1, r.Y1, r.X2, r.Y1, boxColor)
		drawLine(canvas, r.X2, r.Y1, r.X2, r.Y2, boxColor)
		drawLine(canvas, r.X2, r.Y2, r.X1, r.Y2, boxColor)
		drawLine(canvas, r.X1, r.Y2, r.X1, r.Y1, boxColor)
		if b.Label != "" {
			drawLabel(canvas, r.X1, r.Y1-labelHeight-2, b.Label, boxColor)
		}
	}

	encoded, err := EncodePNG(canvas)
	if err != nil {
		return nil, err
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Zones:       len(zones),
		Boxes:       len(boxes),
	}, nil
}

// hexColor parses s with go-colorful, falling back to def.
func hexColor(s, def string) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		c, _ = colorful.Hex(def)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawLine draws a 2px Bresenham line, clipped to the canvas.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	bounds := img.Bounds()
	plot := func(x, y int) {
		for _, p := range [...]image.Point{{x, y}, {x + 1, y}, {x, y + 1}} {
			if p.In(bounds) {
				img.SetRGBA(p.X, p.Y, c)
			}
		}
	}

	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

const labelHeight = 13

// drawLabel writes text with basicfont on a filled background of colour bg,
// top-left corner at (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, bg color.RGBA) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}

	width := d.MeasureString(text).Ceil()
	box := image.Rect(x-1, y-1, x+width+1, y+labelHeight).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(x, y+face.Ascent)
	d.DrawString(text)
}

// EncodePNG returns img as base64-encoded PNG.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
