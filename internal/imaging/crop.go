package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
)

// CropResult contains the cropped image data
type CropResult struct {
	Region      geometry.Rect `json:"region"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	ImageBase64 string        `json:"image_base64"`
	MimeType    string        `json:"mime_type"`
}

// Crop extracts r from img, optionally resized by scale.
func Crop(img image.Image, r geometry.Rect, scale float64) (*CropResult, error) {
	bounds := img.Bounds()

	if r.X1 < bounds.Min.X || r.Y1 < bounds.Min.Y || r.X2 > bounds.Max.X || r.Y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(r.X1, r.Y1, r.X2, r.Y2))

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	encoded, err := EncodePNG(cropped)
	if err != nil {
		return nil, err
	}

	return &CropResult{
		Region:      r,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// CropZone crops the bounding rectangle of a zone polygon, grown by padding
// pixels on every side and clipped to the image.
func CropZone(img image.Image, poly geometry.Polygon, padding int, scale float64) (*CropResult, error) {
	if len(poly) == 0 {
		return nil, fmt.Errorf("zone has no vertices")
	}

	b := poly.Bounds()
	region := image.Rect(b.X1-padding, b.Y1-padding, b.X2+padding, b.Y2+padding).Intersect(img.Bounds())
	if region.Empty() {
		return nil, fmt.Errorf("zone (%d,%d)-(%d,%d) lies outside the image", b.X1, b.Y1, b.X2, b.Y2)
	}

	return Crop(img, geometry.Rect{
		X1: region.Min.X,
		Y1: region.Min.Y,
		X2: region.Max.X,
		Y2: region.Max.Y,
	}, scale)
}
