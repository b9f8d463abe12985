package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// PreprocessOptions controls the two detection variants.
type PreprocessOptions struct {
	// ClipLimit bounds each CLAHE histogram bin at ClipLimit times the
	// average bin height.
	ClipLimit float64 `json:"clip_limit"`

	// TileGrid is the number of CLAHE tiles along each axis.
	TileGrid int `json:"tile_grid"`

	// EnhanceGamma brightens the CLAHE output. Values above 1 lift shadows.
	EnhanceGamma float64 `json:"enhance_gamma"`

	// LowContrastGamma darkens the low-contrast variant. Values below 1
	// pull highlights down so light-coloured cars separate from pavement.
	LowContrastGamma float64 `json:"low_contrast_gamma"`
}

// DefaultPreprocessOptions returns clip limit 3.0 on an 8x8 grid, gamma 1.3
// for the enhanced variant and 0.7 for the low-contrast variant.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		ClipLimit:        3.0,
		TileGrid:         8,
		EnhanceGamma:     1.3,
		LowContrastGamma: 0.7,
	}
}

// Variants returns the enhanced and low-contrast versions of img, in that
// order. Detection runs once per variant.
func Variants(img image.Image, opts PreprocessOptions) []image.Image {
	return []image.Image{
		Enhance(img, opts),
		LowContrast(img, opts),
	}
}

// Enhance equalizes lightness with CLAHE in CIE-Lab space, leaving the a and
// b channels untouched, then applies a gamma curve of opts.EnhanceGamma.
//
// Every channel value v maps to (v/255)^(1/gamma)*255, truncated.
func Enhance(img image.Image, opts PreprocessOptions) *image.RGBA {
	return adjust.Gamma(claheLab(img, opts.ClipLimit, opts.TileGrid), opts.EnhanceGamma)
}

// LowContrast applies a gamma curve of opts.LowContrastGamma to img.
func LowContrast(img image.Image, opts PreprocessOptions) *image.RGBA {
	return adjust.Gamma(img, opts.LowContrastGamma)
}

// claheLab runs CLAHE on the L channel of img and returns the recombined
// image. Alpha is preserved.
func claheLab(img image.Image, clipLimit float64, tileGrid int) *image.NRGBA {
	src := imaging.Clone(img)
	width := src.Bounds().Dx()
	height := src.Bounds().Dy()
	if width == 0 || height == 0 {
		return src
	}

	n := width * height
	lightness := make([]uint8, n)
	aChan := make([]float64, n)
	bChan := make([]float64, n)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*src.Stride + x*4
			c := colorful.Color{
				R: float64(src.Pix[i]) / 255,
				G: float64(src.Pix[i+1]) / 255,
				B: float64(src.Pix[i+2]) / 255,
			}
			l, a, b := c.Lab()
			k := y*width + x
			lightness[k] = uint8(math.Round(math.Max(0, math.Min(1, l)) * 255))
			aChan[k] = a
			bChan[k] = b
		}
	}

	equalized := clahe(lightness, width, height, clipLimit, tileGrid)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			k := y*width + x
			r, g, b := colorful.Lab(float64(equalized[k])/255, aChan[k], bChan[k]).Clamped().RGB255()
			i := y*src.Stride + x*4
			src.Pix[i] = r
			src.Pix[i+1] = g
			src.Pix[i+2] = b
		}
	}
	return src
}

// clahe performs contrast-limited adaptive histogram equalization on an
// 8-bit plane of width*height samples.
//
// The plane is split into at most tileGrid x tileGrid tiles. Each tile gets a
// clipped, redistributed histogram and its own mapping table; every sample is
// then mapped by bilinear interpolation between the four nearest tile
// centres.
func clahe(plane []uint8, width, height int, clipLimit float64, tileGrid int) []uint8 {
	tilesX := max(1, min(tileGrid, width))
	tilesY := max(1, min(tileGrid, height))

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		y0, y1 := ty*height/tilesY, (ty+1)*height/tilesY
		for tx := 0; tx < tilesX; tx++ {
			x0, x1 := tx*width/tilesX, (tx+1)*width/tilesX

			var hist [256]int
			for y := y0; y < y1; y++ {
				for _, v := range plane[y*width+x0 : y*width+x1] {
					hist[v]++
				}
			}

			area := (x1 - x0) * (y1 - y0)
			if clipLimit > 0 {
				clipHistogram(&hist, max(1, int(clipLimit*float64(area)/256)))
			}

			scale := 255.0 / float64(area)
			lut := &luts[ty*tilesX+tx]
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = uint8(min(255, math.Round(float64(sum)*scale)))
			}
		}
	}

	tileW := float64(width) / float64(tilesX)
	tileH := float64(height) / float64(tilesY)

	out := make([]uint8, len(plane))
	for y := 0; y < height; y++ {
		ty0, ty1, wy := neighbourTiles(y, tileH, tilesY)
		for x := 0; x < width; x++ {
			tx0, tx1, wx := neighbourTiles(x, tileW, tilesX)
			v := plane[y*width+x]

			top := (1-wx)*float64(luts[ty0*tilesX+tx0][v]) + wx*float64(luts[ty0*tilesX+tx1][v])
			bottom := (1-wx)*float64(luts[ty1*tilesX+tx0][v]) + wx*float64(luts[ty1*tilesX+tx1][v])
			out[y*width+x] = uint8(min(255, math.Round((1-wy)*top+wy*bottom)))
		}
	}
	return out
}

// clipHistogram caps every bin at limit and spreads the excess over all bins.
func clipHistogram(hist *[256]int, limit int) {
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}

	batch := excess / 256
	residual := excess - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := max(1, 256/residual)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}

// neighbourTiles returns the two tiles whose centres bracket pos along one
// axis and the weight of the second.
func neighbourTiles(pos int, tileSize float64, tiles int) (int, int, float64) {
	f := (float64(pos)+0.5)/tileSize - 0.5
	if f <= 0 {
		return 0, 0, 0
	}
	t0 := int(f)
	if t0 >= tiles-1 {
		return tiles - 1, tiles - 1, 0
	}
	return t0, t0 + 1, f - float64(t0)
}
