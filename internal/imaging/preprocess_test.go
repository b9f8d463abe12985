package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestLowContrast_DarkensMidtones(t *testing.T) {
	img := createInMemoryImage(16, 16, color.RGBA{128, 128, 128, 255})

	out := LowContrast(img, DefaultPreprocessOptions())

	if out.Bounds().Dx() != 16 || out.Bounds().Dy() != 16 {
		t.Fatalf("dimensions: got %v", out.Bounds())
	}

	// (128/255)^(1/0.7)*255 = 95.27
	c := out.RGBAAt(8, 8)
	if c.R < 94 || c.R > 96 || c.G != c.R || c.B != c.R {
		t.Errorf("pixel = %v, want ~95 grey", c)
	}
	if c.A != 255 {
		t.Errorf("alpha = %d, want 255", c.A)
	}
}

func TestLowContrast_Extremes(t *testing.T) {
	black := LowContrast(createInMemoryImage(4, 4, color.Black), DefaultPreprocessOptions())
	white := LowContrast(createInMemoryImage(4, 4, color.White), DefaultPreprocessOptions())

	if c := black.RGBAAt(0, 0); c.R != 0 {
		t.Errorf("black maps to %d, want 0", c.R)
	}
	if c := white.RGBAAt(0, 0); c.R != 255 {
		t.Errorf("white maps to %d, want 255", c.R)
	}
}

func TestEnhance_UniformStaysUniform(t *testing.T) {
	img := createInMemoryImage(64, 48, color.RGBA{90, 110, 130, 255})

	out := Enhance(img, DefaultPreprocessOptions())

	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 48 {
		t.Fatalf("dimensions: got %v", out.Bounds())
	}

	first := out.RGBAAt(0, 0)
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			if c := out.RGBAAt(x, y); c != first {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, c, first)
			}
		}
	}
}

func TestEnhance_StretchesContrast(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(100)
			if x >= 32 {
				v = 120
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}

	out := Enhance(img, PreprocessOptions{ClipLimit: 40, TileGrid: 1, EnhanceGamma: 1.0})

	dark := out.RGBAAt(10, 10).R
	light := out.RGBAAt(50, 10).R
	if int(light)-int(dark) <= 20 {
		t.Errorf("contrast not stretched: dark=%d light=%d", dark, light)
	}
}

func TestEnhance_EmptyImage(t *testing.T) {
	out := Enhance(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultPreprocessOptions())
	if !out.Bounds().Empty() {
		t.Errorf("expected empty result, got %v", out.Bounds())
	}
}

func TestVariants(t *testing.T) {
	img := createEdgeTestImage(40, 30)

	variants := Variants(img, DefaultPreprocessOptions())
	if len(variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(variants))
	}
	for i, v := range variants {
		if v.Bounds().Dx() != 40 || v.Bounds().Dy() != 30 {
			t.Errorf("variant %d dimensions: got %v", i, v.Bounds())
		}
	}
}

func TestClahe_HistogramEqualization(t *testing.T) {
	// One tile and no clipping is plain histogram equalization.
	width, height := 64, 64
	plane := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				plane[y*width+x] = 100
			} else {
				plane[y*width+x] = 140
			}
		}
	}

	out := clahe(plane, width, height, 0, 1)

	if out[0] != 128 {
		t.Errorf("dark half = %d, want 128", out[0])
	}
	if out[width-1] != 255 {
		t.Errorf("light half = %d, want 255", out[width-1])
	}
}

func TestClahe_TinyPlane(t *testing.T) {
	// Fewer pixels than requested tiles must not leave empty tiles.
	plane := []uint8{10, 200, 30, 40, 50, 60}
	out := clahe(plane, 3, 2, 3.0, 8)
	if len(out) != len(plane) {
		t.Fatalf("len = %d, want %d", len(out), len(plane))
	}
}

func TestClipHistogram(t *testing.T) {
	var hist [256]int
	hist[0] = 100
	hist[7] = 5

	clipHistogram(&hist, 10)

	total := 0
	for _, v := range hist {
		total += v
		if v > 11 {
			t.Errorf("bin exceeds limit after redistribution: %d", v)
		}
	}
	if total != 105 {
		t.Errorf("total = %d, want 105", total)
	}
}

func TestNeighbourTiles(t *testing.T) {
	tests := []struct {
		pos        int
		wantA      int
		wantB      int
		wantWeight float64
	}{
		{0, 0, 0, 0},
		{15, 1, 2, 0.05},
		{39, 3, 3, 0},
	}

	for _, tt := range tests {
		a, b, w := neighbourTiles(tt.pos, 10, 4)
		if a != tt.wantA || b != tt.wantB || absFloat(w-tt.wantWeight) > 1e-9 {
			t.Errorf("neighbourTiles(%d) = (%d, %d, %v), want (%d, %d, %v)",
				tt.pos, a, b, w, tt.wantA, tt.wantB, tt.wantWeight)
		}
	}
}
