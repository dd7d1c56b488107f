package optimizers

import (
	"image"
	"image/color"
	"testing"
)

func TestQuantize_ExactPaletteIsLossFree(t *testing.T) {
	colors := []color.NRGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{0, 0, 0, 0},
	}
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, colors[(x+y)%4])
		}
	}

	p := Quantize(img, 16)
	if len(p.Palette) != 4 {
		t.Errorf("palette size: got %d, want 4 exact colors", len(p.Palette))
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			wr, wg, wb, wa := img.At(x, y).RGBA()
			gr, gg, gb, ga := p.At(x, y).RGBA()
			if wr != gr || wg != gg || wb != gb || wa != ga {
				t.Fatalf("pixel (%d,%d) changed under exact palette", x, y)
			}
		}
	}
}

func TestQuantize_MedianCutBoundsPalette(t *testing.T) {
	// A smooth gradient has far more than 256 distinct colors.
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 4), uint8(y * 4), uint8((x + y) * 2), 255})
		}
	}

	for _, maxColors := range []int{16, 64, 256} {
		p := Quantize(img, maxColors)
		if len(p.Palette) > maxColors {
			t.Errorf("maxColors %d: palette has %d entries", maxColors, len(p.Palette))
		}
		if p.Bounds() != img.Bounds() {
			t.Errorf("bounds changed: %v", p.Bounds())
		}
	}
}

func TestQuantize_CapsAt256(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	p := Quantize(img, 1000)
	if len(p.Palette) > 256 {
		t.Errorf("palette size: got %d, want <= 256", len(p.Palette))
	}
}
