package webpx_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/amitray007/pare/adapters/webpx"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 3), B: 160, A: 255})
		}
	}
	return img
}

func TestEncodeInspectDecode(t *testing.T) {
	data, err := webpx.Encode(testImage(80, 60), 75)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	info, err := webpx.Inspect(data)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Width != 80 || info.Height != 60 {
		t.Errorf("dimensions: got %dx%d, want 80x60", info.Width, info.Height)
	}
	if info.Animated {
		t.Error("still image flagged animated")
	}
	if info.HasEXIF || info.HasXMP {
		t.Error("fresh encode carries metadata")
	}

	img, err := webpx.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 80 || img.Bounds().Dy() != 60 {
		t.Errorf("decoded bounds: got %v", img.Bounds())
	}
}

func TestEncodeLossless(t *testing.T) {
	src := testImage(32, 32)
	data, err := webpx.EncodeLossless(src)
	if err != nil {
		t.Fatalf("EncodeLossless: %v", err)
	}
	img, err := webpx.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// Lossless round trip: spot-check pixels survive bit-exact.
	for _, p := range []image.Point{{0, 0}, {15, 7}, {31, 31}} {
		wr, wg, wb, _ := src.At(p.X, p.Y).RGBA()
		gr, gg, gb, _ := img.At(p.X, p.Y).RGBA()
		if wr != gr || wg != gg || wb != gb {
			t.Errorf("pixel %v changed: got (%d,%d,%d), want (%d,%d,%d)", p, gr, gg, gb, wr, wg, wb)
		}
	}
}

func TestStripMetadata_PreservesPixels(t *testing.T) {
	data, err := webpx.Encode(testImage(48, 48), 80)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	stripped, err := webpx.StripMetadata(data)
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	info, err := webpx.Inspect(stripped)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Width != 48 || info.Height != 48 {
		t.Errorf("dimensions: got %dx%d, want 48x48", info.Width, info.Height)
	}
	if info.HasEXIF || info.HasXMP {
		t.Error("metadata survived the re-mux")
	}
	if _, err := webpx.Decode(stripped); err != nil {
		t.Fatalf("stripped output no longer decodes: %v", err)
	}
}

func TestInspect_Garbage(t *testing.T) {
	if _, err := webpx.Inspect([]byte("RIFFxxxxNOTWEBP")); err == nil {
		t.Error("garbage container must error")
	}
}
