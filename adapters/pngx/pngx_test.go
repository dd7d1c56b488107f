package pngx

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	// Fast compression leaves headroom for Recompress to win.
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// withTextChunk splices a tEXt chunk directly after IHDR.
func withTextChunk(t *testing.T, data []byte, keyword, text string) []byte {
	t.Helper()
	out := bytes.NewBuffer(nil)
	out.Write(Signature)
	err := ForEachChunk(data, func(c Chunk) bool {
		writeChunk(out, c.Type, c.Data)
		if c.Type == "IHDR" {
			payload := append([]byte(keyword), 0)
			payload = append(payload, text...)
			writeChunk(out, "tEXt", payload)
		}
		return true
	})
	if err != nil {
		t.Fatalf("splice tEXt: %v", err)
	}
	return out.Bytes()
}

// ── Unit tests ────────────────────────────────────────────────────────────────

func TestForEachChunk_Order(t *testing.T) {
	data := encodePNG(t, 8, 8)
	var types []string
	if err := ForEachChunk(data, func(c Chunk) bool {
		types = append(types, c.Type)
		return true
	}); err != nil {
		t.Fatalf("ForEachChunk: %v", err)
	}
	if types[0] != "IHDR" {
		t.Errorf("first chunk: got %s, want IHDR", types[0])
	}
	if types[len(types)-1] != "IEND" {
		t.Errorf("last chunk: got %s, want IEND", types[len(types)-1])
	}
}

func TestForEachChunk_NotPNG(t *testing.T) {
	if err := ForEachChunk([]byte("nope"), func(Chunk) bool { return true }); err == nil {
		t.Error("expected error for non-png input")
	}
}

func TestForEachChunk_Truncated(t *testing.T) {
	data := encodePNG(t, 8, 8)
	if err := ForEachChunk(data[:len(data)-6], func(Chunk) bool { return true }); err == nil {
		t.Error("expected error for truncated stream")
	}
}

func TestStripText(t *testing.T) {
	clean := encodePNG(t, 16, 16)
	tagged := withTextChunk(t, clean, "Comment", "created with a test")

	if !HasTextChunks(tagged) {
		t.Fatal("HasTextChunks missed the spliced tEXt")
	}
	if HasTextChunks(clean) {
		t.Fatal("HasTextChunks false positive on clean stream")
	}

	stripped, err := StripText(tagged)
	if err != nil {
		t.Fatalf("StripText: %v", err)
	}
	if HasTextChunks(stripped) {
		t.Error("text chunk survived StripText")
	}
	if len(stripped) >= len(tagged) {
		t.Errorf("stripped %d bytes >= tagged %d bytes", len(stripped), len(tagged))
	}
	// Pixel data must be untouched.
	img, err := png.Decode(bytes.NewReader(stripped))
	if err != nil {
		t.Fatalf("decode stripped: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("dimensions: got %v", img.Bounds())
	}
}

func TestRecompress(t *testing.T) {
	data := encodePNG(t, 64, 64)
	out, err := Recompress(data)
	if err != nil {
		t.Fatalf("Recompress: %v", err)
	}
	if len(out) >= len(data) {
		t.Errorf("recompressed %d bytes >= input %d bytes", len(out), len(data))
	}

	orig, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode original: %v", err)
	}
	packed, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode recompressed: %v", err)
	}
	if orig.Bounds() != packed.Bounds() {
		t.Fatalf("bounds changed: %v vs %v", orig.Bounds(), packed.Bounds())
	}
	for y := 0; y < 64; y += 7 {
		for x := 0; x < 64; x += 7 {
			if orig.At(x, y) != packed.At(x, y) {
				t.Fatalf("pixel (%d,%d) changed", x, y)
			}
		}
	}
}

func TestRecompress_NoIDAT(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	buf.Write(Signature)
	writeChunk(buf, "IHDR", make([]byte, 13))
	writeChunk(buf, "IEND", nil)
	if _, err := Recompress(buf.Bytes()); err == nil {
		t.Error("expected error for stream without IDAT")
	}
}
