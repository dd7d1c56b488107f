package optimizers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/deepteams/webp/mux"

	"github.com/amitray007/pare/adapters/tools"
	"github.com/amitray007/pare/adapters/webpx"
	"github.com/amitray007/pare/core"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func encodeTestWebP(t *testing.T, w, h, quality int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 140, A: 255})
		}
	}
	data, err := webpx.Encode(img, quality)
	if err != nil {
		t.Fatalf("encode webp: %v", err)
	}
	return data
}

// animatedWebP remuxes one still frame twice with durations.
func animatedWebP(t *testing.T, w, h int) []byte {
	t.Helper()
	still := encodeTestWebP(t, w, h, 80)
	d, err := mux.NewDemuxer(still)
	if err != nil {
		t.Fatalf("demux still frame: %v", err)
	}
	frame, err := d.Frame(0)
	if err != nil {
		t.Fatalf("frame 0: %v", err)
	}

	m := mux.NewMuxer()
	m.SetCanvasSize(w, h)
	m.SetLoopCount(0)
	for i := 0; i < 2; i++ {
		if err := m.AddFrame(frame.Data, &mux.FrameOptions{Duration: 100}); err != nil {
			t.Fatalf("add frame: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := m.Assemble(&buf); err != nil {
		t.Fatalf("assemble animation: %v", err)
	}
	return buf.Bytes()
}

func newWebPDeps(t *testing.T) Deps {
	t.Helper()
	// Point cwebp nowhere so every run exercises the in-process codec.
	runner := tools.NewRunner(30*time.Second, map[string]string{tools.Cwebp: "no-such-binary-anywhere"})
	return Deps{Tools: runner}
}

// ── Unit tests ────────────────────────────────────────────────────────────────

func TestWebPOptimizer_StaticReencode(t *testing.T) {
	data := encodeTestWebP(t, 160, 120, 95)
	opt := NewWebP(newWebPDeps(t))

	res, err := opt.Optimize(context.Background(), data, core.OptimizationConfig{Quality: 50, StripMetadata: true})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.OptimizedSize > res.OriginalSize {
		t.Fatalf("output larger than input: %d > %d", res.OptimizedSize, res.OriginalSize)
	}
	if res.Format != core.FormatWebP {
		t.Errorf("format: got %s, want webp", res.Format)
	}
	info, err := webpx.Inspect(res.Data)
	if err != nil {
		t.Fatalf("optimized output no longer parses: %v", err)
	}
	if info.Width != 160 || info.Height != 120 {
		t.Errorf("dimensions changed: got %dx%d, want 160x120", info.Width, info.Height)
	}
	if _, err := webpx.Decode(res.Data); err != nil {
		t.Fatalf("optimized output no longer decodes: %v", err)
	}
}

func TestWebPOptimizer_AnimatedStripOnly(t *testing.T) {
	data := animatedWebP(t, 64, 64)
	opt := NewWebP(newWebPDeps(t))

	res, err := opt.Optimize(context.Background(), data, core.OptimizationConfig{Quality: 40, StripMetadata: true})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.OptimizedSize > res.OriginalSize {
		t.Fatalf("output larger than input: %d > %d", res.OptimizedSize, res.OriginalSize)
	}
	// Frames must never be re-encoded away.
	info, err := webpx.Inspect(res.Data)
	if err != nil {
		t.Fatalf("optimized output no longer parses: %v", err)
	}
	if !info.Animated || info.FrameCount != 2 {
		t.Errorf("animation lost: animated=%v frames=%d, want 2 frames", info.Animated, info.FrameCount)
	}
	if res.Method != core.MethodNone && res.Method != "webp-strip" {
		t.Errorf("method: got %s, want webp-strip or none", res.Method)
	}
}

func TestWebPOptimizer_MaxReductionCap(t *testing.T) {
	// A near-lossless source crushed at quality 40 overshoots a 0.5% cap at
	// every quality, so the cap forces a pass-through.
	data := encodeTestWebP(t, 200, 150, 100)
	opt := NewWebP(newWebPDeps(t))

	limit := 0.5
	res, err := opt.Optimize(context.Background(), data, core.OptimizationConfig{
		Quality:      40,
		MaxReduction: &limit,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.ReductionPercent > limit {
		t.Errorf("reduction %.1f%% exceeds the %.1f%% cap", res.ReductionPercent, limit)
	}
}

func TestWebPOptimizer_GarbagePassesThrough(t *testing.T) {
	data := []byte("RIFF....WEBPgarbage that is not a real container")
	opt := NewWebP(newWebPDeps(t))

	res, err := opt.Optimize(context.Background(), data, core.DefaultOptimizationConfig())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Method != core.MethodNone || !bytes.Equal(res.Data, data) {
		t.Error("unparseable input must yield the original bytes with method none")
	}
}
