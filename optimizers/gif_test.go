package optimizers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"os/exec"
	"reflect"
	"testing"
	"time"

	"github.com/amitray007/pare/adapters/tools"
	"github.com/amitray007/pare/core"
)

func TestGifsicleArgs(t *testing.T) {
	tests := []struct {
		quality int
		want    []string
	}{
		{80, []string{"--optimize=3"}},
		{70, []string{"--optimize=3"}},
		{60, []string{"--optimize=3", "--lossy=30", "--colors", "192"}},
		{40, []string{"--optimize=3", "--lossy=80", "--colors", "128"}},
	}
	for _, tt := range tests {
		if got := gifsicleArgs(tt.quality); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("gifsicleArgs(%d): got %v, want %v", tt.quality, got, tt.want)
		}
	}
}

func TestGIFOptimizer_ToolMissingPassesThrough(t *testing.T) {
	runner := tools.NewRunner(time.Second, map[string]string{tools.Gifsicle: "no-such-binary-anywhere"})
	opt := NewGIF(Deps{Tools: runner})

	data := []byte("GIF89a fake payload")
	res, err := opt.Optimize(context.Background(), data, core.DefaultOptimizationConfig())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Method != core.MethodNone || !bytes.Equal(res.Data, data) {
		t.Error("missing tool must yield the input unchanged")
	}
}

func TestGIFOptimizer_WithGifsicle(t *testing.T) {
	if _, err := exec.LookPath("gifsicle"); err != nil {
		t.Skip("gifsicle not installed")
	}

	pal := color.Palette{color.Black, color.White}
	frames := &gif.GIF{}
	for i := 0; i < 3; i++ {
		p := image.NewPaletted(image.Rect(0, 0, 64, 64), pal)
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				p.SetColorIndex(x, y, uint8((x+i)%2))
			}
		}
		frames.Image = append(frames.Image, p)
		frames.Delay = append(frames.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, frames); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	data := buf.Bytes()

	runner := tools.NewRunner(30*time.Second, nil)
	opt := NewGIF(Deps{Tools: runner})
	res, err := opt.Optimize(context.Background(), data, core.OptimizationConfig{Quality: 40, StripMetadata: true})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.OptimizedSize > res.OriginalSize {
		t.Errorf("output larger than input: %d > %d", res.OptimizedSize, res.OriginalSize)
	}
	// Animation must survive: decode and count frames.
	decoded, err := gif.DecodeAll(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode optimized gif: %v", err)
	}
	if len(decoded.Image) != 3 {
		t.Errorf("frame count: got %d, want 3", len(decoded.Image))
	}
}
