package core_test

import (
	"bytes"
	"testing"

	"github.com/amitray007/pare/core"
)

func TestBuildResult_SmallerCandidateWins(t *testing.T) {
	original := bytes.Repeat([]byte{0xAA}, 1000)
	candidate := bytes.Repeat([]byte{0xBB}, 400)

	res := core.BuildResult(original, candidate, core.FormatPNG, "oxipng")
	if !res.Success {
		t.Error("success: got false")
	}
	if res.Method != "oxipng" {
		t.Errorf("method: got %s, want oxipng", res.Method)
	}
	if res.OptimizedSize != 400 {
		t.Errorf("optimized size: got %d, want 400", res.OptimizedSize)
	}
	if res.ReductionPercent != 60.0 {
		t.Errorf("reduction: got %.1f, want 60.0", res.ReductionPercent)
	}
	if res.Message != "" {
		t.Errorf("message: got %q, want empty on a winning candidate", res.Message)
	}
}

func TestBuildResult_OutputNeverLarger(t *testing.T) {
	original := bytes.Repeat([]byte{0xAA}, 100)

	tests := []struct {
		name      string
		candidate []byte
	}{
		{"larger candidate", bytes.Repeat([]byte{0xBB}, 150)},
		{"equal size candidate", bytes.Repeat([]byte{0xBB}, 100)},
		{"nil candidate", nil},
		{"empty candidate", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := core.BuildResult(original, tt.candidate, core.FormatJPEG, "jpegli")
			if res.Method != core.MethodNone {
				t.Errorf("method: got %s, want none", res.Method)
			}
			if !bytes.Equal(res.Data, original) {
				t.Error("data: expected original bytes back")
			}
			if res.OptimizedSize != len(original) {
				t.Errorf("optimized size: got %d, want %d", res.OptimizedSize, len(original))
			}
			if res.ReductionPercent != 0 {
				t.Errorf("reduction: got %.1f, want 0", res.ReductionPercent)
			}
			if res.Message == "" {
				t.Error("message: pass-through results must say why nothing shrank")
			}
		})
	}
}

func TestReductionPercent_Rounding(t *testing.T) {
	tests := []struct {
		original, optimized int
		want                float64
	}{
		{1000, 400, 60.0},
		{3, 2, 33.3},
		{1000, 667, 33.3},
		{1000, 999, 0.1},
		{100, 100, 0},
		{0, 0, 0},
		{0, 50, 0},
	}
	for _, tt := range tests {
		if got := core.ReductionPercent(tt.original, tt.optimized); got != tt.want {
			t.Errorf("ReductionPercent(%d, %d): got %.2f, want %.2f", tt.original, tt.optimized, got, tt.want)
		}
	}
}

func TestOptimizeResult_WriteTo(t *testing.T) {
	res := core.BuildResult([]byte("aaaa"), []byte("aa"), core.FormatSVG, "scour")
	var buf bytes.Buffer
	n, err := res.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != 2 || buf.String() != "aa" {
		t.Errorf("WriteTo: wrote %d bytes %q", n, buf.String())
	}
}
