package core_test

import (
	"errors"
	"testing"

	"github.com/amitray007/pare/core"
	apperrors "github.com/amitray007/pare/errors"
)

func TestConfigForPreset(t *testing.T) {
	tests := []struct {
		name     string
		quality  int
		pngLossy bool
	}{
		{"high", 40, true},
		{"medium", 60, true},
		{"low", 80, false},
		{"HIGH", 40, true},
		{"  Medium ", 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := core.ConfigForPreset(tt.name)
			if err != nil {
				t.Fatalf("ConfigForPreset: %v", err)
			}
			if cfg.Quality != tt.quality {
				t.Errorf("quality: got %d, want %d", cfg.Quality, tt.quality)
			}
			if cfg.PNGLossy != tt.pngLossy {
				t.Errorf("png lossy: got %v, want %v", cfg.PNGLossy, tt.pngLossy)
			}
			if !cfg.StripMetadata {
				t.Error("presets must keep metadata stripping enabled")
			}
		})
	}
}

func TestConfigForPreset_Invalid(t *testing.T) {
	for _, name := range []string{"", "ultra", "medium-rare"} {
		if _, err := core.ConfigForPreset(name); !errors.Is(err, apperrors.ErrInvalidPreset) {
			t.Errorf("preset %q: expected ErrInvalidPreset, got %v", name, err)
		}
	}
}

func TestQualityMappings(t *testing.T) {
	tests := []struct {
		name string
		fn   func(int) int
		in   int
		want int
	}{
		{"avif mid", core.AVIFQuality, 60, 70},
		{"avif floor", core.AVIFQuality, 1, 30},
		{"avif ceiling", core.AVIFQuality, 95, 90},
		{"heic mid", core.HEICQuality, 60, 70},
		{"jxl ceiling", core.JXLQuality, 90, 95},
		{"jxl floor", core.JXLQuality, 5, 30},
		{"clamp low", core.ClampQuality, 0, 1},
		{"clamp high", core.ClampQuality, 150, 100},
		{"clamp pass", core.ClampQuality, 80, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOptimizationConfigValidate(t *testing.T) {
	cfg := core.DefaultOptimizationConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.Quality = 0
	if err := cfg.Validate(); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("quality 0: expected ErrInvalidConfig, got %v", err)
	}

	cfg = core.DefaultOptimizationConfig()
	bad := 120.0
	cfg.MaxReduction = &bad
	if err := cfg.Validate(); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("max reduction 120: expected ErrInvalidConfig, got %v", err)
	}

	cfg = core.DefaultOptimizationConfig()
	ok := 40.0
	cfg.MaxReduction = &ok
	if err := cfg.Validate(); err != nil {
		t.Errorf("max reduction 40: %v", err)
	}
}
