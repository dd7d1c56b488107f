package core

import (
	"fmt"
	"strings"

	apperrors "github.com/amitray007/pare/errors"
)

// ── Presets ───────────────────────────────────────────────────────────────────

var (
	errInvalidQuality      = fmt.Errorf("%w: quality must be 1-100", apperrors.ErrInvalidConfig)
	errInvalidMaxReduction = fmt.Errorf("%w: max reduction must be 0-100", apperrors.ErrInvalidConfig)
)

// ConfigForPreset maps a named compression level to a full
// OptimizationConfig.  Names are matched case-insensitively:
//
//	high   -> quality 40, lossy PNG
//	medium -> quality 60, lossy PNG
//	low    -> quality 80, lossless PNG
//
// Unknown names return ErrInvalidPreset.
func ConfigForPreset(name string) (OptimizationConfig, error) {
	cfg := DefaultOptimizationConfig()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "high":
		cfg.Quality = 40
		cfg.PNGLossy = true
	case "medium":
		cfg.Quality = 60
		cfg.PNGLossy = true
	case "low":
		cfg.Quality = 80
		cfg.PNGLossy = false
	default:
		return OptimizationConfig{}, apperrors.Wrap(apperrors.CategoryInput, "preset",
			fmt.Errorf("%w: %q", apperrors.ErrInvalidPreset, name))
	}
	return cfg, nil
}

// ── Shared quality mappings ───────────────────────────────────────────────────
//
// Modern codecs sit on a different perceptual quality curve than JPEG, so the
// request quality shifts up and clamps before reaching their encoders.  The
// estimator uses the same mappings so samples model the real pipeline.

// AVIFQuality maps request quality to the AVIF encoder scale.
func AVIFQuality(q int) int { return clampInt(q+10, 30, 90) }

// HEICQuality maps request quality to the HEIC encoder scale.
func HEICQuality(q int) int { return clampInt(q+10, 30, 90) }

// JXLQuality maps request quality to the JPEG XL encoder scale.
func JXLQuality(q int) int { return clampInt(q+10, 30, 95) }

// WebPMethod is the effort level used for all WebP encodes.
const WebPMethod = 4

// ClampQuality bounds a quality value to the valid 1-100 range.
func ClampQuality(q int) int { return clampInt(q, 1, 100) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
