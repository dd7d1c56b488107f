package optimizers

import (
	"context"
	"fmt"

	"github.com/amitray007/pare/adapters/pngx"
	"github.com/amitray007/pare/adapters/tools"
	"github.com/amitray007/pare/core"
)

// pngquant exits with 99 when the quantized result would fall below the
// requested quality floor; the candidate is discarded, not an error.
const pngquantQualityTooLow = 99

// PNG compresses PNG and APNG input.  Static lossy input races pngquant
// (followed by a lossless pass) against oxipng alone; animated or
// lossless-only input takes the oxipng path, which preserves frame chunks.
type PNG struct {
	deps     Deps
	animated bool
}

// NewPNG returns the static-PNG optimizer.
func NewPNG(deps Deps) *PNG { return &PNG{deps: deps} }

// NewAPNG returns the animated-PNG optimizer: identical pipeline with the
// quantization pass disabled, since pngquant would flatten frames.
func NewAPNG(deps Deps) *PNG { return &PNG{deps: deps, animated: true} }

func (o *PNG) Format() core.Format {
	if o.animated {
		return core.FormatAPNG
	}
	return core.FormatPNG
}

func (o *PNG) Optimize(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	clean := data
	if cfg.StripMetadata {
		clean = StripPNGMetadata(data)
	}

	if o.animated || !cfg.PNGLossy {
		out := o.lossless(ctx, clean, cfg)
		return finish(data, o.Format(), []candidate{{data: out, method: "oxipng"}}), nil
	}

	cands := runCandidates(ctx, o.deps.logger(),
		func(ctx context.Context) (candidate, error) {
			quantized, err := o.quantize(ctx, clean, cfg.Quality)
			if err != nil || quantized == nil {
				return candidate{}, err
			}
			return candidate{data: o.lossless(ctx, quantized, cfg), method: "pngquant + oxipng"}, nil
		},
		func(ctx context.Context) (candidate, error) {
			return candidate{data: o.lossless(ctx, clean, cfg), method: "oxipng"}, nil
		},
	)
	return finish(data, o.Format(), cands), nil
}

// quantize runs pngquant over stdio.  The quality window reaches 15 points
// below the request so the quantizer has room to hit the floor.  A nil
// return with nil error means pngquant declined (exit 99).
func (o *PNG) quantize(ctx context.Context, data []byte, quality int) ([]byte, error) {
	floor := quality - 15
	if floor < 1 {
		floor = 1
	}
	args := []string{fmt.Sprintf("--quality=%d-%d", floor, quality)}
	if quality < 50 {
		args = append(args, "--speed", "3")
	}
	args = append(args, "-")
	out, code, err := o.deps.Tools.Run(ctx, tools.Pngquant, args, data, pngquantQualityTooLow)
	if err != nil {
		return nil, err
	}
	if code == pngquantQualityTooLow {
		return nil, nil
	}
	return out, nil
}

// lossless runs oxipng when available, trying harder at lower quality
// requests, and falls back to the in-process IDAT recompressor otherwise.
// Failure of either path returns the input unchanged.  Chunk stripping only
// happens when the caller asked for it.
func (o *PNG) lossless(ctx context.Context, data []byte, cfg core.OptimizationConfig) []byte {
	if o.deps.Tools.Available(tools.Oxipng) {
		level := "2"
		switch {
		case cfg.Quality < 50:
			level = "6"
		case cfg.Quality < 70:
			level = "4"
		}
		args := []string{"-o", level}
		if cfg.StripMetadata {
			args = append(args, "--strip", "safe")
		}
		args = append(args, "--stdout", "-")
		out, _, err := o.deps.Tools.Run(ctx, tools.Oxipng, args, data)
		if err == nil && len(out) > 0 {
			return out
		}
		o.deps.logger().Debug("optimize.png.oxipng.failed", "error", errString(err))
	}
	out, err := pngx.Recompress(data)
	if err != nil || len(out) >= len(data) {
		return data
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
