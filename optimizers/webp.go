package optimizers

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/amitray007/pare/adapters/tools"
	"github.com/amitray007/pare/adapters/webpx"
	"github.com/amitray007/pare/core"
)

// WebP re-encodes static images through the pure-Go codec and falls back to
// the cwebp binary when the in-process result barely improves on the input.
// Animated input is only re-muxed without metadata; frame re-encoding is a
// quality hazard the pipeline deliberately avoids.
type WebP struct {
	deps Deps
}

// NewWebP returns the WebP optimizer.
func NewWebP(deps Deps) *WebP { return &WebP{deps: deps} }

func (o *WebP) Format() core.Format { return core.FormatWebP }

func (o *WebP) Optimize(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	info, err := webpx.Inspect(data)
	if err != nil {
		return core.BuildResult(data, nil, core.FormatWebP, ""), nil
	}

	if info.Animated {
		var out []byte
		if cfg.StripMetadata {
			out, _ = webpx.StripMetadata(data)
		}
		return finish(data, core.FormatWebP, []candidate{{data: out, method: "webp-strip"}}), nil
	}

	img, err := webpx.Decode(data)
	if err != nil {
		return core.BuildResult(data, nil, core.FormatWebP, ""), nil
	}

	inProcess, err := o.encodeCapped(img, data, cfg)
	if err != nil {
		o.deps.logger().Debug("optimize.webp.encode.failed", "error", err.Error())
	}

	cands := []candidate{{data: inProcess, method: "webp"}}
	if cfg.StripMetadata && (info.HasEXIF || info.HasXMP) {
		if stripped, err := webpx.StripMetadata(data); err == nil {
			cands = append(cands, candidate{data: stripped, method: "webp-strip"})
		}
	}

	// cwebp is only worth its temp-file round trip when the in-process
	// encode gained less than 10%.  Capped requests stay in process, where
	// the quality search enforces the limit.
	if cfg.MaxReduction == nil && (len(inProcess) == 0 || len(inProcess) >= len(data)*9/10) {
		if out, err := o.cwebp(ctx, data, cfg.Quality); err == nil {
			cands = append(cands, candidate{data: out, method: "cwebp"})
		}
	}
	return finish(data, core.FormatWebP, cands), nil
}

// encodeCapped encodes at the requested quality, then searches upward when
// the reduction overshoots the MaxReduction cap.
func (o *WebP) encodeCapped(img image.Image, original []byte, cfg core.OptimizationConfig) ([]byte, error) {
	out, err := webpx.Encode(img, cfg.Quality)
	if err != nil || cfg.MaxReduction == nil {
		return out, err
	}
	limit := *cfg.MaxReduction
	best := out
	lo, hi := cfg.Quality, 100
	for i := 0; i < 5 && lo <= hi; i++ {
		mid := (lo + hi) / 2
		trial, err := webpx.Encode(img, mid)
		if err != nil {
			break
		}
		if core.ReductionPercent(len(original), len(trial)) > limit {
			lo = mid + 1
		} else {
			best = trial
			hi = mid - 1
		}
	}
	if core.ReductionPercent(len(original), len(best)) > limit {
		return nil, nil
	}
	return best, nil
}

// cwebp shells out to the reference encoder.  cwebp cannot stream, so this
// is the one pipeline that touches the filesystem.
func (o *WebP) cwebp(ctx context.Context, data []byte, quality int) ([]byte, error) {
	if !o.deps.Tools.Available(tools.Cwebp) {
		return nil, fmt.Errorf("webp: cwebp unavailable")
	}
	dir, err := os.MkdirTemp("", "pare-webp-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.webp")
	out := filepath.Join(dir, "out.webp")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}
	args := []string{"-q", fmt.Sprint(quality), "-m", fmt.Sprint(core.WebPMethod), "-mt", in, "-o", out}
	if _, _, err := o.deps.Tools.Run(ctx, tools.Cwebp, args, nil); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}
