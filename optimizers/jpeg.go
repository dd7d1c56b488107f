package optimizers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/amitray007/pare/adapters/tools"
	"github.com/amitray007/pare/config"
	"github.com/amitray007/pare/core"
)

// JPEG races an in-process re-encode at the requested quality against a
// lossless jpegtran pass.  The lossy candidate honors the MaxReduction cap
// through a short binary search over quality; jpegtran is never capped.
type JPEG struct {
	deps     Deps
	pipeline config.JPEGEncoder
}

// NewJPEG returns the JPEG optimizer.  pipeline selects the lossy encoder:
// jpegli (in-process, default) or cjpeg (MozJPEG binary).
func NewJPEG(deps Deps, pipeline config.JPEGEncoder) *JPEG {
	if pipeline == "" {
		pipeline = config.EncoderJpegli
	}
	return &JPEG{deps: deps, pipeline: pipeline}
}

func (o *JPEG) Format() core.Format { return core.FormatJPEG }

func (o *JPEG) Optimize(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	clean := data
	if cfg.StripMetadata {
		if stripped, err := StripJPEGMetadata(data); err == nil {
			clean = stripped
		}
	}

	cands := runCandidates(ctx, o.deps.logger(),
		func(ctx context.Context) (candidate, error) {
			return o.lossy(ctx, data, clean, cfg)
		},
		func(ctx context.Context) (candidate, error) {
			return o.jpegtran(ctx, clean, cfg.Progressive)
		},
	)
	return finish(data, core.FormatJPEG, cands), nil
}

// lossy re-encodes at the requested quality, then walks quality upward when
// the reduction overshoots the configured cap.
func (o *JPEG) lossy(ctx context.Context, original, clean []byte, cfg core.OptimizationConfig) (candidate, error) {
	encode, cleanup := o.encoderFor(ctx, clean, cfg.Progressive)
	if encode == nil {
		return candidate{}, fmt.Errorf("jpeg: no lossy encoder available")
	}
	defer cleanup()

	out, method, err := encode(cfg.Quality)
	if err != nil {
		return candidate{}, err
	}
	if cfg.MaxReduction == nil {
		return candidate{data: out, method: method}, nil
	}

	limit := *cfg.MaxReduction
	best := out
	lo, hi := cfg.Quality, 100
	for i := 0; i < 5 && lo <= hi; i++ {
		mid := (lo + hi) / 2
		trial, _, err := encode(mid)
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
		// Even quality 100 overshoots; keep the original.
		return candidate{}, nil
	}
	return candidate{data: best, method: method}, nil
}

// encoderFor binds the configured lossy pipeline to the decoded input and
// returns the encode closure plus a cleanup hook.  A nil encode closure
// means neither pipeline can run.
func (o *JPEG) encoderFor(ctx context.Context, clean []byte, progressive bool) (func(q int) ([]byte, string, error), func()) {
	noop := func() {}

	if o.pipeline == config.EncoderMozJPEG && o.deps.Tools.Available(tools.Cjpeg) {
		img, err := jpeg.Decode(bytes.NewReader(clean))
		if err != nil {
			return nil, noop
		}
		ppm := encodePPM(img)
		return func(q int) ([]byte, string, error) {
			args := []string{"-quality", fmt.Sprint(q), "-optimize"}
			if progressive {
				args = append(args, "-progressive")
			}
			out, _, err := o.deps.Tools.Run(ctx, tools.Cjpeg, args, ppm)
			return out, "mozjpeg", err
		}, noop
	}

	if o.deps.Vips == nil {
		return nil, noop
	}
	im, err := o.deps.Vips.Load(clean)
	if err != nil {
		return nil, noop
	}
	// The byte-level strip already ran, so the export keeps what survived:
	// orientation and the color profile.
	return func(q int) ([]byte, string, error) {
		out, err := im.ExportJPEG(q, progressive, false)
		return out, "jpegli", err
	}, im.Close
}

// jpegtran performs a lossless Huffman-table rebuild.
func (o *JPEG) jpegtran(ctx context.Context, clean []byte, progressive bool) (candidate, error) {
	args := []string{"-optimize", "-copy", "none"}
	if progressive {
		args = append(args, "-progressive")
	}
	out, _, err := o.deps.Tools.Run(ctx, tools.Jpegtran, args, clean)
	if err != nil {
		return candidate{}, err
	}
	return candidate{data: out, method: "jpegtran"}, nil
}

// encodePPM writes a binary P6 PPM, the input format cjpeg reads from stdin.
func encodePPM(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := bytes.NewBuffer(make([]byte, 0, len("P6\n")+w*h*3+32))
	fmt.Fprintf(out, "P6\n%d %d\n255\n", w, h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.Write([]byte{c.R, c.G, c.B})
		}
	}
	return out.Bytes()
}
