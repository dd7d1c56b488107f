package optimizers

import (
	"context"

	"github.com/amitray007/pare/adapters/vips"
	"github.com/amitray007/pare/core"
)

// TIFF decodes once and races recompression schemes: Deflate and LZW always,
// plus JPEG-in-TIFF for continuous-tone input at lower quality requests.
// JPEG-in-TIFF is skipped for alpha-carrying images, which it cannot
// represent losslessly.
type TIFF struct {
	deps Deps
}

// NewTIFF returns the TIFF optimizer.
func NewTIFF(deps Deps) *TIFF { return &TIFF{deps: deps} }

func (o *TIFF) Format() core.Format { return core.FormatTIFF }

func (o *TIFF) Optimize(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	if o.deps.Vips == nil {
		return core.BuildResult(data, nil, core.FormatTIFF, ""), nil
	}
	im, err := o.deps.Vips.Load(data)
	if err != nil {
		o.deps.logger().Debug("optimize.tiff.decode.failed", "error", err.Error())
		return core.BuildResult(data, nil, core.FormatTIFF, ""), nil
	}
	defer im.Close()

	schemes := []vips.TIFFCompression{vips.TIFFDeflate, vips.TIFFLZW}
	if cfg.Quality < 70 && !im.HasAlpha() {
		schemes = append(schemes, vips.TIFFJPEG)
	}

	fns := make([]candidateFunc, 0, len(schemes))
	for _, scheme := range schemes {
		scheme := scheme
		fns = append(fns, func(context.Context) (candidate, error) {
			out, err := im.ExportTIFF(scheme, cfg.Quality)
			return candidate{data: out, method: scheme.Method()}, err
		})
	}
	cands := runCandidates(ctx, o.deps.logger(), fns...)
	return finish(data, core.FormatTIFF, cands), nil
}
