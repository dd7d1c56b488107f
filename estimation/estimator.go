package estimation

import (
	"context"
	"net/http"

	"github.com/amitray007/pare/adapters/vips"
	"github.com/amitray007/pare/config"
	"github.com/amitray007/pare/core"
	apperrors "github.com/amitray007/pare/errors"
)

// exactPixelThreshold: below this many pixels a real optimization is cheaper
// than sampling, so the estimate is exact.
const exactPixelThreshold = 150_000

// Fallback reductions when sampling cannot finish inside the budget.
const (
	fallbackLossyReduction    = 30.0
	fallbackLosslessReduction = 5.0
)

// Estimator predicts optimization outcomes.  It shares the optimizer
// registry with the dispatcher but never touches the compression gate:
// estimates must stay cheap and admission-free.
type Estimator struct {
	cfg      config.Config
	registry core.Registry
	vips     *vips.Backend
	client   *http.Client
	log      core.Logger
}

// New creates an Estimator.  vips may be nil; affected strategies then fall
// back to heuristics.
func New(cfg config.Config, reg core.Registry, backend *vips.Backend, log core.Logger) *Estimator {
	return &Estimator{
		cfg:      cfg,
		registry: reg,
		vips:     backend,
		client:   http.DefaultClient,
		log:      log,
	}
}

// SetHTTPClient overrides the client used by the thumbnail helpers.
func (e *Estimator) SetHTTPClient(c *http.Client) { e.client = c }

// Estimate picks a strategy from the header, runs it under the sampling
// budget, and falls back to fixed heuristics when the budget runs out.
//
// Strategy selection: vectors and anything animated or tiny get an exact
// estimate (a real optimization, no gate); raster formats with a production
// encoder get a direct-encode sample; the rest get the generic sample.
func (e *Estimator) Estimate(ctx context.Context, data []byte, ocfg core.OptimizationConfig) (core.Estimate, error) {
	if len(data) == 0 {
		return core.Estimate{}, apperrors.New(apperrors.CategoryInput, "estimate", apperrors.ErrEmptyInput)
	}
	if err := ocfg.Validate(); err != nil {
		return core.Estimate{}, apperrors.Wrap(apperrors.CategoryConfig, "estimate", err)
	}
	format := core.DetectFormat(data)
	if format == core.FormatUnknown {
		return core.Estimate{}, apperrors.New(apperrors.CategoryDetect, "estimate", apperrors.ErrUnsupportedFormat)
	}

	info := AnalyzeHeader(data, format)

	sampleCtx, cancel := context.WithTimeout(ctx, e.cfg.SampleTimeout)
	defer cancel()

	est, err := e.estimateByStrategy(sampleCtx, data, format, info, ocfg)
	if err != nil {
		if e.log != nil {
			e.log.Debug("estimate.fallback", "format", string(format), "error", err.Error())
		}
		return e.heuristicFallback(data, format, info, ocfg), nil
	}
	return est, nil
}

func (e *Estimator) estimateByStrategy(ctx context.Context, data []byte, format core.Format, info HeaderInfo, ocfg core.OptimizationConfig) (core.Estimate, error) {
	switch {
	case format == core.FormatSVG || format == core.FormatSVGZ:
		return e.exact(ctx, data, format, info, ocfg)
	case info.FrameCount > 1:
		return e.exact(ctx, data, format, info, ocfg)
	case info.Dimensions.Width*info.Dimensions.Height > 0 &&
		info.Dimensions.Width*info.Dimensions.Height <= exactPixelThreshold:
		return e.exact(ctx, data, format, info, ocfg)
	}

	var outcome sampleOutcome
	var err error
	switch format {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP, core.FormatAVIF, core.FormatHEIC, core.FormatJXL:
		outcome, err = e.directSample(ctx, data, format, ocfg)
	default:
		outcome, err = e.genericSample(ctx, data, format, ocfg)
	}
	if err != nil {
		return core.Estimate{}, err
	}
	return e.extrapolate(data, format, info, outcome), nil
}

// exact runs the real optimizer and reports its outcome as the estimate.
func (e *Estimator) exact(ctx context.Context, data []byte, format core.Format, info HeaderInfo, ocfg core.OptimizationConfig) (core.Estimate, error) {
	opt, ok := e.registry.OptimizerFor(format)
	if !ok {
		return core.Estimate{}, apperrors.New(apperrors.CategoryEstimate, "estimate.exact",
			apperrors.ErrUnsupportedFormat)
	}
	res, err := opt.Optimize(ctx, data, ocfg)
	if err != nil {
		return core.Estimate{}, err
	}
	return e.finishEstimate(core.Estimate{
		Format:        format,
		OriginalSize:  len(data),
		EstimatedSize: res.OptimizedSize,
		Method:        res.Method,
		Confidence:    core.ConfidenceHigh,
		Dimensions:    info.Dimensions,
		ColorType:     info.ColorType,
		BitDepth:      info.BitDepth,
		FrameCount:    info.FrameCount,
	}), nil
}

// extrapolate scales a sample measurement up to the full image through
// bits-per-pixel, clamped so the estimate never exceeds the original.
func (e *Estimator) extrapolate(data []byte, format core.Format, info HeaderInfo, outcome sampleOutcome) core.Estimate {
	estimated := len(data)
	samplePixels := outcome.dims.Width * outcome.dims.Height
	origPixels := info.Dimensions.Width * info.Dimensions.Height
	if samplePixels > 0 && origPixels > 0 {
		estimated = int(float64(outcome.bytes) * float64(origPixels) / float64(samplePixels))
		if estimated > len(data) {
			estimated = len(data)
		}
	}
	est := core.Estimate{
		Format:           format,
		OriginalSize:     len(data),
		EstimatedSize:    estimated,
		Method:           outcome.method,
		Confidence:       core.ConfidenceHigh,
		Dimensions:       info.Dimensions,
		ColorType:        info.ColorType,
		BitDepth:         info.BitDepth,
		FrameCount:       info.FrameCount,
		AlreadyOptimized: outcome.alreadyOptimized,
	}
	return e.finishEstimate(est)
}

// heuristicFallback answers with fixed reductions when sampling failed or
// timed out: 30% for lossy-leaning configs, 5% for lossless.
func (e *Estimator) heuristicFallback(data []byte, format core.Format, info HeaderInfo, ocfg core.OptimizationConfig) core.Estimate {
	reduction := fallbackLosslessReduction
	if ocfg.Quality < 70 || (format == core.FormatPNG && ocfg.PNGLossy) {
		reduction = fallbackLossyReduction
	}
	estimated := len(data) - int(float64(len(data))*reduction/100)
	est := core.Estimate{
		Format:        format,
		OriginalSize:  len(data),
		EstimatedSize: estimated,
		Method:        defaultMethod(format),
		Confidence:    core.ConfidenceLow,
		Dimensions:    info.Dimensions,
		ColorType:     info.ColorType,
		BitDepth:      info.BitDepth,
		FrameCount:    info.FrameCount,
	}
	return e.finishEstimate(est)
}

// finishEstimate derives the reduction, potential bucket, and the
// already-optimized flag shared by every strategy.
func (e *Estimator) finishEstimate(est core.Estimate) core.Estimate {
	est.EstimatedReductionPercent = core.ReductionPercent(est.OriginalSize, est.EstimatedSize)
	est.Potential = classifyPotential(est.EstimatedReductionPercent)
	if est.EstimatedReductionPercent == 0 {
		est.AlreadyOptimized = true
		est.Method = core.MethodNone
	}
	return est
}

func classifyPotential(reduction float64) core.Potential {
	switch {
	case reduction >= 30:
		return core.PotentialHigh
	case reduction >= 10:
		return core.PotentialMedium
	}
	return core.PotentialLow
}

// defaultMethod labels the pipeline an optimization would take, for
// fallback estimates that never ran one.
func defaultMethod(format core.Format) string {
	switch format {
	case core.FormatPNG, core.FormatAPNG:
		return "oxipng"
	case core.FormatJPEG:
		return "jpegli"
	case core.FormatWebP:
		return "webp"
	case core.FormatGIF:
		return "gifsicle"
	case core.FormatSVG, core.FormatSVGZ:
		return "scour"
	case core.FormatAVIF:
		return "avif-reencode"
	case core.FormatHEIC:
		return "heic-reencode"
	case core.FormatJXL:
		return "jxl-reencode"
	case core.FormatTIFF:
		return "tiff_adobe_deflate"
	case core.FormatBMP:
		return "pillow-bmp"
	}
	return core.MethodNone
}
