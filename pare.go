// Package pare is an image compression toolkit: per-format optimizers
// behind a single gated entry point, plus a fast estimator that predicts
// savings without running a full optimization.
package pare

import (
	"context"
	"io"

	"github.com/amitray007/pare/adapters/tools"
	"github.com/amitray007/pare/adapters/vips"
	"github.com/amitray007/pare/config"
	"github.com/amitray007/pare/core"
	apperrors "github.com/amitray007/pare/errors"
	"github.com/amitray007/pare/estimation"
	"github.com/amitray007/pare/hooks"
	"github.com/amitray007/pare/optimizers"
	"github.com/amitray007/pare/utils"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	APNG = core.FormatAPNG
	WebP = core.FormatWebP
	GIF  = core.FormatGIF
	SVG  = core.FormatSVG
	SVGZ = core.FormatSVGZ
	AVIF = core.FormatAVIF
	HEIC = core.FormatHEIC
	TIFF = core.FormatTIFF
	BMP  = core.FormatBMP
	JXL  = core.FormatJXL
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Service is the primary entry point.
type Service struct {
	cfg       config.Config
	inner     *core.Dispatcher
	reg       *core.DefaultRegistry
	runner    *tools.Runner
	backend   *vips.Backend
	estimator *estimation.Estimator
}

// New creates a fully wired Service: libvips backend, external tool runner,
// an optimizer for every supported format, the compression gate, and the
// estimator.  Call Close() at process exit.
func New(cfg config.Config) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "new", err)
	}

	runner := tools.NewRunner(cfg.ToolTimeout, cfg.ToolPaths)
	backend := vips.NewBackend(vips.BackendConfig{
		DefaultQuality: cfg.DefaultQuality,
		MaxWorkers:     cfg.VipsConcurrency,
		MaxCacheSize:   cfg.VipsCacheMax,
	})

	reg := core.NewRegistry()
	deps := optimizers.Deps{Tools: runner, Vips: backend}
	optimizers.RegisterAll(reg, deps, cfg.JPEGPipeline)

	gate := core.NewGate(cfg.Permits, cfg.QueueCap)
	inner := core.NewDispatcher(cfg, reg, gate)

	return &Service{
		cfg:       cfg,
		inner:     inner,
		reg:       reg,
		runner:    runner,
		backend:   backend,
		estimator: estimation.New(cfg, reg, backend, nil),
	}, nil
}

// Close releases the libvips backend. Call once at process exit.
func (s *Service) Close() { s.backend.Shutdown() }

// SetLogger attaches a structured logger.
func (s *Service) SetLogger(l core.Logger) { s.inner.SetLogger(l) }

// SetMetrics attaches a metrics collector.  The collector observes through
// the hook chain, so do not also add a hooks.MetricsHook for the same
// collector.
func (s *Service) SetMetrics(m core.MetricsCollector) { s.inner.AddHook(hooks.NewMetricsHook(m)) }

// AddHook registers an observer for optimization events.
func (s *Service) AddHook(h core.Hook) { s.inner.AddHook(h) }

// RegisterOptimizer replaces the optimizer for the given format.
func (s *Service) RegisterOptimizer(f core.Format, o core.Optimizer) { s.reg.RegisterOptimizer(f, o) }

// Optimize detects the format and runs the full gated pipeline.
func (s *Service) Optimize(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	return s.inner.Optimize(ctx, data, cfg)
}

// OptimizeWithPreset maps a named level (high, medium, low) to its config
// and optimizes.
func (s *Service) OptimizeWithPreset(ctx context.Context, data []byte, preset string) (core.OptimizeResult, error) {
	cfg, err := core.ConfigForPreset(preset)
	if err != nil {
		return core.OptimizeResult{}, err
	}
	return s.inner.Optimize(ctx, data, cfg)
}

// OptimizeReader drains r (respecting MaxFileBytes) and optimizes.
func (s *Service) OptimizeReader(ctx context.Context, r io.Reader, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	var limited io.Reader = r
	if s.cfg.MaxFileBytes > 0 {
		limited = &utils.LimitedReader{R: r, Max: s.cfg.MaxFileBytes}
	}
	buf, err := utils.DrainReader(ctx, limited, s.cfg.ChunkSize)
	if err != nil {
		return core.OptimizeResult{}, apperrors.Wrap(apperrors.CategoryInput, "optimize.drain", err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return s.inner.Optimize(ctx, data, cfg)
}

// Estimate predicts the optimization outcome without acquiring the gate.
func (s *Service) Estimate(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.Estimate, error) {
	return s.estimator.Estimate(ctx, data, cfg)
}

// EstimateWithPreset estimates under a named compression level.
func (s *Service) EstimateWithPreset(ctx context.Context, data []byte, preset string) (core.Estimate, error) {
	cfg, err := core.ConfigForPreset(preset)
	if err != nil {
		return core.Estimate{}, err
	}
	return s.estimator.Estimate(ctx, data, cfg)
}

// Estimator exposes the estimator for the thumbnail-driven helpers.
func (s *Service) Estimator() *estimation.Estimator { return s.estimator }

// Detect sniffs the image format from magic bytes.
func (s *Service) Detect(data []byte) (core.Format, error) { return s.inner.Detect(data) }

// Tools reports the availability of every external binary the optimizers
// may invoke, for health surfaces.
func (s *Service) Tools() map[string]bool { return s.runner.Availability() }

// Stats returns lightweight processing statistics.
func (s *Service) Stats() (processed, errors int64) {
	return s.inner.ProcessedCount(), s.inner.ErrorCount()
}
