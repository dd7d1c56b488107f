package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/amitray007/pare/config"
	apperrors "github.com/amitray007/pare/errors"
)

// Dispatcher is the central orchestrator: it detects the input format,
// acquires a gate permit, and hands the bytes to the registered optimizer.
// It is safe for concurrent use.
type Dispatcher struct {
	cfg      config.Config
	registry Registry
	gate     *Gate
	hooks    []Hook
	logger   Logger

	// Atomic counters for lightweight internal metrics.
	processedCount int64
	errorCount     int64
}

// NewDispatcher creates a Dispatcher with the given config, registry, and
// gate.
func NewDispatcher(cfg config.Config, reg Registry, gate *Gate) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		registry: reg,
		gate:     gate,
	}
}

// SetLogger attaches a structured logger.
func (d *Dispatcher) SetLogger(l Logger) { d.logger = l }

// AddHook registers an optimization observer.
func (d *Dispatcher) AddHook(h Hook) { d.hooks = append(d.hooks, h) }

// Registry returns the underlying registry so callers can register
// optimizers after construction.
func (d *Dispatcher) Registry() Registry { return d.registry }

// Gate returns the compression gate.
func (d *Dispatcher) Gate() *Gate { return d.gate }

// Optimize runs the full gated pipeline for one image.
func (d *Dispatcher) Optimize(ctx context.Context, data []byte, ocfg OptimizationConfig) (OptimizeResult, error) {
	if len(data) == 0 {
		return OptimizeResult{}, apperrors.New(apperrors.CategoryInput, "optimize", apperrors.ErrEmptyInput)
	}
	if d.cfg.MaxFileBytes > 0 && int64(len(data)) > d.cfg.MaxFileBytes {
		atomic.AddInt64(&d.errorCount, 1)
		return OptimizeResult{}, apperrors.New(apperrors.CategoryInput, "optimize",
			fmt.Errorf("%w: %d bytes", apperrors.ErrInputTooLarge, len(data)))
	}
	if err := ocfg.Validate(); err != nil {
		return OptimizeResult{}, apperrors.Wrap(apperrors.CategoryConfig, "optimize", err)
	}

	format := DetectFormat(data)
	if format == FormatUnknown {
		atomic.AddInt64(&d.errorCount, 1)
		return OptimizeResult{}, apperrors.New(apperrors.CategoryDetect, "optimize", apperrors.ErrUnsupportedFormat)
	}
	opt, ok := d.registry.OptimizerFor(format)
	if !ok {
		atomic.AddInt64(&d.errorCount, 1)
		return OptimizeResult{}, apperrors.New(apperrors.CategoryDetect, "optimize",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}

	release, err := d.gate.Acquire(ctx)
	if err != nil {
		atomic.AddInt64(&d.errorCount, 1)
		return OptimizeResult{}, err
	}
	defer release()

	// Observability runs through the hook chain only, so a metrics
	// collector attached as a hook records each optimization once.
	d.notifyBefore(ctx, format, len(data))
	start := time.Now()
	res, err := opt.Optimize(ctx, data, ocfg)
	elapsed := time.Since(start)
	d.notifyAfter(ctx, format, &res, elapsed, err)

	if err != nil {
		atomic.AddInt64(&d.errorCount, 1)
		return OptimizeResult{}, err
	}
	atomic.AddInt64(&d.processedCount, 1)
	return res, nil
}

// Detect exposes format detection for callers that only need the sniff.
func (d *Dispatcher) Detect(data []byte) (Format, error) {
	f := DetectFormat(data)
	if f == FormatUnknown {
		return f, apperrors.New(apperrors.CategoryDetect, "detect", apperrors.ErrUnsupportedFormat)
	}
	return f, nil
}

func (d *Dispatcher) notifyBefore(ctx context.Context, format Format, size int) {
	for _, h := range d.hooks {
		h.BeforeOptimize(ctx, format, size)
	}
}

func (d *Dispatcher) notifyAfter(ctx context.Context, format Format, res *OptimizeResult, elapsed time.Duration, err error) {
	for _, h := range d.hooks {
		h.AfterOptimize(ctx, format, res, elapsed, err)
	}
}

// ProcessedCount returns the total number of successful optimizations.
func (d *Dispatcher) ProcessedCount() int64 { return atomic.LoadInt64(&d.processedCount) }

// ErrorCount returns the total number of failed or rejected requests.
func (d *Dispatcher) ErrorCount() int64 { return atomic.LoadInt64(&d.errorCount) }
