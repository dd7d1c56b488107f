package core

import (
	"context"
	"time"
)

// Optimizer compresses one image format.  Implementations live in
// optimizers/ and must be safe for concurrent use across goroutines.
type Optimizer interface {
	// Format returns the primary format this optimizer handles.
	Format() Format
	// Optimize produces the smallest candidate it can.  Implementations
	// return the input unchanged (method "none") when no candidate wins;
	// they never return output larger than the input.
	Optimize(ctx context.Context, data []byte, cfg OptimizationConfig) (OptimizeResult, error)
}

// MetricsCollector receives performance observations from the dispatcher.
type MetricsCollector interface {
	RecordProcessingTime(op string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordReduction(format string, percent float64)
	RecordError(op string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Hook is an optional observer invoked around each optimization.
type Hook interface {
	BeforeOptimize(ctx context.Context, format Format, size int)
	AfterOptimize(ctx context.Context, format Format, res *OptimizeResult, d time.Duration, err error)
}

// Registry maps Format values to Optimizer implementations.
type Registry interface {
	OptimizerFor(format Format) (Optimizer, bool)
	RegisterOptimizer(format Format, o Optimizer)
	Formats() []Format
}
