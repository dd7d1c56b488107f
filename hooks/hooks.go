// Package hooks provides production-ready Hook and Logger implementations.
package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amitray007/pare/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, toAttrs(fields)...)
}

func toAttrs(fields []interface{}) []any { return fields }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs each optimization's start and outcome.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeOptimize(_ context.Context, format core.Format, size int) {
	h.logger.Debug("optimize.start",
		"format", string(format),
		"input_bytes", size,
	)
}

func (h *LoggingHook) AfterOptimize(_ context.Context, format core.Format, res *core.OptimizeResult, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("optimize.error",
			"format", string(format),
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Info("optimize.done",
		"format", string(format),
		"duration_ms", d.Milliseconds(),
		"input_bytes", res.OriginalSize,
		"output_bytes", res.OptimizedSize,
		"reduction_pct", res.ReductionPercent,
		"method", res.Method,
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	opDurationsMs map[string]int64 // cumulative ms per operation
	opCalls       map[string]int64 // call count per operation
	opErrors      map[string]int64

	reductionPctSum map[string]float64 // cumulative reduction per format
	reductionCount  map[string]int64

	totalThroughputB int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		opDurationsMs:   make(map[string]int64),
		opCalls:         make(map[string]int64),
		opErrors:        make(map[string]int64),
		reductionPctSum: make(map[string]float64),
		reductionCount:  make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordProcessingTime(op string, d interface{ Seconds() float64 }) {
	ms := int64(d.Seconds() * 1000)
	m.mu.Lock()
	m.opDurationsMs[op] += ms
	m.opCalls[op]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.totalThroughputB, bytes)
}

func (m *InMemoryMetrics) RecordReduction(format string, percent float64) {
	m.mu.Lock()
	m.reductionPctSum[format] += percent
	m.reductionCount[format]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordError(op string, _ string) {
	m.mu.Lock()
	m.opErrors[op]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		OpDurationsMs:    make(map[string]int64, len(m.opDurationsMs)),
		OpCalls:          make(map[string]int64, len(m.opCalls)),
		OpErrors:         make(map[string]int64, len(m.opErrors)),
		AvgReductionPct:  make(map[string]float64, len(m.reductionPctSum)),
		TotalThroughputB: atomic.LoadInt64(&m.totalThroughputB),
	}
	for k, v := range m.opDurationsMs {
		snap.OpDurationsMs[k] = v
	}
	for k, v := range m.opCalls {
		snap.OpCalls[k] = v
	}
	for k, v := range m.opErrors {
		snap.OpErrors[k] = v
	}
	for k, sum := range m.reductionPctSum {
		if n := m.reductionCount[k]; n > 0 {
			snap.AvgReductionPct[k] = sum / float64(n)
		}
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	OpDurationsMs    map[string]int64
	OpCalls          map[string]int64
	OpErrors         map[string]int64
	AvgReductionPct  map[string]float64
	TotalThroughputB int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds optimization events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeOptimize(_ context.Context, _ core.Format, _ int) {}

func (h *MetricsHook) AfterOptimize(_ context.Context, format core.Format, res *core.OptimizeResult, d time.Duration, err error) {
	h.collector.RecordProcessingTime("optimize."+string(format), d)
	if err != nil {
		h.collector.RecordError("optimize."+string(format), "optimize")
		return
	}
	if res != nil {
		h.collector.RecordThroughput(int64(res.OptimizedSize))
		h.collector.RecordReduction(string(format), res.ReductionPercent)
	}
}
