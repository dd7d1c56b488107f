package core

import (
	"context"
	"runtime"
	"sync"
	"time"

	apperrors "github.com/amitray007/pare/errors"
)

// ── Compression gate ──────────────────────────────────────────────────────────

// DefaultRetryAfter is the backoff hint attached to overload rejections.
const DefaultRetryAfter = 5 * time.Second

// Gate bounds concurrent optimizations.  Up to permits callers run at once;
// up to queueCap more wait in FIFO order; everyone else is rejected
// immediately with an OverloadedError instead of queueing unboundedly.
//
// Estimation never passes through the gate; only full optimizations do.
type Gate struct {
	permits chan struct{}

	mu       sync.Mutex
	inFlight int // holders plus waiters
	capacity int // permits + queueCap

	retryAfter time.Duration
}

// NewGate creates a gate with the given permit count and queue capacity.
// Zero or negative values resolve to runtime.NumCPU() and 2x permits.
func NewGate(permits, queueCap int) *Gate {
	if permits <= 0 {
		permits = runtime.NumCPU()
	}
	if queueCap <= 0 {
		queueCap = 2 * permits
	}
	return &Gate{
		permits:    make(chan struct{}, permits),
		capacity:   permits + queueCap,
		retryAfter: DefaultRetryAfter,
	}
}

// Acquire blocks until a permit is available or ctx is done.  When the wait
// queue is already full it fails fast with an OverloadedError.  The returned
// release function is idempotent; calling it more than once is safe.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	g.mu.Lock()
	if g.inFlight >= g.capacity {
		g.mu.Unlock()
		return nil, apperrors.Wrap(apperrors.CategoryOptimize, "gate.acquire",
			&apperrors.OverloadedError{RetryAfter: g.retryAfter})
	}
	g.inFlight++
	g.mu.Unlock()

	select {
	case g.permits <- struct{}{}:
	case <-ctx.Done():
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
		return nil, apperrors.Wrap(apperrors.CategoryOptimize, "gate.acquire", ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-g.permits
			g.mu.Lock()
			g.inFlight--
			g.mu.Unlock()
		})
	}, nil
}

// InFlight returns the number of callers holding or waiting for a permit.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Capacity returns the total admission limit (permits + queue).
func (g *Gate) Capacity() int { return g.capacity }
