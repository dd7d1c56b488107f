package core

import "sync"

// ── Registry ──────────────────────────────────────────────────────────────────

// DefaultRegistry is a thread-safe implementation of Registry.  The service
// populates it once at construction; later registration replaces the handler
// for that format.
type DefaultRegistry struct {
	mu         sync.RWMutex
	optimizers map[Format]Optimizer
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		optimizers: make(map[Format]Optimizer),
	}
}

func (r *DefaultRegistry) RegisterOptimizer(f Format, o Optimizer) {
	r.mu.Lock()
	r.optimizers[f] = o
	r.mu.Unlock()
}

func (r *DefaultRegistry) OptimizerFor(f Format) (Optimizer, bool) {
	r.mu.RLock()
	o, ok := r.optimizers[f]
	r.mu.RUnlock()
	return o, ok
}

// Formats lists the formats with a registered optimizer.
func (r *DefaultRegistry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.optimizers))
	for f := range r.optimizers {
		out = append(out, f)
	}
	return out
}
