// Package optimizers holds the per-format compression pipelines.  Each
// optimizer fans candidate encodes out in parallel, discards failures, and
// returns the smallest survivor through core.BuildResult, so output is never
// larger than input.
package optimizers

import (
	"context"
	"sync"

	"github.com/amitray007/pare/adapters/tools"
	"github.com/amitray007/pare/adapters/vips"
	"github.com/amitray007/pare/core"
)

// Deps carries the shared backends every optimizer draws from.
type Deps struct {
	Tools *tools.Runner
	Vips  *vips.Backend
	Log   core.Logger
}

func (d Deps) logger() core.Logger {
	if d.Log == nil {
		return nopLogger{}
	}
	return d.Log
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// candidate is one encode attempt.  Empty data marks a discarded candidate.
type candidate struct {
	data   []byte
	method string
}

type candidateFunc func(ctx context.Context) (candidate, error)

// runCandidates executes every candidate function concurrently and collects
// the successes in submission order.  Failures are logged at debug level and
// dropped; a pipeline where all candidates fail simply yields the input.
func runCandidates(ctx context.Context, log core.Logger, fns ...candidateFunc) []candidate {
	results := make([]candidate, len(fns))
	errs := make([]error, len(fns))
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(idx int, f candidateFunc) {
			defer wg.Done()
			results[idx], errs[idx] = f(ctx)
		}(i, fn)
	}
	wg.Wait()

	out := results[:0]
	for i, c := range results {
		if errs[i] != nil {
			log.Debug("optimize.candidate.failed", "error", errs[i].Error())
			continue
		}
		if len(c.data) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// finish picks the smallest candidate and builds the result contract.
func finish(original []byte, format core.Format, cands []candidate) core.OptimizeResult {
	var best candidate
	for _, c := range cands {
		if len(c.data) == 0 {
			continue
		}
		if len(best.data) == 0 || len(c.data) < len(best.data) {
			best = c
		}
	}
	return core.BuildResult(original, best.data, format, best.method)
}
