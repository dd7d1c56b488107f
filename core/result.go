package core

import (
	"io"
	"math"
)

// ── Result contract ───────────────────────────────────────────────────────────

// MethodNone marks a result where no candidate beat the original bytes.
const MethodNone = "none"

// BuildResult is the single place optimization outcomes are assembled.  When
// the candidate is nil, empty, or not smaller than the original, the original
// bytes are returned with method "none" so output is never larger than input.
func BuildResult(original, candidate []byte, format Format, method string) OptimizeResult {
	res := OptimizeResult{
		Success:      true,
		Format:       format,
		OriginalSize: len(original),
	}
	if len(candidate) == 0 || len(candidate) >= len(original) {
		res.Data = original
		res.OptimizedSize = len(original)
		res.Method = MethodNone
		res.Message = "no candidate produced a smaller output; input returned unchanged"
		return res
	}
	res.Data = candidate
	res.OptimizedSize = len(candidate)
	res.Method = method
	res.ReductionPercent = ReductionPercent(len(original), len(candidate))
	return res
}

// ReductionPercent computes (1 - optimized/original) * 100 rounded to one
// decimal place.  Zero original size yields zero.
func ReductionPercent(original, optimized int) float64 {
	if original <= 0 {
		return 0
	}
	pct := (1 - float64(optimized)/float64(original)) * 100
	return math.Round(pct*10) / 10
}

// WriteTo streams the result bytes to w.
func (r OptimizeResult) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Data)
	return int64(n), err
}
