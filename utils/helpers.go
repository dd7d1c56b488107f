package utils

import (
	"bytes"
)

// ScaleDimensions computes output (w, h) preserving aspect ratio.
// Pass 0 for either axis to calculate it from the other.
func ScaleDimensions(srcW, srcH, targetW, targetH int) (int, int) {
	if targetW == 0 && targetH == 0 {
		return srcW, srcH
	}
	if targetW == 0 {
		ratio := float64(targetH) / float64(srcH)
		return int(float64(srcW) * ratio), targetH
	}
	if targetH == 0 {
		ratio := float64(targetW) / float64(srcW)
		return targetW, int(float64(srcH) * ratio)
	}
	return targetW, targetH
}

// FitWidth scales (srcW, srcH) down so width is at most maxW.  Images already
// narrower pass through unchanged; height never drops below one pixel.
func FitWidth(srcW, srcH, maxW int) (int, int) {
	if srcW <= maxW || srcW <= 0 {
		return srcW, srcH
	}
	h := int(float64(srcH) * float64(maxW) / float64(srcW))
	if h < 1 {
		h = 1
	}
	return maxW, h
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// BytesReader creates an io.Reader backed by b without allocation.
func BytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
