package optimizers

import (
	"bytes"
	"context"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/amitray007/pare/core"
	apperrors "github.com/amitray007/pare/errors"
	"github.com/amitray007/pare/utils"
)

// maxSVGZExpansion bounds decompression to keep gzip bombs out of memory.
const maxSVGZExpansion = 128 * 1024 * 1024

// SVG sanitizes and minifies vector input.  Sanitization is not optional:
// SVG is a script container, and the pipeline refuses to pass one through
// unparsed.  SVGZ input is decompressed, processed, and re-gzipped.
type SVG struct {
	deps       Deps
	compressed bool
}

// NewSVG returns the plain-text SVG optimizer.
func NewSVG(deps Deps) *SVG { return &SVG{deps: deps} }

// NewSVGZ returns the gzip-wrapped variant.
func NewSVGZ(deps Deps) *SVG { return &SVG{deps: deps, compressed: true} }

func (o *SVG) Format() core.Format {
	if o.compressed {
		return core.FormatSVGZ
	}
	return core.FormatSVG
}

func (o *SVG) Optimize(_ context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	text := data
	if o.compressed {
		var err error
		if text, err = gunzip(data); err != nil {
			return core.OptimizeResult{}, apperrors.Wrap(apperrors.CategoryOptimize, "optimize.svgz", err)
		}
	}

	minified, err := MinifySVG(text, cfg.Quality, cfg.StripMetadata)
	if err != nil {
		// Malformed XML cannot be sanitized, so it cannot be served.
		return core.OptimizeResult{}, apperrors.Wrap(apperrors.CategoryOptimize, "optimize.svg", err)
	}

	out := minified
	if o.compressed {
		if out, err = gzipBytes(minified); err != nil {
			return core.OptimizeResult{}, apperrors.Wrap(apperrors.CategoryOptimize, "optimize.svgz", err)
		}
	}
	return finish(data, o.Format(), []candidate{{data: out, method: "scour"}}), nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxSVGZExpansion))
}

func gzipBytes(data []byte) ([]byte, error) {
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	zw, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return utils.CloneBytes(buf.Bytes()), nil
}
