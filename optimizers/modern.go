package optimizers

import (
	"context"
	"fmt"

	"github.com/amitray007/pare/adapters/vips"
	"github.com/amitray007/pare/core"
)

// avifSpeed balances encode time against density for the AV1 encoder.
const avifSpeed = 6

// Modern covers the AVIF, HEIC, and JPEG XL pipelines, which share a shape:
// a metadata-stripping near-lossless candidate races a re-encode at the
// codec-mapped quality.  libvips builds without the relevant codec simply
// produce no candidates, and the input passes through with method "none".
type Modern struct {
	deps   Deps
	format core.Format
}

// NewAVIF returns the AVIF optimizer.
func NewAVIF(deps Deps) *Modern { return &Modern{deps: deps, format: core.FormatAVIF} }

// NewHEIC returns the HEIC optimizer.
func NewHEIC(deps Deps) *Modern { return &Modern{deps: deps, format: core.FormatHEIC} }

// NewJXL returns the JPEG XL optimizer.
func NewJXL(deps Deps) *Modern { return &Modern{deps: deps, format: core.FormatJXL} }

func (o *Modern) Format() core.Format { return o.format }

func (o *Modern) Optimize(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	if o.deps.Vips == nil {
		return core.BuildResult(data, nil, o.format, ""), nil
	}
	im, err := o.deps.Vips.Load(data)
	if err != nil {
		o.deps.logger().Debug("optimize.modern.decode.failed", "format", string(o.format), "error", err.Error())
		return core.BuildResult(data, nil, o.format, ""), nil
	}
	defer im.Close()

	fns := []candidateFunc{
		func(context.Context) (candidate, error) { return o.reencode(im, cfg.Quality) },
	}
	if cfg.StripMetadata {
		fns = append(fns, func(context.Context) (candidate, error) { return o.strip(im) })
	}
	// libvips serializes operations on one image; running these in the
	// shared fan-out keeps behavior uniform and failures isolated.
	cands := runCandidates(ctx, o.deps.logger(), fns...)
	return finish(data, o.format, cands), nil
}

func (o *Modern) reencode(im *vips.Image, quality int) (candidate, error) {
	switch o.format {
	case core.FormatAVIF:
		out, err := im.ExportAVIF(core.AVIFQuality(quality), avifSpeed, true)
		return candidate{data: out, method: "avif-reencode"}, err
	case core.FormatHEIC:
		out, err := im.ExportHEIC(core.HEICQuality(quality), false)
		return candidate{data: out, method: "heic-reencode"}, err
	case core.FormatJXL:
		out, err := im.ExportJXL(core.JXLQuality(quality), false)
		return candidate{data: out, method: "jxl-reencode"}, err
	}
	return candidate{}, fmt.Errorf("modern: unexpected format %s", o.format)
}

// strip re-saves near the top of the codec quality scale with metadata
// dropped; wins when the source carries heavy EXIF/XMP payloads.
func (o *Modern) strip(im *vips.Image) (candidate, error) {
	switch o.format {
	case core.FormatAVIF:
		out, err := im.ExportAVIF(90, avifSpeed, true)
		return candidate{data: out, method: "metadata-strip"}, err
	case core.FormatHEIC:
		out, err := im.ExportHEIC(90, false)
		return candidate{data: out, method: "metadata-strip"}, err
	case core.FormatJXL:
		out, err := im.ExportJXL(0, true)
		return candidate{data: out, method: "metadata-strip"}, err
	}
	return candidate{}, fmt.Errorf("modern: unexpected format %s", o.format)
}
