package estimation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/amitray007/pare/adapters/webpx"
	"github.com/amitray007/pare/core"
	"github.com/amitray007/pare/optimizers"
	"github.com/amitray007/pare/utils"
)

// Sample widths per strategy.  JPEG keeps more detail because its encoder
// cost curve flattens quickly; modern codecs sample smaller, and the generic
// path smaller still since its sample gets fully optimized afterwards.
const (
	jpegSampleWidth    = 1600
	modernSampleWidth  = 800
	genericSampleWidth = 300
)

// sampleOutcome captures one scaled-down encode.
type sampleOutcome struct {
	bytes            int
	dims             core.Dimensions
	method           string
	alreadyOptimized bool
}

// directSample re-encodes a downscaled copy with the production encoder for
// the format, giving a bits-per-pixel measurement to extrapolate from.
func (e *Estimator) directSample(ctx context.Context, data []byte, format core.Format, ocfg core.OptimizationConfig) (sampleOutcome, error) {
	switch format {
	case core.FormatJPEG:
		return e.vipsSample(ctx, data, format, jpegSampleWidth, ocfg)
	case core.FormatAVIF, core.FormatHEIC, core.FormatJXL:
		return e.vipsSample(ctx, data, format, modernSampleWidth, ocfg)
	case core.FormatWebP:
		return e.webpSample(ctx, data, ocfg)
	case core.FormatPNG:
		return e.pngSample(ctx, data, ocfg)
	}
	return sampleOutcome{}, fmt.Errorf("estimation: no direct sampler for %s", format)
}

func (e *Estimator) vipsSample(ctx context.Context, data []byte, format core.Format, width int, ocfg core.OptimizationConfig) (sampleOutcome, error) {
	if e.vips == nil {
		return sampleOutcome{}, fmt.Errorf("estimation: vips backend unavailable")
	}
	if err := ctx.Err(); err != nil {
		return sampleOutcome{}, err
	}
	im, err := e.vips.Load(data)
	if err != nil {
		return sampleOutcome{}, err
	}
	defer im.Close()
	if err := im.ResizeToWidth(width); err != nil {
		return sampleOutcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return sampleOutcome{}, err
	}

	var out []byte
	var method string
	switch format {
	case core.FormatJPEG:
		out, err = im.ExportJPEG(ocfg.Quality, ocfg.Progressive, true)
		method = "jpegli"
	case core.FormatAVIF:
		out, err = im.ExportAVIF(core.AVIFQuality(ocfg.Quality), 6, true)
		method = "avif-reencode"
	case core.FormatHEIC:
		out, err = im.ExportHEIC(core.HEICQuality(ocfg.Quality), false)
		method = "heic-reencode"
	case core.FormatJXL:
		out, err = im.ExportJXL(core.JXLQuality(ocfg.Quality), false)
		method = "jxl-reencode"
	}
	if err != nil {
		return sampleOutcome{}, err
	}
	return sampleOutcome{
		bytes:  len(out),
		dims:   core.Dimensions{Width: im.Width(), Height: im.Height()},
		method: method,
	}, nil
}

func (e *Estimator) webpSample(ctx context.Context, data []byte, ocfg core.OptimizationConfig) (sampleOutcome, error) {
	if err := ctx.Err(); err != nil {
		return sampleOutcome{}, err
	}
	img, err := webpx.Decode(data)
	if err != nil {
		return sampleOutcome{}, err
	}
	sample := resizeToWidth(img, modernSampleWidth)
	if err := ctx.Err(); err != nil {
		return sampleOutcome{}, err
	}
	out, err := webpx.Encode(sample, ocfg.Quality)
	if err != nil {
		return sampleOutcome{}, err
	}
	return sampleOutcome{
		bytes:  len(out),
		dims:   boundsDims(sample),
		method: "webp",
	}, nil
}

// pngSample models the lossy path with palette quantization (pngquant's
// job) plus maximum deflate (oxipng's job); the lossless path with maximum
// deflate alone.  The budget context is consulted between stages so an
// expired deadline surfaces before the expensive encode runs.
func (e *Estimator) pngSample(ctx context.Context, data []byte, ocfg core.OptimizationConfig) (sampleOutcome, error) {
	if err := ctx.Err(); err != nil {
		return sampleOutcome{}, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return sampleOutcome{}, err
	}
	sample := resizeToWidth(img, modernSampleWidth)

	var toEncode image.Image = sample
	method := "oxipng"
	if ocfg.PNGLossy && ocfg.Quality < 70 {
		colors := 256
		if ocfg.Quality < 50 {
			colors = 64
		}
		toEncode = optimizers.Quantize(sample, colors)
		method = "pngquant + oxipng"
	}
	if err := ctx.Err(); err != nil {
		return sampleOutcome{}, err
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(buf, toEncode); err != nil {
		return sampleOutcome{}, err
	}
	return sampleOutcome{
		bytes:  buf.Len(),
		dims:   boundsDims(sample),
		method: method,
	}, nil
}

// genericSample decodes, shrinks, re-encodes with minimal compression, and
// then runs the real optimizer over the small sample.  The optimizer output
// carries both the bits-per-pixel signal and the winning method label.
func (e *Estimator) genericSample(ctx context.Context, data []byte, format core.Format, ocfg core.OptimizationConfig) (sampleOutcome, error) {
	if err := ctx.Err(); err != nil {
		return sampleOutcome{}, err
	}
	img, err := decodeRaster(data, format)
	if err != nil {
		return sampleOutcome{}, err
	}
	sample := resizeToWidth(img, genericSampleWidth)

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	switch format {
	case core.FormatBMP:
		err = bmp.Encode(buf, sample)
	case core.FormatTIFF:
		err = tiff.Encode(buf, sample, &tiff.Options{Compression: tiff.Uncompressed})
	case core.FormatGIF:
		err = gif.Encode(buf, optimizers.Quantize(sample, 256), nil)
	default:
		err = fmt.Errorf("estimation: no generic sampler for %s", format)
	}
	if err != nil {
		return sampleOutcome{}, err
	}

	opt, ok := e.registry.OptimizerFor(format)
	if !ok {
		return sampleOutcome{}, fmt.Errorf("estimation: no optimizer for %s", format)
	}
	res, err := opt.Optimize(ctx, utils.CloneBytes(buf.Bytes()), ocfg)
	if err != nil {
		return sampleOutcome{}, err
	}
	return sampleOutcome{
		bytes:            res.OptimizedSize,
		dims:             boundsDims(sample),
		method:           res.Method,
		alreadyOptimized: res.Method == core.MethodNone,
	}, nil
}

func decodeRaster(data []byte, format core.Format) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case core.FormatBMP:
		return bmp.Decode(r)
	case core.FormatTIFF:
		return tiff.Decode(r)
	case core.FormatGIF:
		return gif.Decode(r)
	case core.FormatJPEG:
		return jpeg.Decode(r)
	case core.FormatPNG:
		return png.Decode(r)
	}
	return nil, fmt.Errorf("estimation: cannot decode %s", format)
}

// resizeToWidth downscales with Catmull-Rom resampling; images already at or
// below the target pass through.
func resizeToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() <= width {
		return img
	}
	w, h := utils.FitWidth(b.Dx(), b.Dy(), width)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func boundsDims(img image.Image) core.Dimensions {
	return core.Dimensions{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
}
