package optimizers

import (
	"bytes"
	"context"
	"image"

	"golang.org/x/image/bmp"

	"github.com/amitray007/pare/core"
	"github.com/amitray007/pare/utils"
)

// BMP has no entropy coding, so the wins come from representation: a clean
// 24-bit re-save drops padding and unused headers, a 256-color palette
// quarters the pixel data, and RLE8 squeezes flat-color graphics further.
type BMP struct {
	deps Deps
}

// NewBMP returns the BMP optimizer.
func NewBMP(deps Deps) *BMP { return &BMP{deps: deps} }

func (o *BMP) Format() core.Format { return core.FormatBMP }

func (o *BMP) Optimize(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		o.deps.logger().Debug("optimize.bmp.decode.failed", "error", err.Error())
		return core.BuildResult(data, nil, core.FormatBMP, ""), nil
	}

	fns := []candidateFunc{
		func(context.Context) (candidate, error) {
			out, err := encodeBMP24(img)
			return candidate{data: out, method: "pillow-bmp"}, err
		},
	}
	if cfg.Quality < 70 {
		fns = append(fns, func(context.Context) (candidate, error) {
			paletted := Quantize(img, 256)
			c := candidate{data: EncodeBMP8(paletted), method: "pillow-bmp-palette"}
			return c, nil
		})
	}
	if cfg.Quality < 50 {
		fns = append(fns, func(context.Context) (candidate, error) {
			paletted := Quantize(img, 256)
			return candidate{data: EncodeBMPRLE8(paletted), method: "bmp-rle8"}, nil
		})
	}

	cands := runCandidates(ctx, o.deps.logger(), fns...)
	return finish(data, core.FormatBMP, cands), nil
}

func encodeBMP24(img image.Image) ([]byte, error) {
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if err := bmp.Encode(buf, img); err != nil {
		return nil, err
	}
	return utils.CloneBytes(buf.Bytes()), nil
}
