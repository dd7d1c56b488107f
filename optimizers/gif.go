package optimizers

import (
	"context"

	"github.com/amitray007/pare/adapters/tools"
	"github.com/amitray007/pare/core"
)

// GIF pipes through gifsicle.  Lower quality requests add lossy LZW
// re-encoding and palette reduction on top of the structural optimization
// pass; both work on animations without dropping frames.
type GIF struct {
	deps Deps
}

// NewGIF returns the GIF optimizer.
func NewGIF(deps Deps) *GIF { return &GIF{deps: deps} }

func (o *GIF) Format() core.Format { return core.FormatGIF }

// gifsicleArgs maps request quality to the gifsicle flag tier.
func gifsicleArgs(quality int) []string {
	args := []string{"--optimize=3"}
	switch {
	case quality < 50:
		args = append(args, "--lossy=80", "--colors", "128")
	case quality < 70:
		args = append(args, "--lossy=30", "--colors", "192")
	}
	return args
}

func (o *GIF) Optimize(ctx context.Context, data []byte, cfg core.OptimizationConfig) (core.OptimizeResult, error) {
	out, _, err := o.deps.Tools.Run(ctx, tools.Gifsicle, gifsicleArgs(cfg.Quality), data)
	if err != nil {
		o.deps.logger().Debug("optimize.gif.gifsicle.failed", "error", err.Error())
		return core.BuildResult(data, nil, core.FormatGIF, ""), nil
	}
	return finish(data, core.FormatGIF, []candidate{{data: out, method: "gifsicle"}}), nil
}
