package optimizers

import (
	"github.com/amitray007/pare/config"
	"github.com/amitray007/pare/core"
)

// RegisterAll wires an optimizer for every supported format into reg.
func RegisterAll(reg core.Registry, deps Deps, jpegPipeline config.JPEGEncoder) {
	reg.RegisterOptimizer(core.FormatPNG, NewPNG(deps))
	reg.RegisterOptimizer(core.FormatAPNG, NewAPNG(deps))
	reg.RegisterOptimizer(core.FormatJPEG, NewJPEG(deps, jpegPipeline))
	reg.RegisterOptimizer(core.FormatWebP, NewWebP(deps))
	reg.RegisterOptimizer(core.FormatGIF, NewGIF(deps))
	reg.RegisterOptimizer(core.FormatSVG, NewSVG(deps))
	reg.RegisterOptimizer(core.FormatSVGZ, NewSVGZ(deps))
	reg.RegisterOptimizer(core.FormatAVIF, NewAVIF(deps))
	reg.RegisterOptimizer(core.FormatHEIC, NewHEIC(deps))
	reg.RegisterOptimizer(core.FormatJXL, NewJXL(deps))
	reg.RegisterOptimizer(core.FormatTIFF, NewTIFF(deps))
	reg.RegisterOptimizer(core.FormatBMP, NewBMP(deps))
}
