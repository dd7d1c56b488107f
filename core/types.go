package core

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatAPNG    Format = "apng"
	FormatWebP    Format = "webp"
	FormatGIF     Format = "gif"
	FormatSVG     Format = "svg"
	FormatSVGZ    Format = "svgz"
	FormatAVIF    Format = "avif"
	FormatHEIC    Format = "heic"
	FormatTIFF    Format = "tiff"
	FormatBMP     Format = "bmp"
	FormatJXL     Format = "jxl"
	FormatUnknown Format = "unknown"
)

// MIME returns the canonical media type for the format.
func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatAPNG:
		return "image/apng"
	case FormatWebP:
		return "image/webp"
	case FormatGIF:
		return "image/gif"
	case FormatSVG, FormatSVGZ:
		return "image/svg+xml"
	case FormatAVIF:
		return "image/avif"
	case FormatHEIC:
		return "image/heic"
	case FormatTIFF:
		return "image/tiff"
	case FormatBMP:
		return "image/bmp"
	case FormatJXL:
		return "image/jxl"
	}
	return "application/octet-stream"
}

// Animatable reports whether the format can carry multiple frames.
func (f Format) Animatable() bool {
	switch f {
	case FormatAPNG, FormatGIF, FormatWebP, FormatAVIF:
		return true
	}
	return false
}

// OptimizationConfig carries the per-request tuning knobs.
type OptimizationConfig struct {
	Quality       int  // 1-100 lossy target
	StripMetadata bool // drop EXIF/XMP/comments; orientation and ICC survive
	Progressive   bool // progressive JPEG output
	PNGLossy      bool // allow pngquant-style palette quantization

	// MaxReduction caps the size reduction of lossy candidates at the given
	// percentage (0-100).  nil disables the cap.  Lossless candidates are
	// never capped.
	MaxReduction *float64
}

// DefaultOptimizationConfig returns the knobs applied when a caller passes
// nothing: quality 80, metadata stripped, lossy PNG allowed.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		Quality:       80,
		StripMetadata: true,
		PNGLossy:      true,
	}
}

// Validate checks the configuration bounds.
func (c OptimizationConfig) Validate() error {
	if c.Quality < 1 || c.Quality > 100 {
		return errInvalidQuality
	}
	if c.MaxReduction != nil && (*c.MaxReduction < 0 || *c.MaxReduction > 100) {
		return errInvalidMaxReduction
	}
	return nil
}

// OptimizeResult is the outcome of a single optimization.
type OptimizeResult struct {
	Success          bool
	Data             []byte
	OriginalSize     int
	OptimizedSize    int
	ReductionPercent float64 // rounded to one decimal
	Format           Format
	Method           string // winning pipeline step, or "none"
	Message          string // optional human-readable note, e.g. why nothing shrank
}

// Potential buckets the estimated reduction for API consumers.
type Potential string

const (
	PotentialLow    Potential = "low"
	PotentialMedium Potential = "medium"
	PotentialHigh   Potential = "high"
)

// Confidence grades how the estimate was produced: "high" for exact or
// direct-encode sampling, "medium" for thumbnail extrapolation, "low" for
// the heuristic fallback.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// Estimate predicts the outcome of a full optimization without running one.
type Estimate struct {
	Format                    Format
	OriginalSize              int
	EstimatedSize             int
	EstimatedReductionPercent float64
	Potential                 Potential
	AlreadyOptimized          bool
	Confidence                Confidence
	Method                    string // pipeline the estimate models
	Dimensions                Dimensions
	ColorType                 string // "rgb", "rgba", "palette", "grayscale", "cmyk"
	BitDepth                  int
	FrameCount                int
}
