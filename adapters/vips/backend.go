// Package vips wraps libvips (through govips) as the in-process codec
// backend: JPEG re-encodes, AVIF/HEIC/JXL transcodes, TIFF recompression,
// and Lanczos3 downscaling for estimation samples.
package vips

import (
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	apperrors "github.com/amitray007/pare/errors"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Backend is the libvips-powered encode/decode surface.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 80
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// Load decodes encoded bytes into a working image.  The caller must Close it.
func (b *Backend) Load(data []byte) (*Image, error) {
	ref, err := govips.NewImageFromBuffer(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryOptimize, "vips.load", err)
	}
	return &Image{ref: ref}, nil
}

// ─── Image ────────────────────────────────────────────────────────────────────

// Image wraps a decoded *govips.ImageRef.  Exports do not mutate the image,
// so multiple candidates can be produced from one decode.
type Image struct {
	ref *govips.ImageRef
}

func (m *Image) Width() int       { return m.ref.Width() }
func (m *Image) Height() int      { return m.ref.Height() }
func (m *Image) Bands() int       { return m.ref.Bands() }
func (m *Image) HasAlpha() bool   { return m.ref.HasAlpha() }
func (m *Image) Pages() int       { return m.ref.Pages() }
func (m *Image) Orientation() int { return m.ref.Orientation() }
func (m *Image) Close()           { m.ref.Close() }

// Grayscale reports whether the image is single-channel.
func (m *Image) Grayscale() bool {
	return m.ref.Interpretation() == govips.InterpretationBW
}

// ResizeToWidth downscales with the Lanczos3 kernel, preserving aspect
// ratio.  Widths at or above the current width are a no-op.
func (m *Image) ResizeToWidth(width int) error {
	if width <= 0 || width >= m.ref.Width() {
		return nil
	}
	scale := float64(width) / float64(m.ref.Width())
	if err := m.ref.Resize(scale, govips.KernelLanczos3); err != nil {
		return apperrors.Wrap(apperrors.CategoryOptimize, "vips.resize", err)
	}
	return nil
}

// ─── Exports ──────────────────────────────────────────────────────────────────

// ExportJPEG re-encodes as JPEG.  With strip=false the metadata that
// survived earlier byte-level stripping (orientation, ICC) is carried over.
func (m *Image) ExportJPEG(quality int, progressive, strip bool) ([]byte, error) {
	ep := govips.NewJpegExportParams()
	ep.Quality = quality
	ep.Interlace = progressive
	ep.StripMetadata = strip
	ep.OptimizeCoding = true
	buf, _, err := m.ref.ExportJpeg(ep)
	return buf, apperrors.Wrap(apperrors.CategoryOptimize, "vips.export.jpeg", err)
}

// ExportAVIF re-encodes as AVIF at the given encoder-scale quality.
func (m *Image) ExportAVIF(quality, speed int, strip bool) ([]byte, error) {
	ep := govips.NewAvifExportParams()
	ep.Quality = quality
	ep.Speed = speed
	ep.StripMetadata = strip
	buf, _, err := m.ref.ExportAvif(ep)
	return buf, apperrors.Wrap(apperrors.CategoryOptimize, "vips.export.avif", err)
}

// ExportHEIC re-encodes as HEIC.
func (m *Image) ExportHEIC(quality int, lossless bool) ([]byte, error) {
	ep := govips.NewHeifExportParams()
	ep.Quality = quality
	ep.Lossless = lossless
	buf, _, err := m.ref.ExportHeif(ep)
	return buf, apperrors.Wrap(apperrors.CategoryOptimize, "vips.export.heic", err)
}

// ExportJXL re-encodes as JPEG XL.
func (m *Image) ExportJXL(quality int, lossless bool) ([]byte, error) {
	ep := govips.NewJxlExportParams()
	ep.Quality = quality
	ep.Lossless = lossless
	buf, _, err := m.ref.ExportJxl(ep)
	return buf, apperrors.Wrap(apperrors.CategoryOptimize, "vips.export.jxl", err)
}

// ExportWebP re-encodes as WebP; used for sampling only, the optimizer path
// encodes through the pure-Go codec.
func (m *Image) ExportWebP(quality int, lossless, strip bool) ([]byte, error) {
	ep := govips.NewWebpExportParams()
	ep.Quality = quality
	ep.Lossless = lossless
	ep.StripMetadata = strip
	buf, _, err := m.ref.ExportWebp(ep)
	return buf, apperrors.Wrap(apperrors.CategoryOptimize, "vips.export.webp", err)
}

// TIFFCompression selects the TIFF recompression codec.
type TIFFCompression int

const (
	TIFFDeflate TIFFCompression = iota
	TIFFLZW
	TIFFJPEG
)

// Method returns the result label for the compression scheme.
func (c TIFFCompression) Method() string {
	switch c {
	case TIFFLZW:
		return "tiff_lzw"
	case TIFFJPEG:
		return "tiff_jpeg"
	}
	return "tiff_adobe_deflate"
}

// ExportTIFF re-encodes as TIFF with the given compression.  Quality only
// applies to JPEG-in-TIFF.
func (m *Image) ExportTIFF(comp TIFFCompression, quality int) ([]byte, error) {
	ep := govips.NewTiffExportParams()
	switch comp {
	case TIFFLZW:
		ep.Compression = govips.TiffCompressionLzw
	case TIFFJPEG:
		ep.Compression = govips.TiffCompressionJpeg
		ep.Quality = quality
	default:
		ep.Compression = govips.TiffCompressionDeflate
	}
	buf, _, err := m.ref.ExportTiff(ep)
	return buf, apperrors.Wrap(apperrors.CategoryOptimize, "vips.export.tiff", err)
}
