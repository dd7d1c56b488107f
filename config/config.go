package config

import (
	"errors"
	"time"
)

// JPEGEncoder selects the lossy JPEG re-encode pipeline.
type JPEGEncoder string

const (
	// EncoderJpegli re-encodes in process through the libvips backend.
	EncoderJpegli JPEGEncoder = "jpegli"
	// EncoderMozJPEG pipes through the cjpeg binary (MozJPEG build).
	EncoderMozJPEG JPEGEncoder = "cjpeg"
)

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Config{} and override only what they need.
type Config struct {
	// Compression gate controls.
	Permits  int // concurrent optimizations; default: runtime.NumCPU()
	QueueCap int // waiters allowed beyond permits; default: 2 * Permits

	// External tool execution.
	ToolTimeout time.Duration     // per-invocation; default 60s
	ToolPaths   map[string]string // binary path overrides keyed by tool name

	// Input limits.
	MaxFileBytes int64 // 0 = no limit; default 32 MiB

	// Default encode options applied when the caller does not override.
	DefaultQuality int         // 1-100; default 80
	JPEGPipeline   JPEGEncoder // default: jpegli

	// Estimation.
	SampleTimeout time.Duration // sampling budget before heuristic fallback; default 3s

	// Streaming / memory limits.
	ChunkSize int // streaming chunk size in bytes; default 32 KiB

	// libvips backend tuning.
	VipsConcurrency int // 0 = NumCPU
	VipsCacheMax    int

	// Logging / metrics.
	LogLevel string // "debug", "info", "warn", "error"
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		Permits:        0, // resolved at runtime to NumCPU
		QueueCap:       0, // resolved at runtime to 2 * Permits
		ToolTimeout:    60 * time.Second,
		MaxFileBytes:   32 * 1024 * 1024,
		DefaultQuality: 80,
		JPEGPipeline:   EncoderJpegli,
		SampleTimeout:  3 * time.Second,
		ChunkSize:      32 * 1024,
		LogLevel:       "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.Permits < 0 || c.QueueCap < 0 {
		return errors.New("config: Permits and QueueCap must be non-negative")
	}
	if c.ToolTimeout <= 0 {
		return errors.New("config: ToolTimeout must be positive")
	}
	if c.SampleTimeout <= 0 {
		return errors.New("config: SampleTimeout must be positive")
	}
	switch c.JPEGPipeline {
	case EncoderJpegli, EncoderMozJPEG, "":
	default:
		return errors.New("config: JPEGPipeline must be jpegli or cjpeg")
	}
	return nil
}
