package errors

import (
	"errors"
	"fmt"
	"time"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryDetect    Category = "detect"
	CategoryOptimize  Category = "optimize"
	CategoryEstimate  Category = "estimate"
	CategoryTool      Category = "tool"
	CategoryConfig    Category = "config"
	CategoryTransient Category = "transient"
	CategoryInput     Category = "input"
)

// ProcessingError is the structured error type used throughout the module.
type ProcessingError struct {
	Category  Category
	Op        string // operation name
	Err       error
	Retryable bool
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a non-retryable ProcessingError.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// Transient creates a retryable ProcessingError.
func Transient(op string, err error) *ProcessingError {
	return &ProcessingError{Category: CategoryTransient, Op: op, Err: err, Retryable: true}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedFormat  = errors.New("unsupported image format")
	ErrEmptyInput         = errors.New("empty input")
	ErrInputTooLarge      = errors.New("input exceeds size limit")
	ErrInvalidConfig      = errors.New("invalid optimization config")
	ErrInvalidPreset      = errors.New("invalid preset")
	ErrOverloaded         = errors.New("service overloaded")
	ErrToolUnavailable    = errors.New("external tool unavailable")
	ErrOptimizationFailed = errors.New("optimization failed")
)

// OverloadedError is returned when the compression gate rejects a request
// because its wait queue is full.  Callers should retry after RetryAfter.
type OverloadedError struct {
	RetryAfter time.Duration
}

func (e *OverloadedError) Error() string {
	return fmt.Sprintf("service overloaded, retry after %s", e.RetryAfter)
}

func (e *OverloadedError) Unwrap() error { return ErrOverloaded }

// ToolTimeoutError reports that an external tool exceeded its per-call
// timeout and was killed.
type ToolTimeoutError struct {
	Tool    string
	Timeout time.Duration
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("tool %s timed out after %s", e.Tool, e.Timeout)
}

// ToolError reports a non-zero exit from an external tool, carrying the
// captured stderr for diagnostics.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s exited with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

func (e *ToolError) Unwrap() error { return ErrOptimizationFailed }
