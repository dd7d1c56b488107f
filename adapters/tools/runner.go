// Package tools runs the external compression binaries (pngquant, oxipng,
// jpegtran, cjpeg, gifsicle, cwebp) over stdin/stdout pipes with per-call
// timeouts.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	apperrors "github.com/amitray007/pare/errors"
	"github.com/amitray007/pare/utils"
)

// Tool names understood by the runner.  Paths may be overridden per tool.
const (
	Pngquant = "pngquant"
	Oxipng   = "oxipng"
	Jpegtran = "jpegtran"
	Cjpeg    = "cjpeg"
	Gifsicle = "gifsicle"
	Cwebp    = "cwebp"
)

// KnownTools lists every binary the optimizers may reach for, for the health
// reporting surface.
var KnownTools = []string{Pngquant, Oxipng, Jpegtran, Cjpeg, Gifsicle, Cwebp}

// Runner executes external tools with captured stdio.  Availability probes
// are cached for the lifetime of the Runner.  Safe for concurrent use.
type Runner struct {
	timeout time.Duration
	paths   map[string]string

	mu    sync.Mutex
	avail map[string]string // tool name -> resolved path ("" = missing)
}

// NewRunner creates a Runner with the given per-call timeout and optional
// path overrides.  A zero timeout falls back to 60 seconds.
func NewRunner(timeout time.Duration, paths map[string]string) *Runner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Runner{
		timeout: timeout,
		paths:   paths,
		avail:   make(map[string]string),
	}
}

// Available reports whether the tool resolves to an executable.
func (r *Runner) Available(tool string) bool {
	return r.resolve(tool) != ""
}

// Availability returns the probe result for every known tool.
func (r *Runner) Availability() map[string]bool {
	out := make(map[string]bool, len(KnownTools))
	for _, t := range KnownTools {
		out[t] = r.Available(t)
	}
	return out
}

func (r *Runner) resolve(tool string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path, ok := r.avail[tool]; ok {
		return path
	}
	target := tool
	if override, ok := r.paths[tool]; ok && override != "" {
		target = override
	}
	path, err := exec.LookPath(target)
	if err != nil {
		path = ""
	}
	r.avail[tool] = path
	return path
}

// Run pipes stdin through the tool and returns captured stdout.  The call is
// bounded by the runner timeout; on expiry the process is killed and a
// ToolTimeoutError returned.  Exit codes listed in allowedExits are treated
// as a soft failure: Run returns (nil, code, nil) so the caller can discard
// the candidate.  Any other non-zero exit becomes a ToolError carrying
// stderr.
func (r *Runner) Run(ctx context.Context, tool string, args []string, stdin []byte, allowedExits ...int) ([]byte, int, error) {
	path := r.resolve(tool)
	if path == "" {
		return nil, 0, apperrors.New(apperrors.CategoryTool, "tools.run",
			fmt.Errorf("%w: %s", apperrors.ErrToolUnavailable, tool))
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	stdout := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(stdout)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, 0, apperrors.New(apperrors.CategoryTool, "tools.run",
			&apperrors.ToolTimeoutError{Tool: tool, Timeout: r.timeout})
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			for _, allowed := range allowedExits {
				if code == allowed {
					return nil, code, nil
				}
			}
			return nil, code, apperrors.New(apperrors.CategoryTool, "tools.run", &apperrors.ToolError{
				Tool:     tool,
				ExitCode: code,
				Stderr:   trimStderr(stderr.String()),
			})
		}
		return nil, 0, apperrors.Wrap(apperrors.CategoryTool, "tools.run", err)
	}
	return utils.CloneBytes(stdout.Bytes()), 0, nil
}

// trimStderr caps diagnostics at 2 KiB so tool noise never bloats errors.
func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 2048 {
		s = s[:2048]
	}
	return s
}
