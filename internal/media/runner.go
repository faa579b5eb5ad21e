package media

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
)

// Runner executes an external command and returns its combined output.
// A non-zero exit must come back as an error.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run executes name with args and waits for it to finish
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return output, apperrors.NewTimeoutError(fmt.Sprintf("%s interrupted", name), ctx.Err())
		}
		return output, apperrors.NewSubprocessError(
			fmt.Sprintf("%s failed: %s", name, tail(string(output), 800)), err)
	}
	return output, nil
}

// Prober measures media durations with ffprobe
type Prober struct {
	runner Runner
}

// NewProber creates a prober that shells out through runner
func NewProber(runner Runner) *Prober {
	return &Prober{runner: runner}
}

// DurationMs returns the container duration of path in milliseconds
func (p *Prober) DurationMs(ctx context.Context, path string) (int64, error) {
	out, err := p.runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return ParseDurationMs(string(out))
}

// ParseDurationMs converts ffprobe's seconds output into rounded milliseconds
func ParseDurationMs(out string) (int64, error) {
	value := strings.TrimSpace(out)
	if i := strings.IndexByte(value, '\n'); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || secs < 0 {
		return 0, apperrors.NewSubprocessError(fmt.Sprintf("unexpected ffprobe output %q", out), err)
	}
	return int64(math.Round(secs * 1000)), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
