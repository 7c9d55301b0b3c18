// Package probe extracts duration and pixel dimensions from media files by
// invoking ffprobe. Probing failure is a property of the file, not a
// transient fault: it is reported as Valid=false, never retried.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Resolution is a pixel width/height pair.
type Resolution struct {
	W int
	H int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%d:%d", r.W, r.H)
}

// Result holds the outcome of probing a single file. A nil field means the
// corresponding query failed; Valid is true only when both succeeded.
type Result struct {
	Duration   *float64
	Resolution *Resolution
	Valid      bool
}

// Prober extracts metadata from a single media file.
type Prober interface {
	Probe(ctx context.Context, path string) Result
}

// Runner is the exec-backed Prober.
type Runner struct {
	ffprobe string
}

// NewRunner returns a Runner invoking the given ffprobe binary.
func NewRunner(ffprobePath string) *Runner {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Runner{ffprobe: ffprobePath}
}

// Probe runs two ffprobe queries against path: container duration and
// first-video-stream dimensions. Each query is independent; a non-zero
// exit, any stderr output or empty stdout marks that field unavailable.
func (r *Runner) Probe(ctx context.Context, path string) Result {
	var res Result

	if out, ok := r.query(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	); ok {
		if d, err := strconv.ParseFloat(out, 64); err == nil {
			res.Duration = &d
		}
	}

	if out, ok := r.query(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	); ok {
		if dims, err := parseDimensions(out); err == nil {
			res.Resolution = &dims
		}
	}

	res.Valid = res.Duration != nil && res.Resolution != nil
	return res
}

// query runs one ffprobe invocation and returns trimmed stdout. ok is false
// on non-zero exit, stderr output or empty stdout.
func (r *Runner) query(ctx context.Context, args ...string) (string, bool) {
	cmd := exec.CommandContext(ctx, r.ffprobe, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", false
	}
	if stderr.Len() > 0 {
		return "", false
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", false
	}
	return out, true
}

func parseDimensions(s string) (Resolution, error) {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("unexpected dimensions %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Resolution{}, fmt.Errorf("parse width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Resolution{}, fmt.Errorf("parse height %q: %w", parts[1], err)
	}
	return Resolution{W: w, H: h}, nil
}
