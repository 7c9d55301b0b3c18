package forge

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// BuildArgs synthesizes the ordered ffmpeg argument vector. Several flags
// are position-sensitive: -ss must precede -i (after it, the output starts
// with a frozen frame), -t applies to the output, and stream copy and
// -filter:v are mutually exclusive.
//
// manifest is the concat manifest path for multi-input jobs; ignored for a
// single input.
func BuildArgs(ffmpegPath string, r Resolved, inputs []string, manifest, output string) []string {
	args := []string{ffmpegPath, "-loglevel", "error", "-y"}

	if r.TrimStart != 0 {
		args = append(args, "-ss", formatSeconds(r.TrimStart))
	}

	if len(inputs) == 1 {
		args = append(args, "-i", inputs[0])
	} else {
		args = append(args, "-f", "concat", "-safe", "0", "-i", manifest)
	}

	if r.DurationArg != 0 {
		args = append(args, "-t", formatSeconds(r.DurationArg))
	}

	if r.NeedsFilter() {
		args = append(args, "-filter:v", filterExpr(r))
	} else {
		args = append(args, "-c", "copy")
	}

	if r.NoAudio {
		args = append(args, "-an")
	}

	return append(args, output)
}

// filterExpr builds the -filter:v value: a setpts stage when time-scaling,
// then a scale stage when rescaling resolution.
func filterExpr(r Resolved) string {
	var stages []string
	if r.TimeScale != 0 {
		stages = append(stages, fmt.Sprintf("setpts=%s*PTS", formatSeconds(r.TimeScale)))
	}
	if r.ScaleTo != nil {
		stages = append(stages, fmt.Sprintf("scale=%d:%d", r.ScaleTo.W, r.ScaleTo.H))
	}
	return strings.Join(stages, ",")
}

// WriteConcatManifest writes the transient concat manifest: one quoted
// absolute path per line, consumed only by the invocation that created it.
// The caller removes the file once the invocation finishes.
func WriteConcatManifest(scratchDir string, inputs []string) (string, error) {
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return "", fmt.Errorf("resolve input path: %w", err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}

	path := filepath.Join(scratchDir, "clipforge-concat-"+uuid.NewString()+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat manifest: %w", err)
	}
	return path, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
