//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"testing"
)

func requireTools(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Fatalf("%s is required for itest: %v", tool, err)
		}
	}
}

func probeDurationSeconds(t *testing.T, path string) float64 {
	t.Helper()
	out := probeQuery(t, path,
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
	)
	sec, err := strconv.ParseFloat(out, 64)
	if err != nil {
		t.Fatalf("parse duration %q: %v", out, err)
	}
	return sec
}

func probeDimensions(t *testing.T, path string) (int, int) {
	t.Helper()
	out := probeQuery(t, path,
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
	)
	parts := strings.Split(out, "x")
	if len(parts) != 2 {
		t.Fatalf("unexpected dimensions %q", out)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		t.Fatalf("parse width %q: %v", parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		t.Fatalf("parse height %q: %v", parts[1], err)
	}
	return w, h
}

func probeQuery(t *testing.T, path string, args ...string) string {
	t.Helper()
	cmd := exec.Command("ffprobe", append([]string{"-v", "error"}, append(args, path)...)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("ffprobe %s: %v\n%s", path, err, string(b))
	}
	return strings.TrimSpace(string(b))
}

// generateFixture synthesizes an mp4 with a solid color video stream and a
// sine audio stream of the given duration.
func generateFixture(t *testing.T, path string, seconds int, size string) {
	t.Helper()
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%s:d=%d", size, seconds),
		"-f", "lavfi",
		"-i", fmt.Sprintf("sine=frequency=440:duration=%d", seconds),
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		path,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
}
