package forge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/probe"
	"github.com/clipforge/clipforge/internal/task"
	"github.com/clipforge/clipforge/internal/video"
)

// fakeProber serves canned results per path and counts invocations.
type fakeProber struct {
	mu      sync.Mutex
	results map[string]probe.Result
	calls   map[string]int
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		results: map[string]probe.Result{},
		calls:   map[string]int{},
	}
}

func (f *fakeProber) set(path string, duration float64, w, h int) {
	f.results[path] = probe.Result{
		Duration:   &duration,
		Resolution: &probe.Resolution{W: w, H: h},
		Valid:      true,
	}
}

func (f *fakeProber) Probe(_ context.Context, path string) probe.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	if res, ok := f.results[path]; ok {
		return res
	}
	return probe.Result{}
}

// writeFakeFFmpeg installs a stand-in tool that writes its last argument.
func writeFakeFFmpeg(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nfor last in \"$@\"; do :; done\nprintf 'video' > \"$last\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func newTestSession(t *testing.T) (*Context, *fakeProber, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		FFmpegPath:  writeFakeFFmpeg(t, dir),
		FFprobePath: "unused",
		ScratchDir:  dir,
		LogLevel:    "info",
	}
	prober := newFakeProber()
	return NewContext(cfg, prober, zerolog.Nop()), prober, dir
}

func writeInput(t *testing.T, prober *fakeProber, dir, name string, duration float64, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("input"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	prober.set(path, duration, w, h)
	return path
}

func TestForge_ConcatTwoInputs(t *testing.T) {
	t.Parallel()

	session, prober, dir := newTestSession(t)
	in1 := writeInput(t, prober, dir, "in1.mp4", 2.0, 1920, 1080)
	in2 := writeInput(t, prober, dir, "in2.mp4", 3.0, 1920, 1080)
	output := filepath.Join(dir, "clip.mp4")
	prober.set(output, 5.0, 1920, 1080)

	clip, err := session.Forge(output, []Input{Path(in1), Path(in2)}, Operation{})
	if err != nil {
		t.Fatalf("forge: %v", err)
	}

	// Construction is synchronous, execution deferred.
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("output must not exist before doit, stat err=%v", err)
	}
	if d, err := clip.Duration(); err != nil || d != 5.0 {
		t.Fatalf("provisional duration: got %v, %v", d, err)
	}

	if err := session.Doit(context.Background()); err != nil {
		t.Fatalf("doit: %v", err)
	}

	if _, err := os.Stat(output); err != nil {
		t.Fatalf("missing output: %v", err)
	}
	d, err := clip.Duration()
	if err != nil || d != 5.0 {
		t.Fatalf("confirmed duration: got %v, %v", d, err)
	}
	if prober.calls[output] != 1 {
		t.Fatalf("expected exactly one post-build probe of the output, got %d", prober.calls[output])
	}
	res, err := clip.Resolution()
	if err != nil || (res != probe.Resolution{W: 1920, H: 1080}) {
		t.Fatalf("resolution: got %v, %v", res, err)
	}
}

func TestForge_MixedResolutionsRejected(t *testing.T) {
	t.Parallel()

	session, prober, dir := newTestSession(t)
	in1 := writeInput(t, prober, dir, "in1.mp4", 2.0, 1920, 1080)
	in2 := writeInput(t, prober, dir, "in2.mp4", 2.0, 1280, 720)

	_, err := session.Forge(filepath.Join(dir, "clip.mp4"), []Input{Path(in1), Path(in2)}, Operation{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestForge_ConflictingOperationRejected(t *testing.T) {
	t.Parallel()

	session, prober, dir := newTestSession(t)
	in := writeInput(t, prober, dir, "in.mp4", 2.0, 1920, 1080)

	op := Operation{Duration: DurationSpec{ScaleFactor: 2.0, Target: 5.0}}
	_, err := session.Forge(filepath.Join(dir, "clip.mp4"), []Input{Path(in)}, op)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(prober.calls) != 0 {
		t.Fatalf("operation must be validated before any probing, probed %v", prober.calls)
	}
}

func TestForge_InvalidInputsFiltered(t *testing.T) {
	t.Parallel()

	session, prober, dir := newTestSession(t)
	good := writeInput(t, prober, dir, "good.mp4", 2.0, 1920, 1080)
	bad := filepath.Join(dir, "bad.mp4")
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	// No canned result for bad.mp4: its probe fails, Valid=false.

	output := filepath.Join(dir, "clip.mp4")
	prober.set(output, 2.0, 1920, 1080)

	clip, err := session.Forge(output, []Input{Path(good), Path(bad)}, Operation{})
	if err != nil {
		t.Fatalf("forge: %v", err)
	}
	if deps := clip.Task().Deps; len(deps) != 1 || deps[0] != good {
		t.Fatalf("expected invalid input filtered out, deps=%v", deps)
	}
}

func TestForge_AllInputsInvalid(t *testing.T) {
	t.Parallel()

	session, _, dir := newTestSession(t)
	bad := filepath.Join(dir, "bad.mp4")
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	_, err := session.Forge(filepath.Join(dir, "clip.mp4"), []Input{Path(bad)}, Operation{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestForge_FolderInputWithCache(t *testing.T) {
	t.Parallel()

	session, prober, dir := newTestSession(t)
	folder := filepath.Join(dir, "footage")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeInput(t, prober, folder, "a.mp4", 1.0, 1920, 1080)
	writeInput(t, prober, folder, "b.mp4", 2.0, 1920, 1080)

	output := filepath.Join(dir, "clip.mp4")
	prober.set(output, 3.0, 1920, 1080)

	clip, err := session.Forge(output, []Input{Path(folder)}, Operation{Cache: true})
	if err != nil {
		t.Fatalf("forge: %v", err)
	}
	if len(clip.Task().Deps) != 2 {
		t.Fatalf("expected 2 folder inputs, got %v", clip.Task().Deps)
	}
	if _, err := os.Stat(filepath.Join(folder, video.CacheFilename)); err != nil {
		t.Fatalf("cache sidecar not written: %v", err)
	}

	// A second session over the same folder must trust the sidecar and
	// not re-probe.
	before := prober.calls[filepath.Join(folder, "a.mp4")]
	session2, _, _ := newTestSession(t)
	session2.prober = prober
	if _, err := session2.Forge(filepath.Join(dir, "clip2.mp4"), []Input{Path(folder)}, Operation{}); err != nil {
		t.Fatalf("forge from cache: %v", err)
	}
	if prober.calls[filepath.Join(folder, "a.mp4")] != before {
		t.Fatalf("folder entries re-probed despite sidecar")
	}
}

func TestReforge_DependsOnOriginal(t *testing.T) {
	t.Parallel()

	session, prober, dir := newTestSession(t)
	in := writeInput(t, prober, dir, "in.mp4", 10.0, 1920, 1080)

	first := filepath.Join(dir, "first.mp4")
	second := filepath.Join(dir, "second.mp4")
	prober.set(first, 10.0, 1920, 1080)
	prober.set(second, 5.0, 1920, 1080)

	clip, err := session.Forge(first, []Input{Path(in)}, Operation{})
	if err != nil {
		t.Fatalf("forge: %v", err)
	}
	clip2, err := clip.Reforge(second, Operation{Duration: DurationSpec{Target: 5.0}})
	if err != nil {
		t.Fatalf("reforge: %v", err)
	}

	deps := clip2.Task().Deps
	if len(deps) != 1 || deps[0] != first {
		t.Fatalf("reforge must depend solely on the original output, deps=%v", deps)
	}

	if err := session.Doit(context.Background()); err != nil {
		t.Fatalf("doit: %v", err)
	}
	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
}

func TestDoit_FailureLeavesIndependentClipsIntact(t *testing.T) {
	t.Parallel()

	session, prober, dir := newTestSession(t)
	in := writeInput(t, prober, dir, "in.mp4", 2.0, 1920, 1080)

	good := filepath.Join(dir, "good.mp4")
	prober.set(good, 2.0, 1920, 1080)
	// The fake tool cannot write into a missing directory.
	bad := filepath.Join(dir, "missing-dir", "bad.mp4")

	if _, err := session.Forge(good, []Input{Path(in)}, Operation{}); err != nil {
		t.Fatalf("forge good: %v", err)
	}
	if _, err := session.Forge(bad, []Input{Path(in)}, Operation{}); err != nil {
		t.Fatalf("forge bad: %v", err)
	}

	err := session.Doit(context.Background())
	var berr *task.BuildError
	if !errors.As(err, &berr) {
		t.Fatalf("expected BuildError, got %v", err)
	}
	if berr.Failed != 1 {
		t.Fatalf("expected exactly the invalid derivation to fail, got %d", berr.Failed)
	}
	if _, err := os.Stat(good); err != nil {
		t.Fatalf("independent clip must still be built: %v", err)
	}
}

func TestClip_ExistingOutputProbedDirectly(t *testing.T) {
	t.Parallel()

	session, prober, dir := newTestSession(t)
	in := writeInput(t, prober, dir, "in.mp4", 2.0, 1920, 1080)

	output := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(output, []byte("already there"), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}
	prober.set(output, 2.0, 1920, 1080)

	clip, err := session.Forge(output, []Input{Path(in)}, Operation{})
	if err != nil {
		t.Fatalf("forge: %v", err)
	}
	if prober.calls[output] != 1 {
		t.Fatalf("existing output must be probed at construction, calls=%d", prober.calls[output])
	}
	if d, err := clip.Duration(); err != nil || d != 2.0 {
		t.Fatalf("duration from existing file: got %v, %v", d, err)
	}
}
