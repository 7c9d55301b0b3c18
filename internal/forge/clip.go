package forge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/clipforge/clipforge/internal/probe"
	"github.com/clipforge/clipforge/internal/task"
	"github.com/clipforge/clipforge/internal/video"
)

// metaState tracks clip metadata through its lifecycle: unknown until
// resolvable, provisional once derived arithmetically from the inputs,
// confirmed once the output file exists and has been probed.
type metaState int

const (
	metaUnknown metaState = iota
	metaProvisional
	metaConfirmed
)

// Clip is a video entity produced by one derivation. It owns its resolved
// parameters, the synthesized command, and the task that materializes it.
type Clip struct {
	session *Context
	path    string
	inputs  []video.Entity

	op       Operation
	resolved Resolved

	state        metaState
	valid        bool
	duration     float64
	resolution   probe.Resolution
	captureStart time.Time
	captureEnd   time.Time
	hasCapture   bool

	task *task.Task
}

// newClip validates the inputs, resolves the operation against them and
// prepares the derivation task. No subprocess is invoked here.
func newClip(session *Context, output string, inputs []video.Entity, op Operation) (*Clip, error) {
	if len(inputs) == 0 {
		return nil, validationErrorf("no valid inputs for %s", output)
	}

	firstRes, err := inputs[0].Resolution()
	if err != nil {
		return nil, err
	}
	var origDuration float64
	for _, in := range inputs {
		res, err := in.Resolution()
		if err != nil {
			return nil, err
		}
		if res != firstRes {
			return nil, validationErrorf(
				"mixed input resolutions: %s is %s, %s is %s",
				inputs[0].Path(), firstRes, in.Path(), res)
		}
		d, err := in.Duration()
		if err != nil {
			return nil, err
		}
		origDuration += d
	}

	captureStart, _, hasCapture := inputs[0].CaptureRange()

	resolved, err := Resolve(op, origDuration, firstRes, captureStart, hasCapture)
	if err != nil {
		return nil, err
	}

	c := &Clip{
		session:  session,
		path:     output,
		inputs:   inputs,
		op:       op,
		resolved: resolved,
	}

	if _, err := os.Stat(output); err == nil {
		// Output already exists; metadata comes straight from the file.
		c.refreshMetadata(context.Background())
	} else {
		c.setProvisional(origDuration, captureStart, hasCapture)
	}

	c.prepareTask()
	return c, nil
}

// setProvisional derives metadata arithmetically from the inputs and the
// resolved operation, pending confirmation by a post-build probe.
func (c *Clip) setProvisional(origDuration float64, captureStart time.Time, hasCapture bool) {
	c.state = metaProvisional
	c.valid = true
	c.duration = c.resolved.OutputDuration(origDuration)
	c.resolution = c.resolved.Target
	if hasCapture {
		c.captureStart = captureStart.Add(time.Duration(c.resolved.TrimStart * float64(time.Second)))
		c.captureEnd = c.captureStart.Add(time.Duration(c.duration * float64(time.Second)))
		c.hasCapture = true
	}
}

// refreshMetadata probes the backing file; the probed values are
// authoritative over the provisional arithmetic.
func (c *Clip) refreshMetadata(ctx context.Context) {
	res := c.session.prober.Probe(ctx, c.path)
	c.state = metaConfirmed
	c.valid = res.Valid
	if res.Duration != nil {
		c.duration = *res.Duration
	}
	if res.Resolution != nil {
		c.resolution = *res.Resolution
	}
	if c.hasCapture {
		c.captureEnd = c.captureStart.Add(time.Duration(c.duration * float64(time.Second)))
	}
}

// prepareTask synthesizes the command and registers the derivation: run
// ffmpeg, then re-probe the output. A non-zero exit is reported as a
// graceful task failure so unrelated graph branches still complete.
func (c *Clip) prepareTask() {
	deps := make([]string, len(c.inputs))
	for i, in := range c.inputs {
		deps[i] = in.Path()
	}

	c.task = &task.Task{
		Name:   c.path,
		Deps:   deps,
		Target: c.path,
		Action: func(ctx context.Context) error {
			var manifest string
			if len(deps) > 1 {
				var err error
				manifest, err = WriteConcatManifest(c.session.cfg.ScratchDir, deps)
				if err != nil {
					return err
				}
				defer os.Remove(manifest)
			}

			args := BuildArgs(c.session.cfg.FFmpegPath, c.resolved, deps, manifest, c.path)
			c.session.log.Debug().Strs("args", args).Msg("running ffmpeg")

			cmd := exec.CommandContext(ctx, args[0], args[1:]...)
			var stderr bytes.Buffer
			cmd.Stderr = &stderr
			if err := cmd.Run(); err != nil {
				return fmt.Errorf("ffmpeg %s: %w: %s", c.path, err, stderr.String())
			}

			c.refreshMetadata(ctx)
			return nil
		},
	}
}

// Reforge registers a new clip derived from this one; its task depends on
// this clip's output file and so builds it first.
func (c *Clip) Reforge(output string, op Operation) (*Clip, error) {
	return c.session.Forge(output, []Input{Entity(c)}, op)
}

func (c *Clip) Path() string { return c.path }

func (c *Clip) Valid() bool { return c.valid }

func (c *Clip) Duration() (float64, error) {
	if c.state == metaUnknown {
		return 0, fmt.Errorf("duration of %s: %w", c.path, video.ErrMetadataUnavailable)
	}
	return c.duration, nil
}

func (c *Clip) Resolution() (probe.Resolution, error) {
	if c.state == metaUnknown {
		return probe.Resolution{}, fmt.Errorf("resolution of %s: %w", c.path, video.ErrMetadataUnavailable)
	}
	return c.resolution, nil
}

func (c *Clip) CaptureRange() (time.Time, time.Time, bool) {
	if !c.hasCapture {
		return time.Time{}, time.Time{}, false
	}
	return c.captureStart, c.captureEnd, true
}

// Resolved exposes the concrete parameters this clip was resolved to.
func (c *Clip) Resolved() Resolved { return c.resolved }

// Task exposes the derivation task, e.g. for inspection in tests.
func (c *Clip) Task() *task.Task { return c.task }
