package forge

import (
	"math"
	"time"

	"github.com/clipforge/clipforge/internal/probe"
)

// Resolved is an Operation reduced to concrete numeric transcoding
// parameters against the inputs' combined duration and first resolution.
// Computed once per clip; read-only afterwards.
type Resolved struct {
	// TrimStart is the effective start offset in seconds; 0 means none.
	TrimStart float64

	// DurationArg is the explicit duration the tool needs to stop cleanly
	// at a trimmed end; 0 means no duration flag.
	DurationArg float64

	// TimeScale is the playback-time multiplier; 0 means no time filtering.
	TimeScale float64

	// ScaleTo is non-nil when a resolution rescale filter is required.
	ScaleTo *probe.Resolution

	// Target is the resolution the output will have, rescaled or not.
	Target probe.Resolution

	// NoAudio mirrors the operation's audio pass-through choice.
	NoAudio bool
}

// NeedsFilter reports whether any video filtering is required, as opposed
// to a pure stream copy.
func (r Resolved) NeedsFilter() bool {
	return r.TimeScale != 0 || r.ScaleTo != nil
}

// OutputDuration is the duration the derived file is expected to have.
func (r Resolved) OutputDuration(origDuration float64) float64 {
	eff := r.effectiveDuration(origDuration)
	if r.TimeScale != 0 {
		return eff * r.TimeScale
	}
	return eff
}

// trimEnd is carried only to derive effective duration; 0 means none.
type resolveInput struct {
	origDuration float64
	firstRes     probe.Resolution
	captureStart time.Time
	hasCapture   bool
}

// Resolve computes the concrete parameters for op applied to inputs with
// the given combined original duration and first-input resolution. The
// capture start, when known, anchors absolute-time trim bounds.
func Resolve(op Operation, origDuration float64, firstRes probe.Resolution, captureStart time.Time, hasCapture bool) (Resolved, error) {
	in := resolveInput{
		origDuration: origDuration,
		firstRes:     firstRes,
		captureStart: captureStart,
		hasCapture:   hasCapture,
	}

	trimStart, hasStart, err := in.offsetOf(op.Duration.TrimStart, "trim_start")
	if err != nil {
		return Resolved{}, err
	}
	trimEnd, hasEnd, err := in.offsetOf(op.Duration.TrimEnd, "trim_end")
	if err != nil {
		return Resolved{}, err
	}

	eff := origDuration
	if hasStart || hasEnd {
		end := origDuration
		if hasEnd {
			end = trimEnd
		}
		eff = end - trimStart
	}

	var timeScale float64
	switch {
	case op.Duration.ScaleFactor != 0:
		timeScale = op.Duration.ScaleFactor
	case op.Duration.Target != 0:
		timeScale = op.Duration.Target / eff
	}

	target := in.firstRes
	var scaleTo *probe.Resolution
	switch {
	case op.Resolution.ScaleFactor != 0:
		target = probe.Resolution{
			W: int(math.Floor(float64(in.firstRes.W) * op.Resolution.ScaleFactor)),
			H: int(math.Floor(float64(in.firstRes.H) * op.Resolution.ScaleFactor)),
		}
		scaleTo = &target
	case op.Resolution.Target.W != 0:
		target = op.Resolution.Target
		scaleTo = &target
	}

	var durationArg float64
	if hasEnd {
		switch {
		case op.Duration.ScaleFactor != 0:
			durationArg = op.Duration.ScaleFactor * eff
		case op.Duration.Target != 0:
			durationArg = op.Duration.Target
		default:
			durationArg = eff
		}
	}

	var startArg float64
	if hasStart {
		startArg = trimStart
	}

	return Resolved{
		TrimStart:   startArg,
		DurationArg: durationArg,
		TimeScale:   timeScale,
		ScaleTo:     scaleTo,
		Target:      target,
		NoAudio:     op.NoAudio,
	}, nil
}

// effectiveDuration recovers the trimmed window length from the resolved
// parameters.
func (r Resolved) effectiveDuration(origDuration float64) float64 {
	if r.DurationArg != 0 {
		if r.TimeScale != 0 {
			return r.DurationArg / r.TimeScale
		}
		return r.DurationArg
	}
	return origDuration - r.TrimStart
}

// offsetOf converts one trim endpoint to an offset in seconds. Absolute
// timestamps are anchored to the first input's capture start; using one
// against inputs with no capture time is a validation error.
func (in resolveInput) offsetOf(ep *Endpoint, name string) (float64, bool, error) {
	if !ep.set() {
		return 0, false, nil
	}
	if !ep.At.IsZero() {
		if !in.hasCapture {
			return 0, false, validationErrorf(
				"%s: absolute time given but inputs carry no capture time", name)
		}
		off := ep.At.Sub(in.captureStart).Seconds()
		if off < 0 {
			return 0, false, validationErrorf(
				"%s: %s precedes capture start %s", name, ep.At, in.captureStart)
		}
		return off, off != 0, nil
	}
	return ep.Offset, true, nil
}
