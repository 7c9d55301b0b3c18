// Package forge derives new clips from video entities: it resolves a
// declarative operation into concrete transcoding parameters, synthesizes
// the ffmpeg invocation, and registers the derivation as a task in a
// session-wide dependency graph.
package forge

import (
	"time"

	"github.com/clipforge/clipforge/internal/probe"
)

// Endpoint is one trim bound, given either as an offset in seconds from
// the start of the input(s) or as an absolute capture timestamp. Setting
// both is a validation error. Zero values mean "unset": an offset of
// exactly 0.0 is indistinguishable from no trim, and means the same thing.
type Endpoint struct {
	Offset float64
	At     time.Time
}

func (e *Endpoint) set() bool {
	return e != nil && (e.Offset != 0 || !e.At.IsZero())
}

// DurationSpec adjusts output duration by trimming and/or scaling.
// ScaleFactor and Target are mutually exclusive.
type DurationSpec struct {
	// ScaleFactor rescales duration by the given factor.
	ScaleFactor float64

	// Target rescales duration to the given value in seconds.
	Target float64

	// TrimStart and TrimEnd bound the input window considered.
	TrimStart *Endpoint
	TrimEnd   *Endpoint
}

func (s DurationSpec) validate() error {
	if s.ScaleFactor != 0 && s.Target != 0 {
		return validationErrorf(
			"cannot provide both duration scale factor and target: scale_factor=%v, target=%v",
			s.ScaleFactor, s.Target)
	}
	for name, ep := range map[string]*Endpoint{"trim_start": s.TrimStart, "trim_end": s.TrimEnd} {
		if ep != nil && ep.Offset != 0 && !ep.At.IsZero() {
			return validationErrorf("%s: offset and absolute time are mutually exclusive", name)
		}
	}
	return nil
}

// ResolutionSpec adjusts output resolution. ScaleFactor and Target are
// mutually exclusive.
type ResolutionSpec struct {
	// ScaleFactor rescales both dimensions by the given factor.
	ScaleFactor float64

	// Target rescales to the given resolution. Zero means unset.
	Target probe.Resolution
}

func (s ResolutionSpec) validate() error {
	if s.ScaleFactor != 0 && s.Target.W != 0 {
		return validationErrorf(
			"cannot provide both resolution scale factor and target: scale_factor=%v, target=%v",
			s.ScaleFactor, s.Target)
	}
	return nil
}

// Operation is the user-supplied, immutable description of one derivation.
// The zero value concatenates inputs unchanged, with audio passed through.
// Zero-valued numeric fields mean "not specified" throughout.
type Operation struct {
	Duration   DurationSpec
	Resolution ResolutionSpec

	// NoAudio disables audio pass-through.
	NoAudio bool

	// Cache writes a folder cache sidecar after scanning folder inputs
	// that did not have one yet.
	Cache bool

	// Recurse descends into subfolders of folder inputs.
	Recurse bool
}

// Validate enforces mutual exclusivity of scale-factor and absolute-target
// fields. Context.Forge calls it before any probing or subprocess work.
func (o Operation) Validate() error {
	if err := o.Duration.validate(); err != nil {
		return err
	}
	return o.Resolution.validate()
}
