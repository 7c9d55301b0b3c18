package video

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/clipforge/clipforge/internal/probe"
)

// Metadata is the cacheable per-file record for a raw video. Filename is
// relative to the scanned folder root so a cache stays portable when the
// folder is moved as a whole.
type Metadata struct {
	Filename     string     `yaml:"filename"`
	Valid        bool       `yaml:"valid"`
	Duration     *float64   `yaml:"duration"`
	Resolution   *[2]int    `yaml:"resolution"`
	CaptureStart *time.Time `yaml:"capture_start,omitempty"`
	CaptureEnd   *time.Time `yaml:"capture_end,omitempty"`
}

// ExtractMetadata probes path and builds its Metadata record. filename is
// the value stored in the record; pass a folder-relative path when scanning
// a folder, or the base name otherwise.
func ExtractMetadata(ctx context.Context, p probe.Prober, path, filename string) Metadata {
	res := p.Probe(ctx, path)

	meta := Metadata{
		Filename: filename,
		Valid:    res.Valid,
		Duration: res.Duration,
	}
	if res.Resolution != nil {
		meta.Resolution = &[2]int{res.Resolution.W, res.Resolution.H}
	}
	return meta
}

// RawVideo is a single pre-existing video file. Its metadata is populated
// at construction and never mutated.
type RawVideo struct {
	path    string
	meta    Metadata
	profile *Profile
}

// NewRawVideo probes path and wraps it as a RawVideo. The profile is
// reserved for capture-time extraction from the on-screen timestamp region
// and does not affect duration or resolution.
func NewRawVideo(ctx context.Context, p probe.Prober, path string, prof *Profile) *RawVideo {
	meta := ExtractMetadata(ctx, p, path, filepath.Base(path))
	return NewRawVideoFromMetadata(path, meta, prof)
}

// NewRawVideoFromMetadata wraps path using an already-extracted record,
// avoiding a re-probe. Used when hydrating from a folder cache.
func NewRawVideoFromMetadata(path string, meta Metadata, prof *Profile) *RawVideo {
	return &RawVideo{path: path, meta: meta, profile: prof}
}

func (v *RawVideo) Path() string { return v.path }

func (v *RawVideo) Valid() bool { return v.meta.Valid }

func (v *RawVideo) Duration() (float64, error) {
	if v.meta.Duration == nil {
		return 0, fmt.Errorf("duration of %s: %w", v.path, ErrMetadataUnavailable)
	}
	return *v.meta.Duration, nil
}

func (v *RawVideo) Resolution() (probe.Resolution, error) {
	if v.meta.Resolution == nil {
		return probe.Resolution{}, fmt.Errorf("resolution of %s: %w", v.path, ErrMetadataUnavailable)
	}
	return probe.Resolution{W: v.meta.Resolution[0], H: v.meta.Resolution[1]}, nil
}

func (v *RawVideo) CaptureRange() (time.Time, time.Time, bool) {
	if v.meta.CaptureStart == nil || v.meta.CaptureEnd == nil {
		return time.Time{}, time.Time{}, false
	}
	return *v.meta.CaptureStart, *v.meta.CaptureEnd, true
}

// Metadata returns the underlying record, e.g. for cache serialization.
func (v *RawVideo) Metadata() Metadata { return v.meta }
