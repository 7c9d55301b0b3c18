// Package video models source ("raw") and derived video files behind a
// shared capability contract, and provides a folder-scoped metadata cache
// so repeated runs do not re-probe unchanged folders.
package video

import (
	"errors"
	"time"

	"github.com/clipforge/clipforge/internal/probe"
)

// ErrMetadataUnavailable is returned when duration or resolution is
// requested before the backing file exists or when probing failed to
// determine it.
var ErrMetadataUnavailable = errors.New("metadata not yet available")

// Entity is the capability contract shared by raw videos and forged clips.
type Entity interface {
	// Path returns the filesystem location. It is the identity key within
	// a derivation session.
	Path() string

	// Resolution returns pixel dimensions, or ErrMetadataUnavailable.
	Resolution() (probe.Resolution, error)

	// Duration returns length in seconds, or ErrMetadataUnavailable.
	Duration() (float64, error)

	// Valid reports whether both duration and resolution could be probed.
	Valid() bool

	// CaptureRange returns the time window the footage was recorded over,
	// when known. end is always start plus duration.
	CaptureRange() (start, end time.Time, ok bool)
}
