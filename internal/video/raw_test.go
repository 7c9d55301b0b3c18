package video

import (
	"errors"
	"testing"
	"time"
)

func TestRawVideo_UnavailableMetadata(t *testing.T) {
	t.Parallel()

	v := NewRawVideoFromMetadata("/footage/bad.mp4", Metadata{Filename: "bad.mp4"}, nil)

	if v.Valid() {
		t.Fatal("video without probed metadata must be invalid")
	}
	if _, err := v.Duration(); !errors.Is(err, ErrMetadataUnavailable) {
		t.Fatalf("duration: got %v, want ErrMetadataUnavailable", err)
	}
	if _, err := v.Resolution(); !errors.Is(err, ErrMetadataUnavailable) {
		t.Fatalf("resolution: got %v, want ErrMetadataUnavailable", err)
	}
	if _, _, ok := v.CaptureRange(); ok {
		t.Fatal("capture range must be unknown")
	}
}

func TestRawVideo_CaptureRange(t *testing.T) {
	t.Parallel()

	d := 30.0
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Second)
	v := NewRawVideoFromMetadata("/footage/a.mp4", Metadata{
		Filename:     "a.mp4",
		Valid:        true,
		Duration:     &d,
		Resolution:   &[2]int{1920, 1080},
		CaptureStart: &start,
		CaptureEnd:   &end,
	}, nil)

	s, e, ok := v.CaptureRange()
	if !ok || !s.Equal(start) || !e.Equal(end) {
		t.Fatalf("capture range: got %v..%v ok=%v", s, e, ok)
	}
	if e.Before(s) {
		t.Fatal("capture end precedes start")
	}
}
