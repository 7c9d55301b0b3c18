package video

// Rect locates a screen region as upper-left coordinate and size, both in
// percents of the frame.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Profile carries vendor-specific lookup data, e.g. where a dashcam renders
// its on-screen timestamp. Consumed as opaque data; nothing is computed
// from it here.
type Profile struct {
	ID            string
	TimestampRect *Rect
}

// GarminDashcamMini2 places the timestamp in the lower-right fifth of the
// frame.
var GarminDashcamMini2 = Profile{
	ID:            "garmin-dashcam-mini2",
	TimestampRect: &Rect{X: 80.0, Y: 0.0, W: 100.0, H: 20.0},
}

// DefaultProfile is used when none is specified.
var DefaultProfile = Profile{ID: "default"}

// Profiles lists all registered vendor profiles.
func Profiles() []Profile {
	return []Profile{
		GarminDashcamMini2,
	}
}
