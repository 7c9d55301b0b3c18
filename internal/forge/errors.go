package forge

import "fmt"

// ValidationError reports a malformed operation or forge request:
// mutually exclusive fields both set, an empty input list, mismatched
// input resolutions. Raised synchronously, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid forge request: " + e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
