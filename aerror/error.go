package aerror

import "fmt"

// Error is the error type used across apogee for failures that originate
// inside the module itself rather than in the Go runtime or a dependency.
type Error struct {
	Err string
}

func New(format string, args ...any) *Error {
	return &Error{Err: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Err
}
