package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches every *UnavailableError.
	ErrUnavailable = errors.New("worker pool unavailable")

	// ErrClosed is returned by Submit after Close and reported by Futures still
	// pending when the pool closed.
	ErrClosed = errors.New("worker pool closed")
)

// UnavailableError reports that the pool could not be constructed. Callers are
// expected to run the work inline instead.
type UnavailableError struct {
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrUnavailable, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrUnavailable, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}
