package jobs

import (
	"errors"
	"fmt"
)

// Runner errors
var (
	ErrRunnerNotRunning = errors.New("job runner is not running")
	ErrQueueFull        = errors.New("job queue is full")
	// ErrCoalesced is returned when a job for the same key is already in
	// flight; the trigger is dropped and callers rely on the eventual
	// state re-check.
	ErrCoalesced = errors.New("job for key already in flight")
)

// PermanentError marks a unit failure that retrying cannot fix. The runner
// terminates the job immediately without consuming further attempts.
type PermanentError struct {
	Err error
}

// Error implements the error interface
func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps an error as permanently failing
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether the error is marked permanent
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
