package stream

import "github.com/kbukum/rxkit/errors"

// Sentinel errors. Compare with errors.Is.
var (
	// ErrCompleted is returned by Emit and Complete once a stream has completed.
	ErrCompleted = errors.New(errors.ErrCodeStreamCompleted, "stream already completed")
	// ErrClosed is returned by a bounded stream whose consumer was stopped.
	ErrClosed = errors.New(errors.ErrCodeStreamClosed, "stream closed")
	// ErrBackpressure is returned under the Reject policy when the buffer stays full.
	ErrBackpressure = errors.New(errors.ErrCodeBackpressure, "bounded buffer is full")
)

// guard runs fn and converts a panic into an error tagged with op.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Panicked(op, r)
		}
	}()
	return fn()
}
