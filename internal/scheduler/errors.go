package scheduler

import "errors"

var (
	// ErrStopped is returned by Run when the scheduler was stopped before
	// it was (re)initialised.
	ErrStopped = errors.New("scheduler: stopped")

	// ErrUnknownHandle is returned by Cancel for a handle that is not pending.
	ErrUnknownHandle = errors.New("scheduler: unknown handle")

	// ErrIdle is returned by Virtual.Run when no task is left to run and
	// nobody called Stop.
	ErrIdle = errors.New("scheduler: idle with no pending tasks")

	// ErrStepLimit is returned by Virtual.Run when the configured number of
	// tasks has run without the scheduler being stopped.
	ErrStepLimit = errors.New("scheduler: step limit exceeded")
)

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "scheduler: task panicked: " + stringify(e.Value)
}
