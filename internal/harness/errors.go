package harness

import "errors"

var (
	// ErrBusy is returned by Run while another run is in progress.
	ErrBusy = errors.New("harness: run already in progress")

	// ErrSchedulerIncomplete is returned when no scheduler is set, or the
	// scheduler does not provide all four operations.
	ErrSchedulerIncomplete = errors.New("harness: scheduler incomplete")

	// ErrNilSpecification is returned by Run when given no specification.
	ErrNilSpecification = errors.New("harness: nil specification")
)
