package publishing

import "errors"

var (
	// ErrJobNotFound indicates the requested job doesn't exist
	ErrJobNotFound = errors.New("publish job not found")

	// ErrFlowNotFound indicates no jobs exist for the flow id
	ErrFlowNotFound = errors.New("publish batch not found")

	// ErrNotCancellable indicates the job is past the point where
	// cancellation can take effect (adapter call in flight or terminal)
	ErrNotCancellable = errors.New("job can no longer be cancelled")

	// ErrNotReschedulable indicates the job has left the queued state and
	// its schedule is fixed
	ErrNotReschedulable = errors.New("job can no longer be rescheduled")

	// ErrEmptyBatch indicates a submission with no targets
	ErrEmptyBatch = errors.New("batch must contain at least one target")

	// ErrTimeoutExceeded is the failure reason for async jobs whose
	// callback never arrived
	ErrTimeoutExceeded = errors.New("callback timeout exceeded")
)

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrFlowNotFound)
}
