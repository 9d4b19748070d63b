package publishing

import (
	"time"

	"Omnipost/internal/core/platforms"
)

// JobState is the lifecycle position of one publish job. States only move
// forward through the transition graph below, except the bounded retry loop
// which requeues a publishing job.
type JobState string

const (
	// StateQueued: created, waiting for a worker and its scheduled time
	StateQueued JobState = "queued"

	// StateDispatching: claimed by a worker, adapter call not yet started
	StateDispatching JobState = "dispatching"

	// StatePublishing: synchronous adapter call in flight
	StatePublishing JobState = "publishing"

	// StateAwaitingCallback: async platform accepted the work; resolution
	// arrives via webhook or the callback deadline
	StateAwaitingCallback JobState = "awaiting_callback"

	// Terminal states. Immutable once reached: re-dispatch means a new job.
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the state is final
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// validTransitions is the forward transition graph. The queued entries for
// dispatching and publishing are the retry loop.
var validTransitions = map[JobState][]JobState{
	StateQueued:           {StateDispatching, StateCancelled},
	StateDispatching:      {StatePublishing, StateAwaitingCallback, StateCancelled, StateFailed, StateQueued},
	StatePublishing:       {StateSucceeded, StateFailed, StateQueued},
	StateAwaitingCallback: {StateSucceeded, StateFailed},
}

// CanTransition reports whether from→to is a legal state move
func CanTransition(from, to JobState) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PublishJob is the unit of dispatch: one account's share of one user
// submission.
type PublishJob struct {
	ID               string                    `json:"id"`
	FlowID           string                    `json:"flowId"`
	UserID           string                    `json:"userId"`
	AccountID        string                    `json:"accountId"`
	Platform         platforms.Platform        `json:"platform"`
	Payload          platforms.PublishPayload  `json:"payload"`
	ScheduledAt      time.Time                 `json:"scheduledAt"`
	State            JobState                  `json:"state"`
	Attempts         int                       `json:"attempts"`
	LastError        string                    `json:"lastError,omitempty"`
	CorrelationToken string                    `json:"-"`
	CallbackDeadline *time.Time                `json:"-"`
	ResultPostID     string                    `json:"resultPostId,omitempty"`
	ResultPermalink  string                    `json:"resultPermalink,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
}

// BatchStatus is the derived aggregate over one flow's jobs. Never stored;
// always computed from member states so it can't go stale.
type BatchStatus string

const (
	BatchInProgress     BatchStatus = "InProgress"
	BatchAllSucceeded   BatchStatus = "AllSucceeded"
	BatchPartialSuccess BatchStatus = "PartialSuccess"
	BatchAllFailed      BatchStatus = "AllFailed"
)

// Batch is the flowId grouping of jobs created from one submission
type Batch struct {
	FlowID string        `json:"flowId"`
	Jobs   []*PublishJob `json:"jobs"`
	Status BatchStatus   `json:"aggregateStatus"`
}

// AggregateStatus derives the batch status from member job states.
// Cancelled jobs count as failures for aggregation: the content did not
// reach that account.
func AggregateStatus(jobs []*PublishJob) BatchStatus {
	succeeded, failed := 0, 0
	for _, job := range jobs {
		switch job.State {
		case StateSucceeded:
			succeeded++
		case StateFailed, StateCancelled:
			failed++
		default:
			return BatchInProgress
		}
	}

	switch {
	case failed == 0:
		return BatchAllSucceeded
	case succeeded == 0:
		return BatchAllFailed
	default:
		return BatchPartialSuccess
	}
}
