package publishing

import (
	"context"
	"time"
)

// JobRepository is the durable queue contract the dispatcher runs on.
// Three capabilities matter: claim one queued job atomically, compare-and-
// set state, and list by flow. Any backend providing those suffices; the
// postgres implementation uses FOR UPDATE SKIP LOCKED.
type JobRepository interface {
	// CreateBatch inserts all jobs of one submission
	CreateBatch(ctx context.Context, jobs []*PublishJob) error

	// GetByID retrieves a job
	GetByID(ctx context.Context, id string) (*PublishJob, error)

	// ListByFlow retrieves all jobs sharing a flow id, oldest first
	ListByFlow(ctx context.Context, flowID string) ([]*PublishJob, error)

	// ClaimQueued atomically claims one due queued job, moving it to
	// dispatching. Jobs whose account already has an in-flight job are
	// skipped so per-account execution stays serialized. Returns nil when
	// nothing is claimable.
	ClaimQueued(ctx context.Context, now time.Time) (*PublishJob, error)

	// Transition performs a compare-and-set state move. Returns false when
	// the job was not in the expected state (lost race), which callers
	// treat as "someone else settled it".
	Transition(ctx context.Context, id string, from, to JobState) (bool, error)

	// MarkSucceeded settles a job with its external result
	MarkSucceeded(ctx context.Context, id string, from JobState, postID, permalink string) (bool, error)

	// MarkFailed settles a job with a failure reason
	MarkFailed(ctx context.Context, id string, from JobState, reason string) (bool, error)

	// MarkAwaitingCallback parks a dispatching job until its webhook,
	// recording the correlation token and the callback deadline
	MarkAwaitingCallback(ctx context.Context, id, token string, deadline time.Time) (bool, error)

	// RequeueForRetry moves a publishing job back to queued with an
	// incremented attempt count and a backoff-delayed schedule
	RequeueForRetry(ctx context.Context, id string, attempts int, nextAt time.Time, lastError string) (bool, error)

	// ResolveByToken settles the awaiting job matching a correlation token.
	// Returns (nil, false) when no job matches or it is already settled,
	// which is the idempotent no-op path for duplicate and late webhooks.
	ResolveByToken(ctx context.Context, token string, success bool, postID, permalink, reason string) (*PublishJob, bool, error)

	// SweepCallbackTimeouts fails every awaiting job whose callback
	// deadline has passed, returning how many were settled
	SweepCallbackTimeouts(ctx context.Context, now time.Time, reason string) (int64, error)

	// UpdateSchedule changes a queued job's scheduled time. Returns false
	// when the job has already left the queue.
	UpdateSchedule(ctx context.Context, id string, scheduledAt time.Time) (bool, error)
}
