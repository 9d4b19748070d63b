package webhooks

import (
	"context"
	"time"

	"Omnipost/internal/core/publishing"
)

// resolveCall records one ResolveByToken invocation
type resolveCall struct {
	token     string
	success   bool
	postID    string
	permalink string
	reason    string
}

// fakeJobRepo implements publishing.JobRepository for handler tests. Only
// ResolveByToken carries behavior; webhook handlers never touch the rest.
type fakeJobRepo struct {
	resolveCalls []resolveCall

	// job/applied returned by ResolveByToken when the token matches
	job   *publishing.PublishJob
	token string
}

func (r *fakeJobRepo) ResolveByToken(ctx context.Context, token string, success bool, postID, permalink, reason string) (*publishing.PublishJob, bool, error) {
	r.resolveCalls = append(r.resolveCalls, resolveCall{
		token: token, success: success, postID: postID, permalink: permalink, reason: reason,
	})
	if r.job != nil && token == r.token {
		return r.job, true, nil
	}
	return nil, false, nil
}

func (r *fakeJobRepo) CreateBatch(ctx context.Context, jobs []*publishing.PublishJob) error {
	return nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id string) (*publishing.PublishJob, error) {
	return nil, publishing.ErrJobNotFound
}

func (r *fakeJobRepo) ListByFlow(ctx context.Context, flowID string) ([]*publishing.PublishJob, error) {
	return nil, nil
}

func (r *fakeJobRepo) ClaimQueued(ctx context.Context, now time.Time) (*publishing.PublishJob, error) {
	return nil, nil
}

func (r *fakeJobRepo) Transition(ctx context.Context, id string, from, to publishing.JobState) (bool, error) {
	return false, nil
}

func (r *fakeJobRepo) MarkSucceeded(ctx context.Context, id string, from publishing.JobState, postID, permalink string) (bool, error) {
	return false, nil
}

func (r *fakeJobRepo) MarkFailed(ctx context.Context, id string, from publishing.JobState, reason string) (bool, error) {
	return false, nil
}

func (r *fakeJobRepo) MarkAwaitingCallback(ctx context.Context, id, token string, deadline time.Time) (bool, error) {
	return false, nil
}

func (r *fakeJobRepo) RequeueForRetry(ctx context.Context, id string, attempts int, nextAt time.Time, lastError string) (bool, error) {
	return false, nil
}

func (r *fakeJobRepo) SweepCallbackTimeouts(ctx context.Context, now time.Time, reason string) (int64, error) {
	return 0, nil
}

func (r *fakeJobRepo) UpdateSchedule(ctx context.Context, id string, scheduledAt time.Time) (bool, error) {
	return false, nil
}
