package publishing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAwaiting(repo *memJobRepo, id, token string) {
	deadline := time.Now().Add(15 * time.Minute)
	repo.jobs[id] = &PublishJob{
		ID:               id,
		AccountID:        "acc-1",
		State:            StateAwaitingCallback,
		CorrelationToken: token,
		CallbackDeadline: &deadline,
	}
}

func TestCorrelator_ResolveSuccess(t *testing.T) {
	repo := newMemJobRepo()
	seedAwaiting(repo, "job-1", "tok-1")
	correlator := NewCorrelator(repo, nil)

	err := correlator.Resolve(context.Background(), "tok-1", CallbackOutcome{
		Success:   true,
		PostID:    "art-5",
		Permalink: "https://example.com/art-5",
	})
	require.NoError(t, err)

	job := repo.jobs["job-1"]
	assert.Equal(t, StateSucceeded, job.State)
	assert.Equal(t, "art-5", job.ResultPostID)
	assert.Equal(t, "https://example.com/art-5", job.ResultPermalink)
	assert.Nil(t, job.CallbackDeadline)
}

func TestCorrelator_ResolveFailure(t *testing.T) {
	repo := newMemJobRepo()
	seedAwaiting(repo, "job-1", "tok-1")
	correlator := NewCorrelator(repo, nil)

	err := correlator.Resolve(context.Background(), "tok-1", CallbackOutcome{
		Success: false,
		Reason:  "content review rejected",
	})
	require.NoError(t, err)

	job := repo.jobs["job-1"]
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, "content review rejected", job.LastError)
}

func TestCorrelator_DuplicateWebhookIsIdempotent(t *testing.T) {
	repo := newMemJobRepo()
	seedAwaiting(repo, "job-1", "tok-1")
	correlator := NewCorrelator(repo, nil)

	outcome := CallbackOutcome{Success: true, PostID: "art-5"}
	require.NoError(t, correlator.Resolve(context.Background(), "tok-1", outcome))

	// Redelivery: same token, job already settled. Must not error and must
	// not change the stored result, even when the verdict differs.
	err := correlator.Resolve(context.Background(), "tok-1", CallbackOutcome{
		Success: false, Reason: "late contradiction",
	})
	require.NoError(t, err)

	job := repo.jobs["job-1"]
	assert.Equal(t, StateSucceeded, job.State)
	assert.Equal(t, "art-5", job.ResultPostID)
	assert.Empty(t, job.LastError)
}

func TestCorrelator_UnknownTokenNoOps(t *testing.T) {
	repo := newMemJobRepo()
	seedAwaiting(repo, "job-1", "tok-1")
	correlator := NewCorrelator(repo, nil)

	err := correlator.Resolve(context.Background(), "tok-unknown", CallbackOutcome{Success: true})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCallback, repo.jobs["job-1"].State)
}

func TestCorrelator_EmptyTokenNoOps(t *testing.T) {
	repo := newMemJobRepo()
	seedAwaiting(repo, "job-1", "tok-1")
	correlator := NewCorrelator(repo, nil)

	err := correlator.Resolve(context.Background(), "", CallbackOutcome{Success: true})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCallback, repo.jobs["job-1"].State)
}
