package publishing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Omnipost/internal/core/credentials"
	"Omnipost/internal/core/platforms"
)

// Drives one submission through the whole lifecycle: fan-out, dispatch over a
// mix of sync and async platforms, webhook resolution, batch aggregation.
func TestBatchLifecycle_MixedPlatforms(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	okAdapter := &stubAdapter{
		platform: "stub-ok",
		publishFn: func(int) (*platforms.PublishResult, error) {
			return platforms.TerminalResult("post-ok", "https://example.com/post-ok"), nil
		},
	}
	rejectAdapter := &stubAdapter{
		platform: "stub-reject",
		publishFn: func(int) (*platforms.PublishResult, error) {
			return nil, &platforms.PlatformError{
				Platform: "stub-reject", Class: platforms.ClassRejected, Message: "duplicate content",
			}
		},
	}
	asyncAdapter := &stubAdapter{
		platform: "stub-async",
		async:    true,
		publishFn: func(int) (*platforms.PublishResult, error) {
			return platforms.PendingResult("corr-batch-1"), nil
		},
	}

	repo := newMemJobRepo()
	accountRepo := newStubAccountRepo(
		testAccount("acc-ok", "user-1", "stub-ok"),
		testAccount("acc-reject", "user-1", "stub-reject"),
		testAccount("acc-async", "user-1", "stub-async"),
	)
	credRepo := newMemCredRepo(
		&credentials.Credential{AccountID: "acc-ok", AccessToken: "t1", ExpiresAt: time.Now().Add(24 * time.Hour)},
		&credentials.Credential{AccountID: "acc-reject", AccessToken: "t2", ExpiresAt: time.Now().Add(24 * time.Hour)},
		&credentials.Credential{AccountID: "acc-async", AccessToken: "t3", ExpiresAt: time.Now().Add(24 * time.Hour)},
	)
	refresh := func(ctx context.Context, accountID string, current *credentials.Credential) (*credentials.Credential, error) {
		return current, nil
	}
	store, err := credentials.NewStore(credRepo, refresh, accountRepo, 16, 5*time.Minute, nil)
	require.NoError(t, err)

	registry := platforms.NewRegistry(okAdapter, rejectAdapter, asyncAdapter)
	service := NewService(repo, accountRepo, registry, nil)
	service.now = func() time.Time { return now }
	dispatcher := NewDispatcher(repo, accountRepo, store, registry, DefaultConfig(), nil)
	dispatcher.now = func() time.Time { return now }
	correlator := NewCorrelator(repo, nil)

	payload := platforms.PublishPayload{Title: "launch", Description: "it ships"}
	flowID, err := service.SubmitBatch(ctx, "user-1", []SubmitTarget{
		{AccountID: "acc-ok", Payload: payload},
		{AccountID: "acc-reject", Payload: payload},
		{AccountID: "acc-async", Payload: payload},
	}, time.Time{})
	require.NoError(t, err)

	// Three distinct accounts, so three consecutive passes drain the queue
	for i := 0; i < 3; i++ {
		job, err := repo.ClaimQueued(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, job, "pass %d found nothing claimable", i)
		dispatcher.execute(ctx, job)
	}
	drained, err := repo.ClaimQueued(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, drained)

	// The async job is still parked, so the batch is unresolved
	batch, err := service.GetBatchStatus(ctx, flowID)
	require.NoError(t, err)
	assert.Equal(t, BatchInProgress, batch.Status)

	byAccount := make(map[string]*PublishJob, len(batch.Jobs))
	for _, job := range batch.Jobs {
		byAccount[job.AccountID] = job
	}
	require.Len(t, byAccount, 3)
	assert.Equal(t, StateSucceeded, byAccount["acc-ok"].State)
	assert.Equal(t, "post-ok", byAccount["acc-ok"].ResultPostID)
	assert.Equal(t, StateFailed, byAccount["acc-reject"].State)
	assert.Contains(t, byAccount["acc-reject"].LastError, "duplicate content")
	assert.Equal(t, StateAwaitingCallback, byAccount["acc-async"].State)

	// The platform's completion webhook settles the parked job
	err = correlator.Resolve(ctx, "corr-batch-1", CallbackOutcome{
		Success: true, PostID: "post-async", Permalink: "https://example.com/post-async",
	})
	require.NoError(t, err)

	batch, err = service.GetBatchStatus(ctx, flowID)
	require.NoError(t, err)
	assert.Equal(t, BatchPartialSuccess, batch.Status)

	failures := 0
	for _, job := range batch.Jobs {
		require.True(t, job.State.Terminal(), "job %s not settled", job.AccountID)
		if job.State == StateFailed {
			failures++
		}
		if job.AccountID == "acc-async" {
			assert.Equal(t, StateSucceeded, job.State)
			assert.Equal(t, "post-async", job.ResultPostID)
		}
	}
	assert.Equal(t, 1, failures)

	// Each adapter was called exactly once
	assert.Equal(t, 1, okAdapter.calls())
	assert.Equal(t, 1, rejectAdapter.calls())
	assert.Equal(t, 1, asyncAdapter.calls())
}
