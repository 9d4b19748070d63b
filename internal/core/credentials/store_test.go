package credentials

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is a map-backed Repository counting its calls
type fakeRepo struct {
	mu    sync.Mutex
	creds map[string]*Credential
	gets  int
	saves int
}

func newFakeRepo(list ...*Credential) *fakeRepo {
	r := &fakeRepo{creds: make(map[string]*Credential)}
	for _, c := range list {
		r.creds[c.AccountID] = c
	}
	return r
}

func (r *fakeRepo) Get(ctx context.Context, accountID string) (*Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	cred, ok := r.creds[accountID]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	copied := *cred
	return &copied, nil
}

func (r *fakeRepo) Save(ctx context.Context, cred *Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	copied := *cred
	r.creds[cred.AccountID] = &copied
	return nil
}

// fakeDisabler records disable calls
type fakeDisabler struct {
	mu       sync.Mutex
	disabled map[string]string
}

func newFakeDisabler() *fakeDisabler {
	return &fakeDisabler{disabled: make(map[string]string)}
}

func (d *fakeDisabler) Disable(ctx context.Context, id, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disabled[id] = reason
	return nil
}

func freshCred(accountID string) *Credential {
	return &Credential{
		AccountID:    accountID,
		AccessToken:  "live-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func staleCred(accountID string) *Credential {
	return &Credential{
		AccountID:    accountID,
		AccessToken:  "stale-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(30 * time.Second),
	}
}

func TestEnsureFresh_ReturnsFreshCredentialWithoutRefresh(t *testing.T) {
	repo := newFakeRepo(freshCred("acc-1"))
	var refreshes int32
	refresh := func(ctx context.Context, accountID string, current *Credential) (*Credential, error) {
		atomic.AddInt32(&refreshes, 1)
		return current, nil
	}

	store, err := NewStore(repo, refresh, newFakeDisabler(), 16, 5*time.Minute, nil)
	require.NoError(t, err)

	cred, err := store.EnsureFresh(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "live-token", cred.AccessToken)
	assert.Zero(t, atomic.LoadInt32(&refreshes))
}

func TestEnsureFresh_ConcurrentCallersShareOneRefresh(t *testing.T) {
	repo := newFakeRepo(staleCred("acc-1"))
	var refreshes int32
	refresh := func(ctx context.Context, accountID string, current *Credential) (*Credential, error) {
		atomic.AddInt32(&refreshes, 1)
		time.Sleep(50 * time.Millisecond) // hold the flight open
		return &Credential{
			AccountID:    accountID,
			AccessToken:  "rotated-token",
			RefreshToken: "rotated-refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		}, nil
	}

	store, err := NewStore(repo, refresh, newFakeDisabler(), 16, 5*time.Minute, nil)
	require.NoError(t, err)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*Credential, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.EnsureFresh(context.Background(), "acc-1")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes), "concurrent callers must share one platform refresh")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "rotated-token", results[i].AccessToken)
	}

	// The rotation was persisted before any caller got the credential
	stored, err := repo.Get(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated-token", stored.AccessToken)
}

func TestEnsureFresh_RefreshCompletedWhileWaiting(t *testing.T) {
	// The repo already holds a fresh credential by the time the flight
	// runs: no platform call needed.
	repo := newFakeRepo(freshCred("acc-1"))
	var refreshes int32
	refresh := func(ctx context.Context, accountID string, current *Credential) (*Credential, error) {
		atomic.AddInt32(&refreshes, 1)
		return current, nil
	}

	store, err := NewStore(repo, refresh, newFakeDisabler(), 16, 5*time.Minute, nil)
	require.NoError(t, err)

	// Poison the cache with a stale copy to force the rotate path
	store.cache.Add("acc-1", staleCred("acc-1"))

	cred, err := store.EnsureFresh(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "live-token", cred.AccessToken)
	assert.Zero(t, atomic.LoadInt32(&refreshes))
}

func TestForceRefresh_IgnoresStoredExpiry(t *testing.T) {
	// The platform said 401 even though the stored expiry looks fine
	repo := newFakeRepo(freshCred("acc-1"))
	var refreshes int32
	refresh := func(ctx context.Context, accountID string, current *Credential) (*Credential, error) {
		atomic.AddInt32(&refreshes, 1)
		rotated := *current
		rotated.AccessToken = "rotated-token"
		rotated.ExpiresAt = time.Now().Add(time.Hour)
		return &rotated, nil
	}

	store, err := NewStore(repo, refresh, newFakeDisabler(), 16, 5*time.Minute, nil)
	require.NoError(t, err)

	cred, err := store.ForceRefresh(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated-token", cred.AccessToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestRotate_RevokedGrantDisablesAccount(t *testing.T) {
	repo := newFakeRepo(staleCred("acc-1"))
	disabler := newFakeDisabler()
	refresh := func(ctx context.Context, accountID string, current *Credential) (*Credential, error) {
		return nil, fmt.Errorf("invalid_grant: %w", ErrAuthRevoked)
	}

	store, err := NewStore(repo, refresh, disabler, 16, 5*time.Minute, nil)
	require.NoError(t, err)

	_, err = store.EnsureFresh(context.Background(), "acc-1")
	require.Error(t, err)
	assert.True(t, IsAuthRevoked(err))
	assert.Contains(t, disabler.disabled, "acc-1")

	// The dead credential must not be served from cache afterwards
	_, cached := store.cache.Get("acc-1")
	assert.False(t, cached)
}

func TestGet_ServesFromCache(t *testing.T) {
	repo := newFakeRepo(freshCred("acc-1"))
	store, err := NewStore(repo, func(ctx context.Context, accountID string, current *Credential) (*Credential, error) {
		return current, nil
	}, newFakeDisabler(), 16, 5*time.Minute, nil)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "acc-1")
	require.NoError(t, err)
	_, err = store.Get(context.Background(), "acc-1")
	require.NoError(t, err)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 1, repo.gets)
}

func TestGet_UnknownAccount(t *testing.T) {
	store, err := NewStore(newFakeRepo(), func(ctx context.Context, accountID string, current *Credential) (*Credential, error) {
		return current, nil
	}, newFakeDisabler(), 16, 5*time.Minute, nil)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "acc-missing")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}
