package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Store is the single authority for reading and rotating credentials.
// Reads are served from an LRU cache in front of the repository. Rotation
// is deduplicated per account with singleflight so that many jobs for the
// same account running in parallel trigger exactly one platform refresh;
// late arrivals wait for the in-flight call and share its result.
type Store struct {
	repo     Repository
	refresh  RefreshFunc
	disabler AccountDisabler
	cache    *lru.Cache[string, *Credential]
	group    singleflight.Group
	margin   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore creates a credential store. margin is how long before expiry a
// credential is considered stale and proactively rotated.
func NewStore(repo Repository, refresh RefreshFunc, disabler AccountDisabler, cacheSize int, margin time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, *Credential](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential cache: %w", err)
	}
	return &Store{
		repo:     repo,
		refresh:  refresh,
		disabler: disabler,
		cache:    cache,
		margin:   margin,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Get returns the stored credential for an account without refreshing it.
// Never blocks on the network.
func (s *Store) Get(ctx context.Context, accountID string) (*Credential, error) {
	if cred, ok := s.cache.Get(accountID); ok {
		return cred, nil
	}

	cred, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.cache.Add(accountID, cred)
	return cred, nil
}

// EnsureFresh returns a credential guaranteed to be valid for at least the
// configured margin, rotating it first if necessary. Concurrent callers for
// the same account share one refresh.
func (s *Store) EnsureFresh(ctx context.Context, accountID string) (*Credential, error) {
	cred, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if cred.FreshFor(s.margin, s.now()) {
		return cred, nil
	}

	return s.rotate(ctx, accountID, false)
}

// ForceRefresh rotates the credential regardless of its stored expiry.
// Used reactively after a single 401/invalid_token response from a platform:
// the stored expiry may look fine while the platform has already invalidated
// the token, so the freshness short-circuit must not apply.
func (s *Store) ForceRefresh(ctx context.Context, accountID string) (*Credential, error) {
	s.cache.Remove(accountID)
	s.group.Forget(accountID)
	return s.rotate(ctx, accountID, true)
}

func (s *Store) rotate(ctx context.Context, accountID string, force bool) (*Credential, error) {
	v, err, shared := s.group.Do(accountID, func() (interface{}, error) {
		// Re-read inside the flight: a refresh that completed while this
		// caller was waiting already persisted a fresh credential.
		current, err := s.repo.Get(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if !force && current.FreshFor(s.margin, s.now()) {
			return current, nil
		}

		rotated, err := s.refresh(ctx, accountID, current)
		if err != nil {
			if IsAuthRevoked(err) {
				s.cache.Remove(accountID)
				if dErr := s.disabler.Disable(ctx, accountID, err.Error()); dErr != nil {
					s.logger.Error("failed to disable account after revocation",
						"accountId", accountID, "error", dErr)
				}
			}
			return nil, err
		}

		// Persist before returning: the old refresh token is already dead.
		if err := s.repo.Save(ctx, rotated); err != nil {
			return nil, fmt.Errorf("failed to persist rotated credential: %w", err)
		}

		s.cache.Add(accountID, rotated)
		return rotated, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.logger.Debug("credential refresh shared with in-flight rotation", "accountId", accountID)
	}
	return v.(*Credential), nil
}
