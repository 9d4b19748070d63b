package publishing

import (
	"context"
	"sync"
	"time"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/credentials"
	"Omnipost/internal/core/platforms"
)

// memJobRepo is an in-memory JobRepository with the same compare-and-set
// semantics as the postgres implementation
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*PublishJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*PublishJob)}
}

func (r *memJobRepo) CreateBatch(ctx context.Context, jobs []*PublishJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(jobs) == 0 {
		return ErrEmptyBatch
	}
	for _, job := range jobs {
		copied := *job
		r.jobs[job.ID] = &copied
	}
	return nil
}

func (r *memJobRepo) GetByID(ctx context.Context, id string) (*PublishJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *memJobRepo) ListByFlow(ctx context.Context, flowID string) ([]*PublishJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*PublishJob
	for _, job := range r.jobs {
		if job.FlowID == flowID {
			copied := *job
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *memJobRepo) ClaimQueued(ctx context.Context, now time.Time) (*PublishJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inflight := make(map[string]bool)
	for _, job := range r.jobs {
		switch job.State {
		case StateDispatching, StatePublishing, StateAwaitingCallback:
			inflight[job.AccountID] = true
		}
	}

	var oldest *PublishJob
	for _, job := range r.jobs {
		if job.State != StateQueued || job.ScheduledAt.After(now) || inflight[job.AccountID] {
			continue
		}
		if oldest == nil || job.ScheduledAt.Before(oldest.ScheduledAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, nil
	}

	oldest.State = StateDispatching
	copied := *oldest
	return &copied, nil
}

func (r *memJobRepo) Transition(ctx context.Context, id string, from, to JobState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.State != from {
		return false, nil
	}
	job.State = to
	return true, nil
}

func (r *memJobRepo) MarkSucceeded(ctx context.Context, id string, from JobState, postID, permalink string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.State != from {
		return false, nil
	}
	job.State = StateSucceeded
	job.ResultPostID = postID
	job.ResultPermalink = permalink
	job.LastError = ""
	job.CallbackDeadline = nil
	return true, nil
}

func (r *memJobRepo) MarkFailed(ctx context.Context, id string, from JobState, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.State != from {
		return false, nil
	}
	job.State = StateFailed
	job.LastError = reason
	job.CallbackDeadline = nil
	return true, nil
}

func (r *memJobRepo) MarkAwaitingCallback(ctx context.Context, id, token string, deadline time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.State != StateDispatching {
		return false, nil
	}
	job.State = StateAwaitingCallback
	job.CorrelationToken = token
	job.CallbackDeadline = &deadline
	return true, nil
}

func (r *memJobRepo) RequeueForRetry(ctx context.Context, id string, attempts int, nextAt time.Time, lastError string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || (job.State != StateDispatching && job.State != StatePublishing) {
		return false, nil
	}
	job.State = StateQueued
	job.Attempts = attempts
	job.ScheduledAt = nextAt
	job.LastError = lastError
	return true, nil
}

func (r *memJobRepo) ResolveByToken(ctx context.Context, token string, success bool, postID, permalink, reason string) (*PublishJob, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.CorrelationToken != token || job.State != StateAwaitingCallback {
			continue
		}
		if success {
			job.State = StateSucceeded
			job.ResultPostID = postID
			job.ResultPermalink = permalink
			job.LastError = ""
		} else {
			job.State = StateFailed
			job.LastError = reason
		}
		job.CallbackDeadline = nil
		copied := *job
		return &copied, true, nil
	}
	return nil, false, nil
}

func (r *memJobRepo) SweepCallbackTimeouts(ctx context.Context, now time.Time, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var swept int64
	for _, job := range r.jobs {
		if job.State == StateAwaitingCallback && job.CallbackDeadline != nil && !job.CallbackDeadline.After(now) {
			job.State = StateFailed
			job.LastError = reason
			job.CallbackDeadline = nil
			swept++
		}
	}
	return swept, nil
}

func (r *memJobRepo) UpdateSchedule(ctx context.Context, id string, scheduledAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.State != StateQueued {
		return false, nil
	}
	job.ScheduledAt = scheduledAt
	return true, nil
}

// stubAccountRepo is a map-backed accounts.Repository
type stubAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*accounts.Account
	disabled map[string]string
}

func newStubAccountRepo(list ...*accounts.Account) *stubAccountRepo {
	r := &stubAccountRepo{
		accounts: make(map[string]*accounts.Account),
		disabled: make(map[string]string),
	}
	for _, a := range list {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *stubAccountRepo) GetByID(ctx context.Context, id string) (*accounts.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *stubAccountRepo) ListByUser(ctx context.Context, userID string) ([]*accounts.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*accounts.Account
	for _, account := range r.accounts {
		if account.UserID == userID {
			copied := *account
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *stubAccountRepo) Disable(ctx context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return accounts.ErrAccountNotFound
	}
	account.Disabled = true
	r.disabled[id] = reason
	return nil
}

// memCredRepo is a map-backed credentials.Repository
type memCredRepo struct {
	mu    sync.Mutex
	creds map[string]*credentials.Credential
}

func newMemCredRepo(list ...*credentials.Credential) *memCredRepo {
	r := &memCredRepo{creds: make(map[string]*credentials.Credential)}
	for _, c := range list {
		r.creds[c.AccountID] = c
	}
	return r
}

func (r *memCredRepo) Get(ctx context.Context, accountID string) (*credentials.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[accountID]
	if !ok {
		return nil, credentials.ErrCredentialNotFound
	}
	copied := *cred
	return &copied, nil
}

func (r *memCredRepo) Save(ctx context.Context, cred *credentials.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cred
	r.creds[cred.AccountID] = &copied
	return nil
}

// stubAdapter is a scriptable platforms.Adapter
type stubAdapter struct {
	platform   platforms.Platform
	pagination platforms.PaginationType
	async      bool

	mu           sync.Mutex
	publishCalls int
	publishFn    func(attempt int) (*platforms.PublishResult, error)
	refreshFn    func() (*credentials.Credential, error)
}

func (a *stubAdapter) Platform() platforms.Platform         { return a.platform }
func (a *stubAdapter) Pagination() platforms.PaginationType { return a.pagination }
func (a *stubAdapter) AsyncPublish() bool                   { return a.async }

func (a *stubAdapter) Publish(ctx context.Context, account *accounts.Account, cred *credentials.Credential, payload *platforms.PublishPayload) (*platforms.PublishResult, error) {
	a.mu.Lock()
	a.publishCalls++
	call := a.publishCalls
	a.mu.Unlock()
	return a.publishFn(call)
}

func (a *stubAdapter) RefreshCredential(ctx context.Context, account *accounts.Account, cred *credentials.Credential) (*credentials.Credential, error) {
	if a.refreshFn != nil {
		return a.refreshFn()
	}
	return cred, nil
}

func (a *stubAdapter) FetchComments(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID string, targetType platforms.TargetType, cursor platforms.Cursor) (*platforms.CommentPage, error) {
	return &platforms.CommentPage{}, nil
}

func (a *stubAdapter) FetchReplies(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID string, cursor platforms.Cursor) (*platforms.CommentPage, error) {
	return &platforms.CommentPage{}, nil
}

func (a *stubAdapter) PostComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID, message string) (string, error) {
	return "", nil
}

func (a *stubAdapter) ReplyToComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID, message string) (string, error) {
	return "", nil
}

func (a *stubAdapter) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.publishCalls
}
