package publishing

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/credentials"
	"Omnipost/internal/core/platforms"
)

// Dispatcher pulls queued jobs and drives them to a terminal state through
// their platform adapter. Concurrency is bounded twice: a global semaphore
// caps in-flight jobs, and the claim query itself refuses a second job for
// an account that already has one running, so per-account execution is
// strictly serial, FIFO by scheduled time.
type Dispatcher struct {
	jobs     JobRepository
	accounts accounts.Repository
	creds    *credentials.Store
	registry *platforms.Registry
	cfg      Config
	limiter  *rate.Limiter
	sem      *semaphore.Weighted
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher; Run must be called to start it
func NewDispatcher(jobs JobRepository, accountRepo accounts.Repository, creds *credentials.Store, registry *platforms.Registry, cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		jobs:     jobs,
		accounts: accountRepo,
		creds:    creds,
		registry: registry,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		sem:      semaphore.NewWeighted(int64(cfg.Workers)),
		logger:   logger,
		now:      time.Now,
	}
}

// Run claims and executes jobs until the context is cancelled. It also owns
// the callback-timeout sweep for async jobs.
func (d *Dispatcher) Run(ctx context.Context) error {
	sweep := time.NewTicker(d.cfg.SweepInterval)
	defer sweep.Stop()

	poll := time.NewTicker(d.cfg.PollInterval)
	defer poll.Stop()

	d.logger.Info("dispatcher started",
		"workers", d.cfg.Workers, "maxAttempts", d.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sweep.C:
			d.sweepCallbackTimeouts(ctx)
		case <-poll.C:
			d.drainQueue(ctx)
		}
	}
}

// drainQueue claims due jobs until the queue is empty or workers are full
func (d *Dispatcher) drainQueue(ctx context.Context) {
	for {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return
		}

		job, err := d.jobs.ClaimQueued(ctx, d.now())
		if err != nil {
			d.sem.Release(1)
			d.logger.Error("failed to claim queued job", "error", err)
			return
		}
		if job == nil {
			d.sem.Release(1)
			return
		}

		go func() {
			defer d.sem.Release(1)
			d.execute(ctx, job)
		}()
	}
}

// execute drives one claimed job through its adapter call
func (d *Dispatcher) execute(ctx context.Context, job *PublishJob) {
	logger := d.logger.With("jobId", job.ID, "platform", job.Platform, "accountId", job.AccountID)

	adapter, err := d.registry.Get(job.Platform)
	if err != nil {
		// No retry can fix a missing adapter
		d.settleFailed(ctx, job.ID, StateDispatching, err.Error(), logger)
		return
	}

	if err := d.limiter.Wait(ctx); err != nil {
		// Shutdown while throttled: put the job back for the next run
		if _, rErr := d.jobs.RequeueForRetry(ctx, job.ID, job.Attempts, job.ScheduledAt, "shutdown before dispatch"); rErr != nil {
			logger.Error("failed to requeue job on shutdown", "error", rErr)
		}
		return
	}

	account, err := d.accounts.GetByID(ctx, job.AccountID)
	if err != nil {
		d.settleFailed(ctx, job.ID, StateDispatching, "account lookup failed: "+err.Error(), logger)
		return
	}
	if account.Disabled {
		d.settleFailed(ctx, job.ID, StateDispatching, accounts.ErrAccountDisabled.Error(), logger)
		return
	}

	cred, err := d.creds.EnsureFresh(ctx, job.AccountID)
	if err != nil {
		if credentials.IsAuthRevoked(err) {
			d.settleFailed(ctx, job.ID, StateDispatching, err.Error(), logger)
		} else {
			d.retryOrFail(ctx, job, StateDispatching, err, logger)
		}
		return
	}

	if adapter.AsyncPublish() {
		d.executeAsync(ctx, job, adapter, account, cred, logger)
		return
	}
	d.executeSync(ctx, job, adapter, account, cred, logger)
}

// executeSync handles platforms that confirm inline. The job is marked
// publishing before the call so a cancel that wins the CAS prevents the
// outbound request entirely.
func (d *Dispatcher) executeSync(ctx context.Context, job *PublishJob, adapter platforms.Adapter, account *accounts.Account, cred *credentials.Credential, logger *slog.Logger) {
	ok, err := d.jobs.Transition(ctx, job.ID, StateDispatching, StatePublishing)
	if err != nil {
		logger.Error("failed to mark job publishing", "error", err)
		return
	}
	if !ok {
		logger.Info("job left dispatching before adapter call, dropping")
		return
	}

	result, pubErr := adapter.Publish(ctx, account, cred, &job.Payload)

	// One reactive refresh on a single expired-token response; the retry
	// does not consume the attempt budget.
	if pubErr != nil && platforms.IsAuthExpired(pubErr) {
		logger.Info("access token rejected, refreshing and retrying once")
		cred, err = d.creds.ForceRefresh(ctx, job.AccountID)
		if err != nil {
			if credentials.IsAuthRevoked(err) {
				d.settleFailed(ctx, job.ID, StatePublishing, err.Error(), logger)
			} else {
				d.retryOrFail(ctx, job, StatePublishing, err, logger)
			}
			return
		}
		result, pubErr = adapter.Publish(ctx, account, cred, &job.Payload)
	}

	if pubErr != nil {
		if platforms.IsAuthRevoked(pubErr) {
			if dErr := d.accounts.Disable(ctx, job.AccountID, pubErr.Error()); dErr != nil {
				logger.Error("failed to disable account after revocation", "error", dErr)
			}
			d.settleFailed(ctx, job.ID, StatePublishing, pubErr.Error(), logger)
			return
		}
		if platforms.IsTransient(pubErr) {
			d.retryOrFail(ctx, job, StatePublishing, pubErr, logger)
			return
		}
		// Platform rejections and everything unclassified are permanent
		d.settleFailed(ctx, job.ID, StatePublishing, pubErr.Error(), logger)
		return
	}

	if result.Pending {
		// A sync adapter returning a pending token is a contract bug
		logger.Error("synchronous adapter returned pending result, failing job")
		d.settleFailed(ctx, job.ID, StatePublishing, "adapter contract violation: unexpected pending result", logger)
		return
	}

	ok, err = d.jobs.MarkSucceeded(ctx, job.ID, StatePublishing, result.PostID, result.Permalink)
	if err != nil {
		logger.Error("failed to mark job succeeded", "error", err)
		return
	}
	if !ok {
		logger.Warn("job settled elsewhere while publishing, result discarded", "postId", result.PostID)
		return
	}
	logger.Info("job succeeded", "postId", result.PostID)
}

// executeAsync handles webhook-completing platforms. The adapter call runs
// while the job is still dispatching; parking it in awaiting_callback is
// the CAS that loses to a concurrent cancel, in which case the eventual
// webhook will find no awaiting job and no-op.
func (d *Dispatcher) executeAsync(ctx context.Context, job *PublishJob, adapter platforms.Adapter, account *accounts.Account, cred *credentials.Credential, logger *slog.Logger) {
	result, pubErr := adapter.Publish(ctx, account, cred, &job.Payload)
	if pubErr != nil {
		if platforms.IsTransient(pubErr) {
			d.retryOrFail(ctx, job, StateDispatching, pubErr, logger)
			return
		}
		if platforms.IsAuthRevoked(pubErr) {
			if dErr := d.accounts.Disable(ctx, job.AccountID, pubErr.Error()); dErr != nil {
				logger.Error("failed to disable account after revocation", "error", dErr)
			}
		}
		d.settleFailed(ctx, job.ID, StateDispatching, pubErr.Error(), logger)
		return
	}

	if !result.Pending || result.CorrelationToken == "" {
		d.settleFailed(ctx, job.ID, StateDispatching, "adapter contract violation: async publish returned no correlation token", logger)
		return
	}

	deadline := d.now().Add(d.cfg.callbackTimeout(job.Platform))
	ok, err := d.jobs.MarkAwaitingCallback(ctx, job.ID, result.CorrelationToken, deadline)
	if err != nil {
		logger.Error("failed to park job awaiting callback", "error", err)
		return
	}
	if !ok {
		logger.Info("job cancelled during async dispatch, late webhook will be ignored",
			"correlationToken", result.CorrelationToken)
		return
	}
	logger.Info("job awaiting platform callback",
		"correlationToken", result.CorrelationToken, "deadline", deadline)
}

// retryOrFail requeues a transiently failed job with exponential backoff,
// or fails it once the attempt budget is spent
func (d *Dispatcher) retryOrFail(ctx context.Context, job *PublishJob, from JobState, cause error, logger *slog.Logger) {
	attempts := job.Attempts + 1
	if attempts >= d.cfg.MaxAttempts {
		d.settleFailed(ctx, job.ID, from, cause.Error(), logger)
		return
	}

	delay := d.backoff(attempts)
	nextAt := d.now().Add(delay)
	ok, err := d.jobs.RequeueForRetry(ctx, job.ID, attempts, nextAt, cause.Error())
	if err != nil {
		logger.Error("failed to requeue job for retry", "error", err)
		return
	}
	if !ok {
		logger.Info("job settled elsewhere, skipping retry")
		return
	}
	logger.Warn("transient failure, job requeued",
		"attempt", attempts, "retryIn", delay, "error", cause.Error())
}

// backoff computes the delay before a given attempt: exponential from the
// base, capped, with up to 25% jitter to spread thundering retries
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.cfg.BaseBackoff << (attempt - 1)
	if delay > d.cfg.MaxBackoff || delay <= 0 {
		delay = d.cfg.MaxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

func (d *Dispatcher) settleFailed(ctx context.Context, jobID string, from JobState, reason string, logger *slog.Logger) {
	ok, err := d.jobs.MarkFailed(ctx, jobID, from, reason)
	if err != nil {
		logger.Error("failed to mark job failed", "error", err)
		return
	}
	if !ok {
		logger.Info("job settled elsewhere, failure dropped", "reason", reason)
		return
	}
	logger.Warn("job failed", "reason", reason)
}

// sweepCallbackTimeouts fails awaiting jobs whose platform never called
// back. This is the only time-based forced transition in the state machine;
// a webhook arriving after the sweep loses the CAS and no-ops.
func (d *Dispatcher) sweepCallbackTimeouts(ctx context.Context) {
	n, err := d.jobs.SweepCallbackTimeouts(ctx, d.now(), ErrTimeoutExceeded.Error())
	if err != nil {
		d.logger.Error("callback timeout sweep failed", "error", err)
		return
	}
	if n > 0 {
		d.logger.Warn("async jobs timed out waiting for callback", "count", n)
	}
}
