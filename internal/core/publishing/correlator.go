package publishing

import (
	"context"
	"fmt"
	"log/slog"
)

// CallbackOutcome is the platform-reported result carried by a webhook
type CallbackOutcome struct {
	Success   bool
	PostID    string
	Permalink string
	Reason    string
}

// Correlator matches asynchronous completion callbacks back to their
// in-flight job. It is the single writer of webhook-driven transitions:
// webhook handlers validate and parse, then hand everything here.
type Correlator struct {
	jobs   JobRepository
	logger *slog.Logger
}

// NewCorrelator creates the webhook correlator
func NewCorrelator(jobs JobRepository, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{jobs: jobs, logger: logger}
}

// Resolve applies a callback outcome to the job holding the correlation
// token. Unknown tokens and already-settled jobs are logged no-ops, never
// errors: the platform retries delivery until it sees success, and a
// duplicate or late webhook must not disturb a settled job. The underlying
// write is a single compare-and-set, so concurrent duplicate deliveries
// race safely.
func (c *Correlator) Resolve(ctx context.Context, token string, outcome CallbackOutcome) error {
	if token == "" {
		c.logger.Warn("webhook delivered without correlation token, ignoring")
		return nil
	}

	job, applied, err := c.jobs.ResolveByToken(ctx, token,
		outcome.Success, outcome.PostID, outcome.Permalink, outcome.Reason)
	if err != nil {
		return fmt.Errorf("failed to resolve correlation token: %w", err)
	}

	if !applied {
		c.logger.Info("webhook matched no awaiting job, ignoring",
			"correlationToken", token)
		return nil
	}

	if outcome.Success {
		c.logger.Info("async job succeeded via callback",
			"jobId", job.ID, "platform", job.Platform, "postId", outcome.PostID)
	} else {
		c.logger.Warn("async job failed via callback",
			"jobId", job.ID, "platform", job.Platform, "reason", outcome.Reason)
	}
	return nil
}
