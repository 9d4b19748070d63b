package publishing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/platforms"
)

// SubmitTarget is one account's share of a submission
type SubmitTarget struct {
	AccountID string                   `json:"accountId"`
	Payload   platforms.PublishPayload `json:"payload"`
}

// Service exposes the caller-facing batch operations. The dispatcher does
// the actual publishing; this service only creates, inspects and cancels
// jobs.
type Service struct {
	jobs     JobRepository
	accounts accounts.Repository
	registry *platforms.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the publishing service
func NewService(jobs JobRepository, accountRepo accounts.Repository, registry *platforms.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jobs:     jobs,
		accounts: accountRepo,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitBatch fans one user submission out into per-account queued jobs and
// returns the flow id grouping them. The whole batch is validated before
// any job is created so a bad target fails the submission up front.
func (s *Service) SubmitBatch(ctx context.Context, userID string, targets []SubmitTarget, scheduledAt time.Time) (string, error) {
	if len(targets) == 0 {
		return "", ErrEmptyBatch
	}

	flowID := uuid.NewString()
	now := s.now()
	if scheduledAt.IsZero() {
		scheduledAt = now
	}

	jobs := make([]*PublishJob, 0, len(targets))
	for _, target := range targets {
		account, err := s.accounts.GetByID(ctx, target.AccountID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve account %s: %w", target.AccountID, err)
		}
		if account.UserID != userID {
			return "", fmt.Errorf("account %s: %w", target.AccountID, accounts.ErrAccountNotFound)
		}
		if account.Disabled {
			return "", fmt.Errorf("account %s: %w", target.AccountID, accounts.ErrAccountDisabled)
		}

		platform := platforms.Platform(account.Platform)
		if _, err := s.registry.Get(platform); err != nil {
			return "", err
		}
		if err := platforms.ValidateOptions(platform, &target.Payload); err != nil {
			return "", err
		}

		jobs = append(jobs, &PublishJob{
			ID:          uuid.NewString(),
			FlowID:      flowID,
			UserID:      userID,
			AccountID:   account.ID,
			Platform:    platform,
			Payload:     target.Payload,
			ScheduledAt: scheduledAt,
			State:       StateQueued,
			CreatedAt:   now,
		})
	}

	if err := s.jobs.CreateBatch(ctx, jobs); err != nil {
		return "", fmt.Errorf("failed to create publish batch: %w", err)
	}

	s.logger.Info("publish batch submitted",
		"flowId", flowID, "userId", userID, "jobs", len(jobs), "scheduledAt", scheduledAt)
	return flowID, nil
}

// GetBatchStatus returns a flow's jobs with the derived aggregate status
func (s *Service) GetBatchStatus(ctx context.Context, flowID string) (*Batch, error) {
	jobs, err := s.jobs.ListByFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrFlowNotFound
	}

	return &Batch{
		FlowID: flowID,
		Jobs:   jobs,
		Status: AggregateStatus(jobs),
	}, nil
}

// GetJob returns one job
func (s *Service) GetJob(ctx context.Context, jobID string) (*PublishJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// CancelJob cancels a job that has not started its adapter call. Once the
// call is in flight (publishing or awaiting a callback) the external work
// cannot be aborted, so cancellation is refused; the caller must wait for
// the terminal state.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	for _, from := range []JobState{StateQueued, StateDispatching} {
		ok, err := s.jobs.Transition(ctx, jobID, from, StateCancelled)
		if err != nil {
			return fmt.Errorf("failed to cancel job %s: %w", jobID, err)
		}
		if ok {
			s.logger.Info("job cancelled", "jobId", jobID, "was", from)
			return nil
		}
	}

	// Distinguish a missing job from one past the cancellation window
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return err
	}
	return ErrNotCancellable
}

// RescheduleJob moves a queued job's publish time
func (s *Service) RescheduleJob(ctx context.Context, jobID string, newTime time.Time) error {
	ok, err := s.jobs.UpdateSchedule(ctx, jobID, newTime)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotReschedulable
	}
	return nil
}

// PublishNow pulls a queued job's schedule to the present so the next
// dispatcher pass picks it up
func (s *Service) PublishNow(ctx context.Context, jobID string) error {
	ok, err := s.jobs.UpdateSchedule(ctx, jobID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotReschedulable
	}
	return nil
}
