package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"Omnipost/internal/core/publishing"
)

type postgresJobRepo struct {
	db *sql.DB
}

// NewJobRepository creates a new PostgreSQL publish job repository
func NewJobRepository(db *sql.DB) publishing.JobRepository {
	return &postgresJobRepo{db: db}
}

const jobColumns = `
	id, flow_id, user_id, account_id, platform, payload, scheduled_at,
	state, attempts, last_error, correlation_token, callback_deadline,
	result_post_id, result_permalink, created_at, updated_at`

func scanJob(row interface{ Scan(...interface{}) error }) (*publishing.PublishJob, error) {
	var j publishing.PublishJob
	var payload []byte
	var lastError, token, postID, permalink sql.NullString
	err := row.Scan(
		&j.ID, &j.FlowID, &j.UserID, &j.AccountID, &j.Platform, &payload, &j.ScheduledAt,
		&j.State, &j.Attempts, &lastError, &token, &j.CallbackDeadline,
		&postID, &permalink, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &j.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode job payload: %w", err)
	}
	j.LastError = lastError.String
	j.CorrelationToken = token.String
	j.ResultPostID = postID.String
	j.ResultPermalink = permalink.String
	return &j, nil
}

// CreateBatch inserts every job of one submission in a single transaction,
// so a partially created batch can never be observed.
func (r *postgresJobRepo) CreateBatch(ctx context.Context, jobs []*publishing.PublishJob) error {
	if len(jobs) == 0 {
		return publishing.ErrEmptyBatch
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO publish_jobs (id, flow_id, user_id, account_id, platform, payload, scheduled_at, state, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NOW(), NOW())
	`

	for _, job := range jobs {
		payload, err := json.Marshal(job.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode job payload: %w", err)
		}
		_, err = tx.ExecContext(ctx, query,
			job.ID, job.FlowID, job.UserID, job.AccountID, string(job.Platform),
			payload, job.ScheduledAt, string(job.State))
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (r *postgresJobRepo) GetByID(ctx context.Context, id string) (*publishing.PublishJob, error) {
	query := `SELECT` + jobColumns + ` FROM publish_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, publishing.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (r *postgresJobRepo) ListByFlow(ctx context.Context, flowID string) ([]*publishing.PublishJob, error) {
	query := `SELECT` + jobColumns + ` FROM publish_jobs WHERE flow_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var result []*publishing.PublishJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// ClaimQueued claims the oldest due queued job whose account has nothing
// in flight. SKIP LOCKED keeps concurrent workers from contending on the
// same row; the NOT EXISTS clause is what serializes execution per account.
func (r *postgresJobRepo) ClaimQueued(ctx context.Context, now time.Time) (*publishing.PublishJob, error) {
	query := `
		UPDATE publish_jobs
		SET state = $1, updated_at = NOW()
		WHERE id = (
			SELECT j.id FROM publish_jobs j
			WHERE j.state = $2 AND j.scheduled_at <= $3
			  AND NOT EXISTS (
			      SELECT 1 FROM publish_jobs a
			      WHERE a.account_id = j.account_id
			        AND a.state IN ($1, $4, $5)
			  )
			ORDER BY j.scheduled_at, j.id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING` + jobColumns

	job, err := scanJob(r.db.QueryRowContext(ctx, query,
		string(publishing.StateDispatching), string(publishing.StateQueued), now,
		string(publishing.StatePublishing), string(publishing.StateAwaitingCallback)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

// Transition performs the compare-and-set state move every settlement path
// funnels through. A zero row count means the job left the expected state
// first and the caller lost the race.
func (r *postgresJobRepo) Transition(ctx context.Context, id string, from, to publishing.JobState) (bool, error) {
	query := `
		UPDATE publish_jobs
		SET state = $3, updated_at = NOW()
		WHERE id = $1 AND state = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("failed to transition job: %w", err)
	}
	return oneRowAffected(result)
}

func (r *postgresJobRepo) MarkSucceeded(ctx context.Context, id string, from publishing.JobState, postID, permalink string) (bool, error) {
	query := `
		UPDATE publish_jobs
		SET state = $3, result_post_id = $4, result_permalink = $5,
		    last_error = NULL, callback_deadline = NULL, updated_at = NOW()
		WHERE id = $1 AND state = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		id, string(from), string(publishing.StateSucceeded), postID, permalink)
	if err != nil {
		return false, fmt.Errorf("failed to mark job succeeded: %w", err)
	}
	return oneRowAffected(result)
}

func (r *postgresJobRepo) MarkFailed(ctx context.Context, id string, from publishing.JobState, reason string) (bool, error) {
	query := `
		UPDATE publish_jobs
		SET state = $3, last_error = $4, callback_deadline = NULL, updated_at = NOW()
		WHERE id = $1 AND state = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		id, string(from), string(publishing.StateFailed), reason)
	if err != nil {
		return false, fmt.Errorf("failed to mark job failed: %w", err)
	}
	return oneRowAffected(result)
}

func (r *postgresJobRepo) MarkAwaitingCallback(ctx context.Context, id, token string, deadline time.Time) (bool, error) {
	query := `
		UPDATE publish_jobs
		SET state = $3, correlation_token = $4, callback_deadline = $5, updated_at = NOW()
		WHERE id = $1 AND state = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		id, string(publishing.StateDispatching), string(publishing.StateAwaitingCallback),
		token, deadline)
	if err != nil {
		return false, fmt.Errorf("failed to park job for callback: %w", err)
	}
	return oneRowAffected(result)
}

// RequeueForRetry puts a claimed job back in the queue. Both pre-call
// (dispatching) and mid-call (publishing) origins are valid: the dispatcher
// requeues from either on transient failure or shutdown.
func (r *postgresJobRepo) RequeueForRetry(ctx context.Context, id string, attempts int, nextAt time.Time, lastError string) (bool, error) {
	query := `
		UPDATE publish_jobs
		SET state = $2, attempts = $3, scheduled_at = $4, last_error = $5, updated_at = NOW()
		WHERE id = $1 AND state IN ($6, $7)
	`

	result, err := r.db.ExecContext(ctx, query,
		id, string(publishing.StateQueued), attempts, nextAt, lastError,
		string(publishing.StateDispatching), string(publishing.StatePublishing))
	if err != nil {
		return false, fmt.Errorf("failed to requeue job: %w", err)
	}
	return oneRowAffected(result)
}

// ResolveByToken settles the awaiting job matching a correlation token.
// Duplicate and late webhooks match zero rows and fall out as a no-op.
func (r *postgresJobRepo) ResolveByToken(ctx context.Context, token string, success bool, postID, permalink, reason string) (*publishing.PublishJob, bool, error) {
	var query string
	var args []interface{}
	if success {
		query = `
			UPDATE publish_jobs
			SET state = $2, result_post_id = $3, result_permalink = $4,
			    last_error = NULL, callback_deadline = NULL, updated_at = NOW()
			WHERE correlation_token = $1 AND state = $5
			RETURNING` + jobColumns
		args = []interface{}{token, string(publishing.StateSucceeded), postID, permalink,
			string(publishing.StateAwaitingCallback)}
	} else {
		query = `
			UPDATE publish_jobs
			SET state = $2, last_error = $3, callback_deadline = NULL, updated_at = NOW()
			WHERE correlation_token = $1 AND state = $4
			RETURNING` + jobColumns
		args = []interface{}{token, string(publishing.StateFailed), reason,
			string(publishing.StateAwaitingCallback)}
	}

	job, err := scanJob(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve job by token: %w", err)
	}
	return job, true, nil
}

func (r *postgresJobRepo) SweepCallbackTimeouts(ctx context.Context, now time.Time, reason string) (int64, error) {
	query := `
		UPDATE publish_jobs
		SET state = $2, last_error = $3, callback_deadline = NULL, updated_at = NOW()
		WHERE state = $1 AND callback_deadline IS NOT NULL AND callback_deadline <= $4
	`

	result, err := r.db.ExecContext(ctx, query,
		string(publishing.StateAwaitingCallback), string(publishing.StateFailed), reason, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep callback timeouts: %w", err)
	}
	swept, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept jobs: %w", err)
	}
	return swept, nil
}

func (r *postgresJobRepo) UpdateSchedule(ctx context.Context, id string, scheduledAt time.Time) (bool, error) {
	query := `
		UPDATE publish_jobs
		SET scheduled_at = $2, updated_at = NOW()
		WHERE id = $1 AND state = $3
	`

	result, err := r.db.ExecContext(ctx, query, id, scheduledAt, string(publishing.StateQueued))
	if err != nil {
		return false, fmt.Errorf("failed to update job schedule: %w", err)
	}
	return oneRowAffected(result)
}

func oneRowAffected(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected == 1, nil
}
