package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/prospector/internal/queue"
)

// -----------------------------------------------------------------------------
// Job Queue Methods
// -----------------------------------------------------------------------------

// Enqueue inserts a job that is runnable immediately
func (db *DB) Enqueue(ctx context.Context, jobType queue.JobType, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}
	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO jobs (id, job_type, payload, max_attempts) VALUES ($1, $2, $3, $4)`,
		id, string(jobType), data, db.policy.MaxAttempts,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}
	return id, nil
}

// Claim locks the next runnable job with SKIP LOCKED and marks it running.
// Running jobs whose lease expired (crashed worker) are claimable again while
// they have attempts left; those without attempts left are failed first.
func (db *DB) Claim(ctx context.Context) (*queue.Job, error) {
	if _, err := db.failExpired(ctx); err != nil {
		return nil, err
	}

	var (
		job     queue.Job
		jobType string
	)
	err := db.pool.QueryRow(ctx,
		`UPDATE jobs
		 SET status = 'running', attempts = attempts + 1, locked_at = NOW(), updated_at = NOW()
		 WHERE id = (
			SELECT id FROM jobs
			WHERE (status = 'queued' AND run_after <= NOW())
			   OR (status = 'running' AND locked_at < NOW() - make_interval(secs => $1)
			       AND attempts < max_attempts)
			ORDER BY run_after, created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		 )
		 RETURNING id, job_type, payload, attempts, max_attempts`,
		db.lease.Seconds(),
	).Scan(&job.ID, &jobType, &job.Payload, &job.Attempts, &job.MaxAttempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	job.Type = queue.JobType(jobType)
	return &job, nil
}

// failExpired fails running jobs whose lease expired on their last attempt.
func (db *DB) failExpired(ctx context.Context) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = 'failed', last_error = 'lease expired on final attempt', locked_at = NULL, updated_at = NOW()
		 WHERE status = 'running' AND locked_at < NOW() - make_interval(secs => $1)
		   AND attempts >= max_attempts`,
		db.lease.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Complete marks a job completed
func (db *DB) Complete(ctx context.Context, job queue.Job) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE jobs SET status = 'completed', locked_at = NULL, updated_at = NOW() WHERE id = $1`,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}
	return nil
}

// Fail records a failed attempt and either requeues the job with backoff or fails it
func (db *DB) Fail(ctx context.Context, job queue.Job, cause error, retry bool) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}

	var err error
	if db.policy.ShouldRetry(job, retry) {
		_, err = db.pool.Exec(ctx,
			`UPDATE jobs
			 SET status = 'queued', last_error = $2, locked_at = NULL,
			     run_after = NOW() + make_interval(secs => $3), updated_at = NOW()
			 WHERE id = $1`,
			job.ID, reason, db.policy.Backoff(job.Attempts).Seconds(),
		)
	} else {
		_, err = db.pool.Exec(ctx,
			`UPDATE jobs SET status = 'failed', last_error = $2, locked_at = NULL, updated_at = NOW()
			 WHERE id = $1`,
			job.ID, reason,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to record failure of job %s: %w", job.ID, err)
	}
	return nil
}

// JobStatus returns the status and attempt count of a job.
func (db *DB) JobStatus(ctx context.Context, id uuid.UUID) (string, int, error) {
	var (
		status   string
		attempts int
	)
	err := db.pool.QueryRow(ctx, `SELECT status, attempts FROM jobs WHERE id = $1`, id).Scan(&status, &attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return status, attempts, nil
}

var _ queue.Queue = (*DB)(nil)
