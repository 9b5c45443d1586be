// Package queue provides the durable job queue contract, an in-memory queue,
// and the consumer loop that dispatches claimed jobs to typed handlers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// JobType tags the payload carried by a job.
type JobType string

// JobEnrichCompany asks a worker to summarize a company's website.
const JobEnrichCompany JobType = "enrich-company"

// Job status values.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one claimed unit of work.
type Job struct {
	ID          uuid.UUID
	Type        JobType
	Payload     json.RawMessage
	Attempts    int // including the current attempt
	MaxAttempts int
}

// DecodePayload unmarshals the job payload into v.
func (j Job) DecodePayload(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload for job %s: %w", j.Type, j.ID, err)
	}
	return nil
}

// EnrichCompanyPayload is the payload of JobEnrichCompany.
type EnrichCompanyPayload struct {
	CompanyID string `json:"companyId"`
}

// Enqueuer accepts new jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType JobType, payload any) (uuid.UUID, error)
}

// Source hands out jobs to exactly one consumer at a time.
type Source interface {
	// Claim returns the next runnable job, or nil when none is ready.
	Claim(ctx context.Context) (*Job, error)
	Complete(ctx context.Context, job Job) error
	// Fail records a failed attempt. With retry set, the job is requeued with
	// backoff until its attempts are exhausted; otherwise it fails for good.
	Fail(ctx context.Context, job Job, cause error, retry bool) error
}

// Queue is both ends of a job queue.
type Queue interface {
	Enqueuer
	Source
}

// EnqueueEnrichCompany enqueues one enrichment job for companyID.
func EnqueueEnrichCompany(ctx context.Context, q Enqueuer, companyID string) (uuid.UUID, error) {
	return q.Enqueue(ctx, JobEnrichCompany, EnrichCompanyPayload{CompanyID: companyID})
}

// RetryPolicy is the exponential backoff applied to retryable failures.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Factor      float64
	Max         time.Duration
}

// DefaultRetryPolicy retries after 1m, 5m and 25m, then gives up.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	Initial:     time.Minute,
	Factor:      5,
	Max:         2 * time.Hour,
}

// Backoff returns the delay before the attempt following the given one.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.Initial) * math.Pow(factor, float64(attempt-1))
	if p.Max > 0 && d > float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}

// ShouldRetry reports whether a failed attempt gets another try.
func (p RetryPolicy) ShouldRetry(job Job, retryable bool) bool {
	limit := job.MaxAttempts
	if limit <= 0 {
		limit = p.MaxAttempts
	}
	return retryable && job.Attempts < limit
}
