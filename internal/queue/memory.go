package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryJob struct {
	job       Job
	status    string
	runAfter  time.Time
	lastError string
}

// Memory is a process-local Queue with the same retry semantics as the
// Postgres queue. Jobs do not survive a restart.
type Memory struct {
	mu     sync.Mutex
	jobs   []*memoryJob
	policy RetryPolicy
	now    func() time.Time
}

// NewMemory returns an empty in-memory queue.
func NewMemory(policy RetryPolicy) *Memory {
	return &Memory{policy: policy, now: time.Now}
}

// Enqueue adds a job that is runnable immediately.
func (m *Memory) Enqueue(_ context.Context, jobType JobType, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}
	id := uuid.New()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, &memoryJob{
		job:      Job{ID: id, Type: jobType, Payload: data, MaxAttempts: m.policy.MaxAttempts},
		status:   StatusQueued,
		runAfter: m.now(),
	})
	return id, nil
}

// Claim marks the oldest runnable job as running.
func (m *Memory) Claim(_ context.Context) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, j := range m.jobs {
		if j.status != StatusQueued || j.runAfter.After(now) {
			continue
		}
		j.status = StatusRunning
		j.job.Attempts++
		claimed := j.job
		return &claimed, nil
	}
	return nil, nil
}

// Complete marks a job completed.
func (m *Memory) Complete(_ context.Context, job Job) error {
	return m.update(job.ID, func(j *memoryJob) {
		j.status = StatusCompleted
	})
}

// Fail requeues or fails a job according to the retry policy.
func (m *Memory) Fail(_ context.Context, job Job, cause error, retry bool) error {
	return m.update(job.ID, func(j *memoryJob) {
		if cause != nil {
			j.lastError = cause.Error()
		}
		if m.policy.ShouldRetry(j.job, retry) {
			j.status = StatusQueued
			j.runAfter = m.now().Add(m.policy.Backoff(j.job.Attempts))
			return
		}
		j.status = StatusFailed
	})
}

// Len returns the number of jobs ever enqueued.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Status returns the status and last error of a job.
func (m *Memory) Status(id uuid.UUID) (string, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.job.ID == id {
			return j.status, j.lastError, true
		}
	}
	return "", "", false
}

func (m *Memory) update(id uuid.UUID, fn func(*memoryJob)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.job.ID == id {
			fn(j)
			return nil
		}
	}
	return fmt.Errorf("job not found: %s", id)
}
