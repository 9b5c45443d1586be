package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/jonathan/prospector/internal/apperr"
)

// Handler processes one job. Returning an error marked apperr.Transient
// asks the queue to retry; any other error fails the job for good.
type Handler func(ctx context.Context, job Job) error

// Consumer claims jobs from a Source and runs them on a bounded worker pool,
// dispatching by job type.
type Consumer struct {
	source       Source
	pool         *ants.Pool
	pollInterval time.Duration
	logger       *zap.SugaredLogger

	mu       sync.RWMutex
	handlers map[JobType]Handler
}

// NewConsumer creates a consumer running at most concurrency jobs at once.
func NewConsumer(source Source, concurrency int, pollInterval time.Duration, logger *zap.SugaredLogger) (*Consumer, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Consumer{
		source:       source,
		pool:         pool,
		pollInterval: pollInterval,
		logger:       logger,
		handlers:     make(map[JobType]Handler),
	}, nil
}

// Handle registers the handler for a job type.
func (c *Consumer) Handle(jobType JobType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[jobType] = h
}

// Run polls for jobs until ctx is cancelled, then waits for in-flight jobs
// and releases the pool.
func (c *Consumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		c.pool.Release()
	}()

	c.logger.Infow("consumer started", "workers", c.pool.Cap(), "poll_interval", c.pollInterval)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Infow("consumer stopping")
			return nil
		case <-ticker.C:
			c.drain(ctx, &wg)
		}
	}
}

// drain claims jobs while the pool has idle workers.
func (c *Consumer) drain(ctx context.Context, wg *sync.WaitGroup) {
	for c.pool.Free() > 0 && ctx.Err() == nil {
		job, err := c.source.Claim(ctx)
		if err != nil {
			c.logger.Errorw("job claim failed", "error", err)
			return
		}
		if job == nil {
			return
		}

		wg.Add(1)
		claimed := *job
		if err := c.pool.Submit(func() {
			defer wg.Done()
			c.Process(ctx, claimed)
		}); err != nil {
			wg.Done()
			c.logger.Errorw("job submit failed", "job_id", claimed.ID, "error", err)
			c.settle(ctx, claimed, apperr.Transient(err, "worker pool rejected job"))
			return
		}
	}
}

// Process runs one claimed job to completion and records its outcome.
func (c *Consumer) Process(ctx context.Context, job Job) {
	c.mu.RLock()
	h, ok := c.handlers[job.Type]
	c.mu.RUnlock()

	var err error
	if !ok {
		err = fmt.Errorf("no handler registered for job type %q", job.Type)
	} else {
		err = safeRun(ctx, h, job)
	}
	c.settle(ctx, job, err)
}

func (c *Consumer) settle(ctx context.Context, job Job, err error) {
	// Bookkeeping must land even when shutdown cancelled the handler.
	ctx = context.WithoutCancel(ctx)
	log := c.logger.With("job_id", job.ID, "job_type", job.Type, "attempt", job.Attempts)

	if err == nil {
		if cerr := c.source.Complete(ctx, job); cerr != nil {
			log.Errorw("failed to mark job completed", "error", cerr)
		}
		return
	}

	retry := apperr.IsTransient(err)
	log.Warnw("job failed", "error", err, "retryable", retry)
	if ferr := c.source.Fail(ctx, job, err, retry); ferr != nil {
		log.Errorw("failed to record job failure", "error", ferr)
	}
}

func safeRun(ctx context.Context, h Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}
