// Package enrichment fills in missing company summaries out of band: the
// orchestrator enqueues work on request and the worker scrapes and summarizes.
package enrichment

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jonathan/prospector/internal/apperr"
	"github.com/jonathan/prospector/internal/queue"
	"github.com/jonathan/prospector/internal/store"
	"github.com/jonathan/prospector/internal/types"
)

// Orchestrator decides whether a company needs an enrichment job.
type Orchestrator struct {
	companies store.Companies
	queue     queue.Enqueuer
	logger    *zap.SugaredLogger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(companies store.Companies, q queue.Enqueuer, logger *zap.SugaredLogger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{companies: companies, queue: q, logger: logger}
}

// EnsureSummary returns the company as stored, enqueueing one enrichment job
// when it has no summary yet. Concurrent callers may both enqueue; the worker
// is idempotent so the duplicate only costs a second scrape.
func (o *Orchestrator) EnsureSummary(ctx context.Context, companyID string) (*types.Company, error) {
	company, err := o.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, errors.Wrapf(err, "load company %s", companyID)
	}
	if company == nil {
		return nil, apperr.NotFound("company", companyID)
	}
	if company.HasSummary() {
		return company, nil
	}

	jobID, err := queue.EnqueueEnrichCompany(ctx, o.queue, companyID)
	if err != nil {
		return nil, errors.Wrapf(err, "enqueue enrichment for %s", companyID)
	}
	o.logger.Infow("Enqueued enrichment", "company_id", companyID, "job_id", jobID)
	return company, nil
}
