package enrichment

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jonathan/prospector/internal/apperr"
	"github.com/jonathan/prospector/internal/fetch"
	"github.com/jonathan/prospector/internal/llm"
	"github.com/jonathan/prospector/internal/queue"
	"github.com/jonathan/prospector/internal/store"
)

// State is a step of one enrichment run.
type State string

// Enrichment states. Persisted and Skipped are successful terminal states.
const (
	StateLoaded     State = "loaded"
	StateFetched    State = "fetched"
	StateSummarized State = "summarized"
	StatePersisted  State = "persisted"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

// DefaultSnippetWords is how much page text is sent to the model.
const DefaultSnippetWords = 500

// SummaryPrompt bounds the summary length and framing.
const SummaryPrompt = "Summarize the company in ≤80 words (product focus, ICP). Respond in plain text."

// PageFetcher renders a web page and returns its text.
type PageFetcher interface {
	PageText(ctx context.Context, url string) (string, error)
}

// Outcome reports where a run ended.
type Outcome struct {
	State   State
	Reason  string // why the run was skipped
	Summary string
}

// Worker summarizes one company per run.
type Worker struct {
	companies    store.Companies
	fetcher      PageFetcher
	client       llm.Client
	snippetWords int
	temperature  float64
	logger       *zap.SugaredLogger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithSnippetWords sets how many words of page text are summarized.
func WithSnippetWords(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.snippetWords = n
		}
	}
}

// NewWorker creates a worker.
func NewWorker(companies store.Companies, fetcher PageFetcher, client llm.Client, logger *zap.SugaredLogger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	w := &Worker{
		companies:    companies,
		fetcher:      fetcher,
		client:       client,
		snippetWords: DefaultSnippetWords,
		temperature:  0.5,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register installs the worker as the handler for enrichment jobs.
func (w *Worker) Register(c *queue.Consumer) {
	c.Handle(queue.JobEnrichCompany, w.HandleJob)
}

// HandleJob runs one enrichment job. Retryable failures come back marked
// apperr.ErrTransient.
func (w *Worker) HandleJob(ctx context.Context, job queue.Job) error {
	var payload queue.EnrichCompanyPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	if payload.CompanyID == "" {
		return errors.Newf("job %s has no company id", job.ID)
	}
	_, err := w.Run(ctx, payload.CompanyID)
	return err
}

// Run moves one company through load, fetch, summarize and persist. Every
// step is safe to repeat, so a redelivered job simply overwrites the summary.
func (w *Worker) Run(ctx context.Context, companyID string) (Outcome, error) {
	log := w.logger.With("company_id", companyID)

	company, err := w.companies.GetCompany(ctx, companyID)
	if err != nil {
		return w.fail(log, StateLoaded, apperr.Transient(err, "load company"))
	}
	if company == nil {
		log.Infow("Company not found, nothing to enrich")
		return Outcome{State: StateSkipped, Reason: "company not found"}, nil
	}
	url := fetch.NormalizeWebsite(company.Website)
	if url == "" {
		log.Infow("Company has no website, nothing to enrich")
		return Outcome{State: StateSkipped, Reason: "no website"}, nil
	}
	log.Debugw("Enrichment state", "state", StateLoaded, "url", url)

	text, err := w.fetcher.PageText(ctx, url)
	if err != nil {
		return w.fail(log, StateFetched, apperr.Transient(err, "fetch company website"))
	}
	snippet := fetch.FirstWords(text, w.snippetWords)
	log.Debugw("Enrichment state", "state", StateFetched, "words", len(strings.Fields(snippet)))

	summary, err := w.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(SummaryPrompt), llm.User(snippet)},
		Tier:        llm.TierLite,
		Temperature: &w.temperature,
	})
	if err != nil {
		return w.fail(log, StateSummarized, apperr.Transient(err, "summarize company"))
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return w.fail(log, StateSummarized, apperr.Transient(errors.New("empty completion"), "summarize company"))
	}
	log.Debugw("Enrichment state", "state", StateSummarized)

	if err := w.companies.SetCompanySummary(ctx, companyID, summary); err != nil {
		return w.fail(log, StatePersisted, apperr.Transient(err, "persist summary"))
	}
	log.Infow("Enrichment state", "state", StatePersisted)
	return Outcome{State: StatePersisted, Summary: summary}, nil
}

func (w *Worker) fail(log *zap.SugaredLogger, step State, err error) (Outcome, error) {
	log.Warnw("Enrichment state", "state", StateFailed, "step", step, "error", err)
	return Outcome{State: StateFailed}, err
}
