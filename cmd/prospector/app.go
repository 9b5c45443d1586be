package main

import (
	"context"
	"fmt"

	"github.com/jonathan/prospector/internal/config"
	"github.com/jonathan/prospector/internal/db"
	"github.com/jonathan/prospector/internal/discovery"
	"github.com/jonathan/prospector/internal/enrichment"
	"github.com/jonathan/prospector/internal/fetch"
	"github.com/jonathan/prospector/internal/llm"
	"github.com/jonathan/prospector/internal/logging"
	"github.com/jonathan/prospector/internal/queue"
	"github.com/jonathan/prospector/internal/store"
	"github.com/jonathan/prospector/internal/store/memory"
)

// backend is the store and queue of one process.
type backend struct {
	store store.Store
	queue queue.Queue
	db    *db.DB // nil for the memory driver
}

func (b *backend) Close() {
	b.store.Close()
}

func retryPolicy(c *config.Config) queue.RetryPolicy {
	return queue.RetryPolicy{
		MaxAttempts: c.Worker.MaxAttempts,
		Initial:     c.Worker.BackoffInitial,
		Factor:      c.Worker.BackoffFactor,
		Max:         c.Worker.BackoffMax,
	}
}

// openBackend connects the configured store. The memory driver keeps jobs in
// process, so its queue is only useful to a worker running inline.
func openBackend(ctx context.Context, c *config.Config) (*backend, error) {
	switch c.StoreDriver {
	case config.StoreMemory:
		return &backend{store: memory.New(), queue: queue.NewMemory(retryPolicy(c))}, nil
	default:
		database, err := db.Connect(ctx, c.DatabaseURL,
			db.WithRetryPolicy(retryPolicy(c)),
			db.WithLease(c.Worker.Lease))
		if err != nil {
			return nil, err
		}
		return &backend{store: database, queue: database, db: database}, nil
	}
}

func newLLMClient(ctx context.Context, c *config.Config) (llm.Client, error) {
	if err := c.RequireLLM(); err != nil {
		return nil, err
	}
	lc := llm.ConfigFor(llm.Provider(c.LLM.Provider))
	if c.LLM.Model != "" {
		lc = lc.WithAllModels(c.LLM.Model)
	}
	lc.Temperature = c.LLM.Temperature
	lc.BaseURL = c.LLM.BaseURL
	client, err := llm.NewClient(ctx, lc, c.LLM.APIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func newFinder(c *config.Config) *discovery.DuckDuckGo {
	return discovery.NewDuckDuckGo(discovery.Options{
		SearchURL:         c.Discovery.SearchURL,
		UserAgent:         c.Discovery.UserAgent,
		Timeout:           c.Discovery.Timeout,
		RequestsPerSecond: c.Discovery.RequestsPerSecond,
		Burst:             c.Discovery.Burst,
		MaxCandidates:     c.Discovery.MaxCandidates,
	}, logging.Component(logger, "discovery"))
}

// newConsumer builds a job consumer with the enrichment worker registered.
func newConsumer(c *config.Config, b *backend, client llm.Client, concurrency int) (*queue.Consumer, error) {
	fetcher := fetch.NewBrowserFetcher(
		fetch.ChromeLauncher{ExecPath: c.Scrape.ChromePath},
		c.Scrape.Timeout,
		logging.Component(logger, "browser"))
	worker := enrichment.NewWorker(b.store, fetcher, client,
		logging.Component(logger, "enrichment"),
		enrichment.WithSnippetWords(c.Scrape.SnippetWords))

	consumer, err := queue.NewConsumer(b.queue, concurrency, c.Worker.PollInterval, logging.Component(logger, "consumer"))
	if err != nil {
		return nil, err
	}
	worker.Register(consumer)
	return consumer, nil
}
