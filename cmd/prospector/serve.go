package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/prospector/internal/config"
	"github.com/jonathan/prospector/internal/enrichment"
	"github.com/jonathan/prospector/internal/logging"
	"github.com/jonathan/prospector/internal/search"
	"github.com/jonathan/prospector/internal/server"
	"github.com/jonathan/prospector/internal/server/middleware"
	"github.com/jonathan/prospector/internal/server/ratelimit"
	"github.com/jonathan/prospector/internal/translate"
)

var serveWorkers int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes company search and enrichment endpoints.
With --workers N the enrichment consumer runs in the same process; the memory
store requires it because its queue is not shared with other processes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", ":4000", "Address to listen on")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", -1, "Inline enrichment handlers (-1: worker.concurrency for the memory store, 0 otherwise)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	searchSvc := search.NewService(b.store,
		translate.New(client, logging.Component(logger, "translate")),
		newFinder(cfg),
		logging.Component(logger, "search"))

	deps := server.Deps{
		Search:      searchSvc,
		Enrichment:  enrichment.NewOrchestrator(b.store, b.queue, logging.Component(logger, "orchestrator")),
		Companies:   b.store,
		Prospects:   b.store,
		DefaultUser: cfg.Auth.DefaultUser,
	}
	if cfg.RateLimit.Enabled {
		deps.RateLimiter = ratelimit.NewLimiter(ratelimit.NewConfig(true,
			cfg.RateLimit.DefaultLimit, cfg.RateLimit.DefaultWindow,
			cfg.RateLimit.AILimit, cfg.RateLimit.AIWindow,
			cfg.RateLimit.Whitelist))
	}
	if cfg.Auth.JWTSecret != "" {
		deps.Tokens = middleware.NewHMACTokens(cfg.Auth.JWTSecret)
	}

	workers := serveWorkers
	if workers < 0 {
		workers = 0
		if cfg.StoreDriver == config.StoreMemory {
			workers = cfg.Worker.Concurrency
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.New(cfg.ListenAddr, deps, logging.Component(logger, "http")).Run(gctx)
	})
	if workers > 0 {
		consumer, err := newConsumer(cfg, b, client, workers)
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
		g.Go(func() error { return consumer.Run(gctx) })
		logger.Infow("Running enrichment worker inline", "concurrency", workers)
	}
	return g.Wait()
}
