package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/prospector/internal/config"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the enrichment worker",
	Long:  `Claim enrichment jobs from the Postgres queue and summarize company websites until interrupted.`,
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().Int("concurrency", 4, "Number of jobs processed at once")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if cfg.StoreDriver != config.StorePostgres {
		return fmt.Errorf("the worker needs the postgres store; use serve --workers with the memory store")
	}
	if cfg.Worker.Concurrency < 1 {
		return fmt.Errorf("worker concurrency must be at least 1")
	}

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

	consumer, err := newConsumer(cfg, b, client, cfg.Worker.Concurrency)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	logger.Infow("Worker started", "concurrency", cfg.Worker.Concurrency, "poll_interval", cfg.Worker.PollInterval)
	return consumer.Run(ctx)
}
