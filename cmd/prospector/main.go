// Package main provides the prospector command: the search API, the
// enrichment worker and the database tooling.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/prospector/internal/config"
	"github.com/jonathan/prospector/internal/logging"
)

var (
	configFile string
	cfg        *config.Config
	logger     *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "prospector",
	Short: "Company search and enrichment service",
	Long: "Prospector searches a company dataset by filters, free text and AI-translated queries, " +
		"and fills in company summaries by scraping websites in a background worker.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// flagKeys maps command-line flags onto config keys; flags win over env and file.
var flagKeys = map[string]string{
	"store":       "store_driver",
	"log-level":   "log.level",
	"listen":      "listen_addr",
	"concurrency": "worker.concurrency",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("store", config.StorePostgres, "Store driver: postgres or memory")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}
	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	l, err := logging.New(loaded.Log.Level, loaded.Log.JSON)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	cfg, logger = loaded, l
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
