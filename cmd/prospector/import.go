package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/prospector/internal/config"
	"github.com/jonathan/prospector/internal/importer"
	"github.com/jonathan/prospector/internal/logging"
)

var importBatchSize int

var importCmd = &cobra.Command{
	Use:   "import <file.ndjson>",
	Short: "Load companies from an ND-JSON file",
	Long: `Insert one company per line. Existing ids are left untouched, trailing
commas are ignored and malformed lines are skipped and counted.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntVar(&importBatchSize, "batch", importer.DefaultBatchSize, "Companies inserted per batch")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if cfg.StoreDriver != config.StorePostgres {
		return fmt.Errorf("import writes to the postgres store; the memory store does not persist")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	b, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	log := logging.Component(logger, "import")
	im := importer.New(b.store, log,
		importer.WithBatchSize(importBatchSize),
		importer.WithProgress(func(r importer.Result) {
			log.Infow("Batch inserted", "parsed", r.Parsed, "inserted", r.Inserted)
		}))

	res, err := im.Import(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d companies (%d already present, %d malformed lines skipped)\n",
		res.Inserted, res.Duplicates(), res.Malformed)
	return nil
}
