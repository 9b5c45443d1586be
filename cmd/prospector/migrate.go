package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/prospector/internal/config"
	"github.com/jonathan/prospector/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status|redo|version]",
	Short: "Apply database migrations",
	Long:  `Run a goose command against the embedded migrations. Defaults to "up".`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.StoreDriver != config.StorePostgres || cfg.DatabaseURL == "" {
		return fmt.Errorf("migrate needs the postgres store and DATABASE_URL")
	}
	command := "up"
	if len(args) == 1 {
		command = args[0]
	}

	database, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(cmd.Context(), command); err != nil {
		return err
	}
	logger.Infow("Migration finished", "command", command)
	return nil
}
