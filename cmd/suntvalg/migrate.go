package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suntvalg/suntvalg-server/internal/config"
	"github.com/suntvalg/suntvalg-server/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := database.Up
		if args[0] == "down" {
			dir = database.Down
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(cmd.Context(), db, dir, log); err != nil {
			return err
		}
		fmt.Printf("migrations %s complete for %s\n", args[0], describeDatabase(cfg.Database))
		return nil
	},
}

func describeDatabase(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return "configured dsn"
	}
	return fmt.Sprintf("%s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
}
