package main

import (
	"github.com/spf13/cobra"
	"github.com/tounfite-souk/app/internal/database"
	"go.uber.org/zap"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create or upgrade the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(cmd.Context(), db, logger); err != nil {
			return err
		}
		logger.Info("Initialized the database", zap.String("path", cfg.DBPath))
		return nil
	},
}
