package main

import (
	"github.com/spf13/cobra"
	"market_chat/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dbPool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer dbPool.Close()

		if err := repository.RunMigrations(ctx, dbPool, appLogger); err != nil {
			return err
		}
		appLogger.Info("Migrations complete")
		return nil
	},
}
