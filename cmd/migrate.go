package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/dirsync/database"
	"github.com/dtroode/dirsync/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations of the postgres cache backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			if err := database.Migrate(cmd.Context(), cfg.Database.DSN); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
