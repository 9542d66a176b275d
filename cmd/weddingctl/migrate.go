package main

import (
	"fmt"

	"github.com/prohmpiriya/wedding-venue-booking/internal/bootstrap"
	"github.com/prohmpiriya/wedding-venue-booking/migrations"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/config"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Apply the embedded schema to the database configured by DATABASE_* variables.

Every statement is idempotent, so running migrate against an up-to-date
database changes nothing.

Examples:
  weddingctl migrate
  weddingctl migrate --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				script, err := migrations.Script()
				if err != nil {
					return fmt.Errorf("failed to load migrations: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), script)
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := bootstrap.Postgres(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer db.Close()

			if err := bootstrap.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s/%s\n", cfg.Database.Host, cfg.Database.DBName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the schema instead of applying it")
	return cmd
}
