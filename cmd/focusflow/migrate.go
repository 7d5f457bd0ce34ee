package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/focusflow/internal/config"
	"github.com/hyperengineering/focusflow/internal/remote"
	"github.com/hyperengineering/focusflow/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply local and remote schema migrations",
	Long: "Apply the local SQLite migrations and, when a remote DSN is configured, " +
		"the PostgreSQL migrations. Safe to run repeatedly.",
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Opening the store applies pending migrations
	local, err := store.NewSQLiteStore(cfg.Local.Path)
	if err != nil {
		return err
	}
	if err := local.Close(); err != nil {
		return fmt.Errorf("close local store: %w", err)
	}
	fmt.Fprintf(out, "local:  migrated %s\n", cfg.Local.Path)

	if cfg.Remote.DSN == "" {
		fmt.Fprintln(out, "remote: skipped (no DSN configured)")
		return nil
	}
	db, err := remote.OpenPostgres(cmd.Context(), cfg.Remote.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := remote.Migrate(db); err != nil {
		return err
	}
	fmt.Fprintln(out, "remote: migrated")
	return nil
}
