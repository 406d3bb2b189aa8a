package cmd

import (
	"fmt"

	"github.com/huangsam/apprank/core"
	"github.com/huangsam/apprank/internal/store"
	"github.com/huangsam/apprank/schema"
	"github.com/spf13/cobra"
)

// storeCmd focused on store management.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the rank store",
	Long: `Manage the database that holds entities, rank facts, statistics, snapshots and
the run log.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory)

Subcommands:
  status - Show table sizes, the latest statistics date and the last run
  clear  - Remove all stored data`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and the last run",
	Long: `Show the backend, the row count of every table, the most recent statistics
date and the outcome of the last run.

Examples:
  apprank store status
  APPRANK_STORE_BACKEND=postgresql DATABASE_URL=postgres://... apprank store status`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteStoreStatus(rootCtx, cfg, store.Manager)
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored rank data",
	Long: `Delete all stored rank data from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops every apprank table

Examples:
  apprank store clear
  APPRANK_STORE_BACKEND=mysql APPRANK_STORE_DB_CONNECT="..." apprank store clear`,
	PreRunE: configSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbFilePath := store.GetDBFilePath()
		if cfg.StoreBackend == schema.SQLiteBackend && cfg.StoreDBConnect != "" {
			dbFilePath = cfg.StoreDBConnect
		}
		if err := store.ClearStore(cfg.StoreBackend, dbFilePath, cfg.StoreDBConnect); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Store cleared successfully.")
		return nil
	},
}
