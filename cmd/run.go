package cmd

import (
	"github.com/huangsam/apprank/core"
	"github.com/huangsam/apprank/internal/store"
	"github.com/spf13/cobra"
)

// runCmd ingests the ranking once.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch today's ranking and derive rank changes and statistics",
	Long: `Fetch every page of the ranking, archive it as the snapshot of the run date,
and derive per-entity rank changes and lifetime statistics in a single transaction.

Re-running the same date replaces that date's facts, statistics and snapshot, so a
failed or partial run can always be retried.

On success the top gainers and top overall are printed and sent to every configured
notifier. On failure nothing from this run is kept, a failure notification is sent,
and the command exits non-zero.

Examples:
  # Ingest today's ranking into the default SQLite store
  apprank run

  # Backfill a date and keep a JSON backup of what was fetched
  apprank run --date 2025-03-10 --backup-dir ./backups

  # Publish the summary to NATS as well as the log
  apprank run --notify log,nats --nats-url nats://localhost:4222`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteRun(rootCtx, cfg, store.Manager, logger)
	},
}
