package cmd

import (
	"fmt"

	"github.com/huangsam/apprank/core"
	"github.com/huangsam/apprank/internal/store"
	"github.com/huangsam/apprank/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// snapshotCmd groups the archived payload commands.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect or replace the archived ranking payload of a date",
	Long: `Every run archives the fetched ranking, verbatim, as the snapshot of its date.

Subcommands:
  show    - Describe or print the archived payload
  replace - Archive a backup file or JSON array as a date's snapshot`,
}

// snapshotShowCmd prints a snapshot.
var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Describe or print the snapshot of a date",
	Long: `Describe the snapshot of a date, or print its payload with --raw.

Examples:
  apprank snapshot show --date 2025-03-10
  apprank snapshot show --date 2025-03-10 --raw > ranking.json`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteSnapshotShow(rootCtx, cfg, store.Manager, viper.GetBool("raw"))
	},
}

// snapshotReplaceCmd re-archives a payload.
var snapshotReplaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Replace the snapshot of a date from a file",
	Long: `Archive a file as the snapshot of a date, replacing any existing one.

The file is either a backup written by 'run --backup-dir' or a bare JSON array of
ranking entries. A backup carries its own date; --date overrides it. A bare array
uses --date, or today when --date is not given.

Facts and statistics are left untouched.

Examples:
  apprank snapshot replace --from-file backups/top_miniapps_2025-03-10.json
  apprank snapshot replace --from-file ranking.json --date 2025-03-10`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := core.ExecuteSnapshotReplace(rootCtx, cfg, store.Manager, viper.GetString("from-file"))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s replaced (%d entities).\n", schema.FormatDate(snap.Date), snap.EntityCount)
		return nil
	},
}

// exportCmd writes the derived tables as Parquet.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export statistics and rank facts as Parquet files",
	Long: `Write the statistics table and the rank fact table as two Parquet files named
<output-file>.statistics.parquet and <output-file>.rank_facts.parquet.

Every date is exported unless --date is given.

Examples:
  apprank export --output-file apprank
  apprank export --output-file daily --date 2025-03-10`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		paths, err := core.ExecuteExport(rootCtx, cfg, store.Manager)
		if err != nil {
			return err
		}
		for _, p := range paths {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "💾 Exported %s\n", p)
		}
		return nil
	},
}
