package cmd

import (
	"github.com/huangsam/apprank/core"
	"github.com/huangsam/apprank/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// summaryCmd prints the summary of a stored date.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show top gainers and top overall for a date",
	Long: `Show the summary of an already ingested date without fetching anything.

Top gainers are entities whose rank improved since the previous day, ordered by the
size of the improvement. Top overall is the head of the day's ranking.

Examples:
  # Today's summary
  apprank summary

  # Top 10 of a past date as JSON
  apprank summary --date 2025-03-10 --top-k 10 --output json`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteSummary(rootCtx, cfg, store.Manager)
	},
}

// statsCmd prints every statistics row of a date.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-entity rank changes and lifetime statistics for a date",
	Long: `List the statistics rows of a date ordered by current rank.

Each row carries the rank changes over 24h, 72h, 7d and 30d (n/a when the entity was
not ranked on that day) and the count, average, best and worst of every recorded rank.

Examples:
  apprank stats --date 2025-03-10 --limit 50
  apprank stats --output csv --output-file stats.csv`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteStatistics(rootCtx, cfg, store.Manager)
	},
}

// historyCmd prints every recorded rank of one entity.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the rank history of one entity",
	Long: `List every date an entity was ranked, oldest first, with the change from the
previous observation.

Examples:
  apprank history --id 0x1234
  apprank history --id 0x1234 --output json`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteHistory(rootCtx, cfg, store.Manager, viper.GetString("id"))
	},
}
