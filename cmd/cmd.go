// Package cmd defines the command-line interface for apprank.
package cmd

import (
	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the snapshot subcommands to the parent snapshot command
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotReplaceCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("endpoint", contract.DefaultEndpoint, "Ranking endpoint URL")
	rootCmd.PersistentFlags().Int("page-limit", contract.DefaultPageLimit, "Entries requested per page")
	rootCmd.PersistentFlags().String("api-token", "", "Bearer token for the ranking endpoint (prefer APPRANK_API_TOKEN)")
	rootCmd.PersistentFlags().Float64("request-rate", contract.DefaultRequestRate, "Maximum page requests per second")
	rootCmd.PersistentFlags().Int("max-pages", contract.DefaultMaxPages, "Maximum pages followed before giving up")
	rootCmd.PersistentFlags().String("fetch-timeout", contract.DefaultFetchTimeout, "Deadline for fetching the whole ranking")
	rootCmd.PersistentFlags().String("store-timeout", contract.DefaultStoreTimeout, "Deadline for the run-date transaction")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for mysql/postgresql (falls back to DATABASE_URL)")
	rootCmd.PersistentFlags().String("date", "", "Run date as YYYY-MM-DD (default: today in --timezone)")
	rootCmd.PersistentFlags().String("timezone", contract.DefaultTimezone, "IANA timezone that defines the calendar day")
	rootCmd.PersistentFlags().Int("top-k", contract.DefaultTopK, "Entries in the top gainers and top overall lists")
	rootCmd.PersistentFlags().String("notify", string(schema.LogNotifier), "Comma-separated notifiers: log, nats, webhook")
	rootCmd.PersistentFlags().String("nats-url", "", "NATS server URL for the nats notifier")
	rootCmd.PersistentFlags().String("nats-subject", contract.DefaultNATSSubject, "NATS subject for the nats notifier")
	rootCmd.PersistentFlags().String("webhook-url", "", "URL that receives notification JSON")
	rootCmd.PersistentFlags().String("pushgateway-url", "", "Prometheus Pushgateway URL for run metrics")
	rootCmd.PersistentFlags().String("backup-dir", "", "Directory for top_miniapps_<date>.json backups")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored deltas in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", string(schema.TextLog), "Log format: text or json")
	rootCmd.PersistentFlags().String("listen", contract.DefaultListen, "Listen address for serve and schedule")
	rootCmd.PersistentFlags().String("schedule", contract.DefaultSchedule, "Cron spec for the schedule command")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of historyCmd to Viper
	historyCmd.Flags().String("id", "", "Entity id to show the rank history of")
	if err := viper.BindPFlags(historyCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history flags", err)
	}

	// Bind all flags of snapshotShowCmd to Viper
	snapshotShowCmd.Flags().Bool("raw", false, "Print the archived payload instead of its description")
	if err := viper.BindPFlags(snapshotShowCmd.Flags()); err != nil {
		contract.LogFatal("Error binding snapshot show flags", err)
	}

	// Bind all flags of snapshotReplaceCmd to Viper
	snapshotReplaceCmd.Flags().String("from-file", "", "Backup file or JSON array to archive")
	if err := viper.BindPFlags(snapshotReplaceCmd.Flags()); err != nil {
		contract.LogFatal("Error binding snapshot replace flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().StringSlice("cors-origins", []string{"*"}, "Origins allowed to call the API")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}
}
