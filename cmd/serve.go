package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/apprank/core"
	"github.com/huangsam/apprank/internal/api"
	"github.com/huangsam/apprank/internal/metrics"
	"github.com/huangsam/apprank/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd serves the read-only API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve summaries, statistics, history and snapshots over HTTP",
	Long: `Start a read-only JSON API over the rank store.

Endpoints:
  GET /healthz
  GET /metrics
  GET /v1/summary?date=YYYY-MM-DD&top_k=N
  GET /v1/statistics?date=YYYY-MM-DD&limit=N
  GET /v1/entities/{id}/history
  GET /v1/snapshots/{date}

Examples:
  apprank serve --listen :8080
  apprank serve --cors-origins https://dashboard.example.com`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		collector := metrics.NewCollector(true)
		srv := api.NewServer(store.Manager.GetStore(), api.Options{
			Addr:           cfg.Listen,
			TopK:           cfg.TopK,
			Limit:          cfg.ResultLimit,
			AllowedOrigins: viper.GetStringSlice("cors-origins"),
			Metrics:        collector.Handler(),
			Logger:         logger,
		})
		return srv.Run(ctx)
	},
}

// scheduleCmd runs the pipeline on a cron spec.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline daily on a cron schedule",
	Long: `Keep running and ingest the ranking whenever --schedule fires, evaluated in
--timezone. Every trigger uses the calendar date at that moment. A trigger that fires
while the previous run is still going is skipped.

Run metrics are served at /metrics on --listen.

Examples:
  # Every day at 06:00 UTC (default)
  apprank schedule

  # 00:05 in New York, notifying a webhook
  apprank schedule --schedule "5 0 * * *" --timezone America/New_York --notify webhook --webhook-url https://hooks.example.com/apprank`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return core.ExecuteSchedule(ctx, cfg, store.Manager, logger)
	},
}
