// Package core has core logic for deltas, aggregates, statistics, summaries and runs.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/metrics"
	"github.com/huangsam/apprank/internal/notify"
	"github.com/huangsam/apprank/internal/outwriter"
	"github.com/huangsam/apprank/internal/parquet"
	"github.com/huangsam/apprank/internal/upstream"
	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
)

// ExecuteRun runs the pipeline once for cfg.RunDate and prints the summary.
// It serves as the main entry point for the 'run' command.
func ExecuteRun(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, log logrus.FieldLogger) error {
	collector := metrics.NewCollector(false)
	notifier, closeNotifier, err := notify.New(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	fetcher := upstream.NewFetcher(cfg, upstream.WithLogger(log), upstream.WithPageHook(collector.ObservePage))
	pipeline := NewPipeline(cfg, fetcher, mgr.GetStore(), notifier,
		WithObserver(collector),
		WithPipelineLogger(log),
	)

	result, runErr := pipeline.Run(ctx, cfg.RunDate)
	pushMetrics(ctx, cfg, collector, log)
	if runErr != nil {
		return runErr
	}
	return outwriter.NewOutWriter().WriteSummary(result.Summary, result.Run.Date, cfg)
}

// pushMetrics sends the run metrics to the Pushgateway when one is configured.
func pushMetrics(ctx context.Context, cfg *contract.Config, collector *metrics.Collector, log logrus.FieldLogger) {
	if cfg.PushgatewayURL == "" {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := collector.Push(pctx, cfg.PushgatewayURL); err != nil {
		log.WithError(err).Warn("failed to push metrics")
	}
}

// ExecuteSummary prints the top gainers and top overall of cfg.RunDate.
func ExecuteSummary(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	summary, err := SummaryForDate(ctx, mgr.GetStore(), cfg.RunDate, cfg.TopK)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteSummary(summary, cfg.RunDate, cfg)
}

// ExecuteStatistics prints the statistics rows of cfg.RunDate ordered by current rank.
func ExecuteStatistics(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	rows, err := mgr.GetStore().StatisticsForDate(ctx, cfg.RunDate)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteStatistics(rows, cfg.RunDate, cfg)
}

// ExecuteHistory prints every recorded rank of one entity.
func ExecuteHistory(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, entityID string) error {
	if entityID == "" {
		return errors.New("--id is required")
	}
	facts, err := mgr.GetStore().EntityHistory(ctx, entityID)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteHistory(entityID, facts, cfg)
}

// ExecuteSnapshotShow prints the archived snapshot of cfg.RunDate.
func ExecuteSnapshotShow(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, raw bool) error {
	snap, err := mgr.GetStore().GetSnapshot(ctx, cfg.RunDate)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteSnapshot(snap, raw, cfg)
}

// ExecuteSnapshotReplace re-archives a backup or payload file as the snapshot of
// cfg.RunDate, or of the backup's own date when no --date was given.
func ExecuteSnapshotReplace(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, path string) (schema.Snapshot, error) {
	if path == "" {
		return schema.Snapshot{}, errors.New("--from-file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var date time.Time
	if cfg.RunDateSet {
		date = cfg.RunDate
	}
	snap, err := LoadSnapshotFile(data, date)
	if err != nil && date.IsZero() {
		// a bare array carries no date of its own
		snap, err = LoadSnapshotFile(data, cfg.RunDate)
	}
	if err != nil {
		return schema.Snapshot{}, err
	}
	if err := ReplaceSnapshot(ctx, mgr.GetStore(), snap); err != nil {
		return schema.Snapshot{}, err
	}
	return snap, nil
}

// ExecuteExport writes statistics and rank facts to <prefix>.statistics.parquet and
// <prefix>.rank_facts.parquet. Without --date every date is exported.
func ExecuteExport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]string, error) {
	if cfg.OutputFile == "" {
		return nil, errors.New("--output-file is required for export")
	}
	var date time.Time
	if cfg.RunDateSet {
		date = cfg.RunDate
	}

	s := mgr.GetStore()
	records, err := s.AllStatistics(ctx, date)
	if err != nil {
		return nil, err
	}
	facts, err := s.AllRankFacts(ctx, date)
	if err != nil {
		return nil, err
	}

	statsPath := cfg.OutputFile + ".statistics.parquet"
	if err := parquet.WriteStatisticsParquet(parquet.FromStatistics(records), statsPath); err != nil {
		return nil, err
	}
	factsPath := cfg.OutputFile + ".rank_facts.parquet"
	if err := parquet.WriteRankFactsParquet(parquet.FromRankFacts(facts), factsPath); err != nil {
		return nil, err
	}
	return []string{statsPath, factsPath}, nil
}

// ExecuteStoreStatus prints the status of the configured store.
func ExecuteStoreStatus(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	status, err := mgr.GetStore().GetStatus(ctx)
	if err != nil {
		return err
	}
	return outwriter.WriteStoreStatus(os.Stdout, status, cfg)
}
