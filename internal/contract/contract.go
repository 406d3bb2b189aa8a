// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"errors"
	"time"

	"github.com/huangsam/apprank/schema"
)

// ErrNotFound is returned by single-row reads that match nothing.
var ErrNotFound = errors.New("not found")

// RankFetcher retrieves the complete current ranking from the upstream service.
// This allows the pipeline to be tested without a live endpoint.
type RankFetcher interface {
	// FetchAll follows the cursor until exhausted and returns every entry in upstream order.
	FetchAll(ctx context.Context) ([]schema.RankEntry, error)
}

// RankReader is the read side shared by the store and an open run transaction.
type RankReader interface {
	// RanksOnDates returns rank facts recorded on any of the dates,
	// keyed by YYYY-MM-DD then entity id, in a single lookup.
	RanksOnDates(ctx context.Context, dates []time.Time) (map[string]map[string]int, error)

	// RankAggregates returns count/sum/min/max over every fact recorded on or before through.
	RankAggregates(ctx context.Context, through time.Time) (map[string]schema.RankAggregate, error)

	// StatisticsForDate returns the statistics of a date joined with entity display fields.
	StatisticsForDate(ctx context.Context, date time.Time) ([]schema.StatisticsRow, error)
}

// RankTx is the write set of one run date. It commits or rolls back as a unit.
type RankTx interface {
	RankReader

	UpsertEntities(ctx context.Context, entities []schema.Entity, seenOn time.Time) error
	UpsertRankFacts(ctx context.Context, facts []schema.RankFact) error
	UpsertStatistics(ctx context.Context, records []schema.StatisticsRecord) error

	// ReplaceSnapshot deletes any snapshot of the date and inserts the new one.
	ReplaceSnapshot(ctx context.Context, snap schema.Snapshot) error
}

// RankStore defines the relational store owned by the pipeline.
type RankStore interface {
	RankReader

	// WithinTx runs fn in one transaction, committing only if fn returns nil.
	WithinTx(ctx context.Context, fn func(tx RankTx) error) error

	// BeginRun and EndRun maintain the run log outside the run-date transaction.
	BeginRun(ctx context.Context, run schema.RunRecord) error
	EndRun(ctx context.Context, runID string, status schema.RunStatus, entityCount int, finishedAt time.Time, errMsg string) error

	EntityHistory(ctx context.Context, entityID string) ([]schema.RankFact, error)
	GetSnapshot(ctx context.Context, date time.Time) (schema.Snapshot, error)

	// AllStatistics and AllRankFacts feed exports; a zero date means every date.
	AllStatistics(ctx context.Context, date time.Time) ([]schema.StatisticsRecord, error)
	AllRankFacts(ctx context.Context, date time.Time) ([]schema.RankFact, error)

	GetStatus(ctx context.Context) (schema.StoreStatus, error)
	Close() error
}

// Notifier receives the outcome of a run.
type Notifier interface {
	NotifySuccess(ctx context.Context, run schema.RunInfo, summary schema.Summary) error
	NotifyFailure(ctx context.Context, run schema.RunInfo, report schema.FailureReport) error
}

// StoreManager provides access to the process-wide rank store.
type StoreManager interface {
	GetStore() RankStore
}

// RunObserver records the outcome of each run, e.g. as metrics.
type RunObserver interface {
	ObserveRun(status schema.RunStatus, entityCount int, duration time.Duration, finishedAt time.Time)
}
