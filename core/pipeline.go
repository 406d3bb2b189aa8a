package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/upstream"
	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
)

// Pipeline runs fetch, persistence, derivation and reporting for one run date.
type Pipeline struct {
	fetcher      contract.RankFetcher
	store        contract.RankStore
	notifier     contract.Notifier
	observer     contract.RunObserver
	log          logrus.FieldLogger
	topK         int
	fetchTimeout time.Duration
	storeTimeout time.Duration
	backupDir    string
	now          func() time.Time
	newRunID     func() string
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithObserver registers a run observer such as the metrics collector.
func WithObserver(o contract.RunObserver) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(log logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithRunIDs replaces the run id generator, mostly for tests.
func WithRunIDs(next func() string) PipelineOption {
	return func(p *Pipeline) { p.newRunID = next }
}

// NewPipeline wires the collaborators of a run with settings from cfg.
func NewPipeline(cfg *contract.Config, fetcher contract.RankFetcher, store contract.RankStore, notifier contract.Notifier, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetcher:      fetcher,
		store:        store,
		notifier:     notifier,
		log:          contract.DiscardLogger(),
		topK:         cfg.TopK,
		fetchTimeout: cfg.FetchTimeout,
		storeTimeout: cfg.StoreTimeout,
		backupDir:    cfg.BackupDir,
		now:          time.Now,
		newRunID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunResult describes a successful run.
type RunResult struct {
	Run        schema.RunInfo
	Summary    schema.Summary
	Statistics []schema.StatisticsRecord
	BackupPath string
}

// Run executes one run for runDate. Fetch failures leave the store untouched, and
// persistence failures roll back the whole run-date write set. Failures are reported
// to the notifier and returned.
func (p *Pipeline) Run(ctx context.Context, runDate time.Time) (RunResult, error) {
	started := p.now()
	run := schema.RunInfo{ID: p.newRunID(), Date: schema.NormalizeDate(runDate)}
	log := p.log.WithFields(logrus.Fields{"run_id": run.ID, "run_date": schema.FormatDate(run.Date)})

	if err := p.beginRun(ctx, schema.RunRecord{
		RunID:     run.ID,
		RunDate:   run.Date,
		StartedAt: started,
		Status:    schema.RunRunning,
	}); err != nil {
		return RunResult{}, p.fail(ctx, log, run, started, err)
	}
	log.Info("run started")

	fetched, err := p.fetch(ctx)
	if err != nil {
		return RunResult{}, p.fail(ctx, log, run, started, err)
	}
	// the snapshot keeps every fetched entry, duplicates included
	payload, err := upstream.EncodePayload(fetched)
	if err != nil {
		return RunResult{}, p.fail(ctx, log, run, started, err)
	}
	entries := dedupeEntries(fetched, log)
	log.WithFields(logrus.Fields{"entity_count": len(entries), "fetched": len(fetched)}).Info("fetched ranking")

	var out persistOutput
	sctx, cancel := withOptionalTimeout(ctx, p.storeTimeout)
	defer cancel()
	err = p.store.WithinTx(sctx, func(tx contract.RankTx) error {
		var txErr error
		out, txErr = p.persist(sctx, tx, run.Date, entries, payload)
		return txErr
	})
	if err != nil {
		return RunResult{}, p.fail(ctx, log, run, started, err)
	}
	log.WithField("statistics", len(out.records)).Info("committed run date")

	result := RunResult{Run: run, Summary: out.summary, Statistics: out.records}
	result.Summary.EntityCount = len(entries)

	finished := p.now()
	if err := p.endRun(ctx, run.ID, schema.RunSucceeded, len(entries), finished, ""); err != nil {
		log.WithError(err).Warn("failed to record run completion")
	}

	if p.backupDir != "" {
		path, err := WriteBackup(p.backupDir, run.Date, entries, out.deltas)
		if err != nil {
			log.WithError(err).Warn("failed to write backup")
		} else {
			result.BackupPath = path
			log.WithField("path", path).Debug("wrote backup")
		}
	}

	if p.notifier != nil {
		if err := p.notifier.NotifySuccess(ctx, run, result.Summary); err != nil {
			log.WithError(err).Warn("failed to deliver success notification")
		}
	}
	if p.observer != nil {
		p.observer.ObserveRun(schema.RunSucceeded, len(entries), finished.Sub(started), finished)
	}
	log.WithFields(logrus.Fields{
		"entity_count": len(entries),
		"top_gainers":  len(result.Summary.TopGainers),
		"duration":     finished.Sub(started).String(),
	}).Info("run succeeded")
	return result, nil
}

// persistOutput carries what the transaction computed.
type persistOutput struct {
	records []schema.StatisticsRecord
	deltas  map[string]schema.RankDeltas
	summary schema.Summary
}

// persist writes the run-date set and derives statistics inside one transaction.
func (p *Pipeline) persist(ctx context.Context, tx contract.RankTx, date time.Time, entries []schema.RankEntry, payload []byte) (persistOutput, error) {
	entities := make([]schema.Entity, len(entries))
	facts := make([]schema.RankFact, len(entries))
	current := make(map[string]int, len(entries))
	for i, e := range entries {
		entities[i] = e.Entity
		facts[i] = schema.RankFact{EntityID: e.Entity.ID, Date: date, Rank: e.Rank}
		current[e.Entity.ID] = e.Rank
	}

	if err := tx.UpsertEntities(ctx, entities, date); err != nil {
		return persistOutput{}, err
	}
	if err := tx.UpsertRankFacts(ctx, facts); err != nil {
		return persistOutput{}, err
	}

	deltas, err := ComputeDeltas(ctx, tx, date, current)
	if err != nil {
		return persistOutput{}, err
	}
	aggs, err := tx.RankAggregates(ctx, date)
	if err != nil {
		return persistOutput{}, err
	}
	records := BuildStatistics(date, current, deltas, aggs)
	if err := tx.UpsertStatistics(ctx, records); err != nil {
		return persistOutput{}, err
	}

	if err := tx.ReplaceSnapshot(ctx, schema.Snapshot{Date: date, EntityCount: len(entries), Payload: payload}); err != nil {
		return persistOutput{}, err
	}

	// read back inside the transaction so the summary matches what commits
	summary, err := SummaryForDate(ctx, tx, date, p.topK)
	if err != nil {
		return persistOutput{}, err
	}
	return persistOutput{records: records, deltas: deltas, summary: summary}, nil
}

func (p *Pipeline) fetch(ctx context.Context) ([]schema.RankEntry, error) {
	fctx, cancel := withOptionalTimeout(ctx, p.fetchTimeout)
	defer cancel()
	entries, err := p.fetcher.FetchAll(fctx)
	if err != nil {
		var ue *contract.UpstreamError
		if !errors.As(err, &ue) {
			err = &contract.UpstreamError{Op: "fetch", Err: err}
		}
		return nil, err
	}
	return entries, nil
}

// beginRun and endRun bound run-log writes by the store timeout.
func (p *Pipeline) beginRun(ctx context.Context, run schema.RunRecord) error {
	sctx, cancel := withOptionalTimeout(ctx, p.storeTimeout)
	defer cancel()
	return contract.NewPersistenceError("begin run", "", p.store.BeginRun(sctx, run))
}

func (p *Pipeline) endRun(ctx context.Context, runID string, status schema.RunStatus, entityCount int, finished time.Time, errMsg string) error {
	sctx, cancel := withOptionalTimeout(ctx, p.storeTimeout)
	defer cancel()
	return contract.NewPersistenceError("end run", "", p.store.EndRun(sctx, runID, status, entityCount, finished, errMsg))
}

// fail records, reports and returns err.
func (p *Pipeline) fail(ctx context.Context, log logrus.FieldLogger, run schema.RunInfo, started time.Time, err error) error {
	finished := p.now()
	report := contract.FailureReportFor(err)
	log.WithError(err).WithField("kind", report.Title).Error("run failed")

	if endErr := p.endRun(ctx, run.ID, schema.RunFailed, 0, finished, err.Error()); endErr != nil {
		log.WithError(endErr).Warn("failed to record run failure")
	}
	if p.notifier != nil {
		if nErr := p.notifier.NotifyFailure(ctx, run, report); nErr != nil {
			log.WithError(nErr).Warn("failed to deliver failure notification")
		}
	}
	if p.observer != nil {
		p.observer.ObserveRun(schema.RunFailed, 0, finished.Sub(started), finished)
	}
	return err
}

// dedupeEntries keeps the first occurrence of every entity id.
func dedupeEntries(entries []schema.RankEntry, log logrus.FieldLogger) []schema.RankEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]schema.RankEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Entity.ID]; ok {
			log.WithFields(logrus.Fields{"entity_id": e.Entity.ID, "rank": e.Rank}).Warn("dropping duplicate ranking entry")
			continue
		}
		seen[e.Entity.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
