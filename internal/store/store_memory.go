package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// factKey identifies a row keyed by entity and date.
type factKey struct {
	id   string
	date string
}

// memoryState is the full content of a MemoryStore.
type memoryState struct {
	entities  map[string]schema.Entity
	facts     map[factKey]int
	stats     map[factKey]schema.StatisticsRecord
	snapshots map[string]schema.Snapshot
}

func newMemoryState() *memoryState {
	return &memoryState{
		entities:  make(map[string]schema.Entity),
		facts:     make(map[factKey]int),
		stats:     make(map[factKey]schema.StatisticsRecord),
		snapshots: make(map[string]schema.Snapshot),
	}
}

func (m *memoryState) clone() *memoryState {
	return &memoryState{
		entities:  maps.Clone(m.entities),
		facts:     maps.Clone(m.facts),
		stats:     maps.Clone(m.stats),
		snapshots: maps.Clone(m.snapshots),
	}
}

// MemoryStore keeps everything in process memory. It backs the none backend
// and unit tests that need a real store.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
	runs  []schema.RunRecord
}

var _ contract.RankStore = &MemoryStore{} // Compile-time check

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// WithinTx runs fn against a copy of the state and publishes it only on success.
// A context that ends before publishing discards the copy.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx contract.RankTx) error) error {
	if err := ctx.Err(); err != nil {
		return contract.NewPersistenceError("begin transaction", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	working := s.state.clone()
	if err := fn(&memoryTx{state: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return contract.NewPersistenceError("commit", "", err)
	}
	s.state = working
	return nil
}

// RanksOnDates implements contract.RankReader.
func (s *MemoryStore) RanksOnDates(ctx context.Context, dates []time.Time) (map[string]map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memoryTx{state: s.state}).RanksOnDates(ctx, dates)
}

// RankAggregates implements contract.RankReader.
func (s *MemoryStore) RankAggregates(ctx context.Context, through time.Time) (map[string]schema.RankAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memoryTx{state: s.state}).RankAggregates(ctx, through)
}

// StatisticsForDate implements contract.RankReader.
func (s *MemoryStore) StatisticsForDate(ctx context.Context, date time.Time) ([]schema.StatisticsRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memoryTx{state: s.state}).StatisticsForDate(ctx, date)
}

// BeginRun implements contract.RankStore.
func (s *MemoryStore) BeginRun(_ context.Context, run schema.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		if r.RunID == run.RunID {
			return contract.NewPersistenceError("begin run", "", fmt.Errorf("duplicate run id %s", run.RunID))
		}
	}
	if run.Status == "" {
		run.Status = schema.RunRunning
	}
	run.RunDate = schema.NormalizeDate(run.RunDate)
	s.runs = append(s.runs, run)
	return nil
}

// EndRun implements contract.RankStore.
func (s *MemoryStore) EndRun(_ context.Context, runID string, status schema.RunStatus, entityCount int, finishedAt time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].RunID == runID {
			finished := finishedAt.UTC()
			s.runs[i].FinishedAt = &finished
			s.runs[i].Status = status
			s.runs[i].EntityCount = entityCount
			s.runs[i].Error = errMsg
			return nil
		}
	}
	return fmt.Errorf("run %s: %w", runID, contract.ErrNotFound)
}

// Runs returns a copy of the run log, oldest first.
func (s *MemoryStore) Runs() []schema.RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schema.RunRecord(nil), s.runs...)
}

// EntityHistory implements contract.RankStore.
func (s *MemoryStore) EntityHistory(_ context.Context, entityID string) ([]schema.RankFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	facts := []schema.RankFact{}
	for k, rank := range s.state.facts {
		if k.id == entityID {
			facts = append(facts, newFact(k, rank))
		}
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Date.Before(facts[j].Date) })
	return facts, nil
}

// GetSnapshot implements contract.RankStore.
func (s *MemoryStore) GetSnapshot(_ context.Context, date time.Time) (schema.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.state.snapshots[schema.FormatDate(date)]
	if !ok {
		return schema.Snapshot{}, fmt.Errorf("snapshot %s: %w", schema.FormatDate(date), contract.ErrNotFound)
	}
	return snap, nil
}

// AllStatistics implements contract.RankStore.
func (s *MemoryStore) AllStatistics(_ context.Context, date time.Time) ([]schema.StatisticsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := []schema.StatisticsRecord{}
	for k, rec := range s.state.stats {
		if date.IsZero() || k.date == schema.FormatDate(date) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.CurrentRank != b.CurrentRank {
			return a.CurrentRank < b.CurrentRank
		}
		return a.EntityID < b.EntityID
	})
	return records, nil
}

// AllRankFacts implements contract.RankStore.
func (s *MemoryStore) AllRankFacts(_ context.Context, date time.Time) ([]schema.RankFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	facts := []schema.RankFact{}
	for k, rank := range s.state.facts {
		if date.IsZero() || k.date == schema.FormatDate(date) {
			facts = append(facts, newFact(k, rank))
		}
	}
	sort.Slice(facts, func(i, j int) bool {
		a, b := facts[i], facts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.EntityID < b.EntityID
	})
	return facts, nil
}

// GetStatus implements contract.RankStore.
func (s *MemoryStore) GetStatus(_ context.Context) (schema.StoreStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := schema.StoreStatus{
		Backend:   string(schema.NoneBackend),
		Connected: true,
		TableSizes: map[string]int64{
			entitiesTable:   int64(len(s.state.entities)),
			rankFactsTable:  int64(len(s.state.facts)),
			statisticsTable: int64(len(s.state.stats)),
			snapshotsTable:  int64(len(s.state.snapshots)),
			runsTable:       int64(len(s.runs)),
		},
	}
	counts := make(map[string]int64)
	for k := range s.state.stats {
		counts[k.date]++
	}
	latest := ""
	for d := range counts {
		if d > latest {
			latest = d
		}
	}
	if latest != "" {
		status.LatestStatDate, _ = schema.ParseDate(latest)
		status.LatestStatCount = counts[latest]
	}
	if n := len(s.runs); n > 0 {
		last := s.runs[n-1]
		status.LastRun = &last
	}
	return status, nil
}

// Close implements contract.RankStore.
func (s *MemoryStore) Close() error { return nil }

func newFact(k factKey, rank int) schema.RankFact {
	d, _ := schema.ParseDate(k.date)
	return schema.RankFact{EntityID: k.id, Date: d, Rank: rank}
}

// memoryTx operates on a working copy owned by WithinTx.
type memoryTx struct {
	state *memoryState
}

var _ contract.RankTx = &memoryTx{} // Compile-time check

func (t *memoryTx) RanksOnDates(_ context.Context, dates []time.Time) (map[string]map[string]int, error) {
	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[schema.FormatDate(d)] = true
	}
	result := make(map[string]map[string]int, len(dates))
	for k, rank := range t.state.facts {
		if !wanted[k.date] {
			continue
		}
		if result[k.date] == nil {
			result[k.date] = make(map[string]int)
		}
		result[k.date][k.id] = rank
	}
	return result, nil
}

func (t *memoryTx) RankAggregates(_ context.Context, through time.Time) (map[string]schema.RankAggregate, error) {
	limit := schema.FormatDate(through)
	result := make(map[string]schema.RankAggregate)
	for k, rank := range t.state.facts {
		if k.date > limit {
			continue
		}
		agg, ok := result[k.id]
		if !ok {
			agg = schema.RankAggregate{Best: rank, Worst: rank}
		}
		agg.Count++
		agg.Sum += rank
		agg.Best = min(agg.Best, rank)
		agg.Worst = max(agg.Worst, rank)
		result[k.id] = agg
	}
	return result, nil
}

func (t *memoryTx) StatisticsForDate(_ context.Context, date time.Time) ([]schema.StatisticsRow, error) {
	day := schema.FormatDate(date)
	rows := []schema.StatisticsRow{}
	for k, rec := range t.state.stats {
		if k.date != day {
			continue
		}
		e := t.state.entities[k.id]
		rows = append(rows, schema.StatisticsRow{
			StatisticsRecord: rec,
			Name:             e.Name,
			Username:         e.AuthorUsername,
			Domain:           e.Domain,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CurrentRank != rows[j].CurrentRank {
			return rows[i].CurrentRank < rows[j].CurrentRank
		}
		return rows[i].EntityID < rows[j].EntityID
	})
	return rows, nil
}

func (t *memoryTx) UpsertEntities(_ context.Context, entities []schema.Entity, _ time.Time) error {
	for _, e := range entities {
		t.state.entities[e.ID] = e
	}
	return nil
}

func (t *memoryTx) UpsertRankFacts(_ context.Context, facts []schema.RankFact) error {
	for _, f := range facts {
		t.state.facts[factKey{f.EntityID, schema.FormatDate(f.Date)}] = f.Rank
	}
	return nil
}

func (t *memoryTx) UpsertStatistics(_ context.Context, records []schema.StatisticsRecord) error {
	for _, r := range records {
		r.Date = schema.NormalizeDate(r.Date)
		t.state.stats[factKey{r.EntityID, schema.FormatDate(r.Date)}] = r
	}
	return nil
}

func (t *memoryTx) ReplaceSnapshot(_ context.Context, snap schema.Snapshot) error {
	snap.Date = schema.NormalizeDate(snap.Date)
	snap.Payload = append([]byte(nil), snap.Payload...)
	t.state.snapshots[schema.FormatDate(snap.Date)] = snap
	return nil
}
