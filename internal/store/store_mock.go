package store

import (
	"context"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetStore implements the StoreManager interface.
func (m *MockStoreManager) GetStore() contract.RankStore {
	ret := m.Called()
	s, _ := ret.Get(0).(contract.RankStore)
	return s
}

// MockRankStore is a mock implementation of RankStore for testing.
type MockRankStore struct {
	mock.Mock
}

var _ contract.RankStore = &MockRankStore{} // Compile-time check

// RanksOnDates implements the RankStore interface.
func (m *MockRankStore) RanksOnDates(ctx context.Context, dates []time.Time) (map[string]map[string]int, error) {
	args := m.Called(ctx, dates)
	ranks, _ := args.Get(0).(map[string]map[string]int)
	return ranks, args.Error(1)
}

// RankAggregates implements the RankStore interface.
func (m *MockRankStore) RankAggregates(ctx context.Context, through time.Time) (map[string]schema.RankAggregate, error) {
	args := m.Called(ctx, through)
	aggs, _ := args.Get(0).(map[string]schema.RankAggregate)
	return aggs, args.Error(1)
}

// StatisticsForDate implements the RankStore interface.
func (m *MockRankStore) StatisticsForDate(ctx context.Context, date time.Time) ([]schema.StatisticsRow, error) {
	args := m.Called(ctx, date)
	rows, _ := args.Get(0).([]schema.StatisticsRow)
	return rows, args.Error(1)
}

// WithinTx implements the RankStore interface.
// When the first return value is a contract.RankTx, fn runs against it.
func (m *MockRankStore) WithinTx(ctx context.Context, fn func(tx contract.RankTx) error) error {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(contract.RankTx); ok {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return args.Error(1)
}

// BeginRun implements the RankStore interface.
func (m *MockRankStore) BeginRun(ctx context.Context, run schema.RunRecord) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// EndRun implements the RankStore interface.
func (m *MockRankStore) EndRun(ctx context.Context, runID string, status schema.RunStatus, entityCount int, finishedAt time.Time, errMsg string) error {
	args := m.Called(ctx, runID, status, entityCount, finishedAt, errMsg)
	return args.Error(0)
}

// EntityHistory implements the RankStore interface.
func (m *MockRankStore) EntityHistory(ctx context.Context, entityID string) ([]schema.RankFact, error) {
	args := m.Called(ctx, entityID)
	facts, _ := args.Get(0).([]schema.RankFact)
	return facts, args.Error(1)
}

// GetSnapshot implements the RankStore interface.
func (m *MockRankStore) GetSnapshot(ctx context.Context, date time.Time) (schema.Snapshot, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(schema.Snapshot), args.Error(1)
}

// AllStatistics implements the RankStore interface.
func (m *MockRankStore) AllStatistics(ctx context.Context, date time.Time) ([]schema.StatisticsRecord, error) {
	args := m.Called(ctx, date)
	records, _ := args.Get(0).([]schema.StatisticsRecord)
	return records, args.Error(1)
}

// AllRankFacts implements the RankStore interface.
func (m *MockRankStore) AllRankFacts(ctx context.Context, date time.Time) ([]schema.RankFact, error) {
	args := m.Called(ctx, date)
	facts, _ := args.Get(0).([]schema.RankFact)
	return facts, args.Error(1)
}

// GetStatus implements the RankStore interface.
func (m *MockRankStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the RankStore interface.
func (m *MockRankStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRankTx is a mock implementation of RankTx for testing.
type MockRankTx struct {
	mock.Mock
}

var _ contract.RankTx = &MockRankTx{} // Compile-time check

// RanksOnDates implements the RankTx interface.
func (m *MockRankTx) RanksOnDates(ctx context.Context, dates []time.Time) (map[string]map[string]int, error) {
	args := m.Called(ctx, dates)
	ranks, _ := args.Get(0).(map[string]map[string]int)
	return ranks, args.Error(1)
}

// RankAggregates implements the RankTx interface.
func (m *MockRankTx) RankAggregates(ctx context.Context, through time.Time) (map[string]schema.RankAggregate, error) {
	args := m.Called(ctx, through)
	aggs, _ := args.Get(0).(map[string]schema.RankAggregate)
	return aggs, args.Error(1)
}

// StatisticsForDate implements the RankTx interface.
func (m *MockRankTx) StatisticsForDate(ctx context.Context, date time.Time) ([]schema.StatisticsRow, error) {
	args := m.Called(ctx, date)
	rows, _ := args.Get(0).([]schema.StatisticsRow)
	return rows, args.Error(1)
}

// UpsertEntities implements the RankTx interface.
func (m *MockRankTx) UpsertEntities(ctx context.Context, entities []schema.Entity, seenOn time.Time) error {
	return m.Called(ctx, entities, seenOn).Error(0)
}

// UpsertRankFacts implements the RankTx interface.
func (m *MockRankTx) UpsertRankFacts(ctx context.Context, facts []schema.RankFact) error {
	return m.Called(ctx, facts).Error(0)
}

// UpsertStatistics implements the RankTx interface.
func (m *MockRankTx) UpsertStatistics(ctx context.Context, records []schema.StatisticsRecord) error {
	return m.Called(ctx, records).Error(0)
}

// ReplaceSnapshot implements the RankTx interface.
func (m *MockRankTx) ReplaceSnapshot(ctx context.Context, snap schema.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}
