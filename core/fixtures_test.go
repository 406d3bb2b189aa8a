package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/store"
	"github.com/huangsam/apprank/schema"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := schema.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// rankEntries builds fetched entries in rank order from id -> rank.
func rankEntries(ranks map[string]int) []schema.RankEntry {
	entries := make([]schema.RankEntry, 0, len(ranks))
	for id, rank := range ranks {
		raw := fmt.Sprintf(`{"miniApp":{"id":%q,"name":"App %s","domain":"%s.xyz","author":{"username":"u-%s"}},"rank":%d}`, id, id, id, id, rank)
		entries = append(entries, schema.RankEntry{
			Entity: schema.Entity{ID: id, Name: "App " + id, Domain: id + ".xyz", AuthorUsername: "u-" + id},
			Rank:   rank,
			Raw:    json.RawMessage(raw),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
	return entries
}

// staticFetcher returns the same entries on every call.
type staticFetcher []schema.RankEntry

func (f staticFetcher) FetchAll(context.Context) ([]schema.RankEntry, error) {
	return f, nil
}

// silentNotifier accepts every notification.
type silentNotifier struct {
	successes []schema.Summary
	failures  []schema.FailureReport
}

func (n *silentNotifier) NotifySuccess(_ context.Context, _ schema.RunInfo, summary schema.Summary) error {
	n.successes = append(n.successes, summary)
	return nil
}

func (n *silentNotifier) NotifyFailure(_ context.Context, _ schema.RunInfo, report schema.FailureReport) error {
	n.failures = append(n.failures, report)
	return nil
}

func testConfig() *contract.Config {
	return &contract.Config{
		TopK:         5,
		ResultLimit:  25,
		Precision:    1,
		FetchTimeout: time.Minute,
		StoreTimeout: time.Minute,
		Output:       schema.JSONOut,
	}
}

func testStores(t *testing.T) map[string]contract.RankStore {
	t.Helper()
	sqlite, err := store.NewRankStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]contract.RankStore{"sqlite": sqlite, "memory": store.NewMemoryStore()}
}

// runDay runs the pipeline once for day with ranks.
func runDay(t *testing.T, s contract.RankStore, day string, ranks map[string]int) RunResult {
	t.Helper()
	p := NewPipeline(testConfig(), staticFetcher(rankEntries(ranks)), s, &silentNotifier{})
	result, err := p.Run(context.Background(), date(day))
	require.NoError(t, err)
	return result
}

// threeDays ingests the scenario used across pipeline tests.
func threeDays(t *testing.T, s contract.RankStore) RunResult {
	t.Helper()
	runDay(t, s, "2025-03-07", map[string]int{"alpha": 10, "beta": 4, "gamma": 5})
	runDay(t, s, "2025-03-09", map[string]int{"alpha": 7, "beta": 6, "gamma": 3})
	return runDay(t, s, "2025-03-10", map[string]int{"alpha": 4, "beta": 10, "gamma": 8})
}

type storeManager struct {
	s contract.RankStore
}

func (m storeManager) GetStore() contract.RankStore { return m.s }
