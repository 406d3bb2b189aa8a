package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/store"
	"github.com/huangsam/apprank/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()
	err := s.WithinTx(ctx, func(tx contract.RankTx) error {
		if err := tx.UpsertEntities(ctx, []schema.Entity{
			{ID: "alpha", Name: "Alpha Game", AuthorUsername: "alice", Domain: "alpha.xyz"},
			{ID: "beta", Name: "Beta Swap", AuthorUsername: "bob", Domain: "beta.xyz"},
		}, day); err != nil {
			return err
		}
		if err := tx.UpsertRankFacts(ctx, []schema.RankFact{
			{EntityID: "alpha", Date: day.AddDate(0, 0, -1), Rank: 8},
			{EntityID: "alpha", Date: day, Rank: 2},
			{EntityID: "beta", Date: day, Rank: 1},
		}); err != nil {
			return err
		}
		if err := tx.UpsertStatistics(ctx, []schema.StatisticsRecord{
			{EntityID: "beta", Date: day, CurrentRank: 1, TotalObservations: 1, AvgRank: 1, BestRank: 1, WorstRank: 1},
			{
				EntityID: "alpha", Date: day, CurrentRank: 2,
				RankDeltas:        schema.RankDeltas{Change24h: schema.KnownDelta(6)},
				TotalObservations: 2, AvgRank: 5, BestRank: 2, WorstRank: 8,
			},
		}); err != nil {
			return err
		}
		return tx.ReplaceSnapshot(ctx, schema.Snapshot{Date: day, EntityCount: 2, Payload: json.RawMessage(`[{"rank":1},{"rank":2}]`)})
	})
	require.NoError(t, err)
	return s
}

func serve(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func newTestServer(t *testing.T) *Server {
	return NewServer(seededStore(t), Options{TopK: 5, Limit: 25, Now: func() time.Time { return day }})
}

func TestHealth(t *testing.T) {
	rec, body := serve(t, newTestServer(t), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetSummary(t *testing.T) {
	rec, body := serve(t, newTestServer(t), "/v1/summary?date=2025-03-10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2025-03-10", body["date"])

	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["entity_count"])
	gainers := summary["top_gainers"].([]any)
	require.Len(t, gainers, 1)
	assert.Equal(t, "Alpha Game", gainers[0].(map[string]any)["name"])
	assert.Equal(t, float64(6), gainers[0].(map[string]any)["change"])
	overall := summary["top_overall"].([]any)
	require.Len(t, overall, 2)
	assert.Equal(t, "Beta Swap", overall[0].(map[string]any)["name"])
}

func TestGetSummaryDefaultsToLatestDate(t *testing.T) {
	_, body := serve(t, newTestServer(t), "/v1/summary?top_k=1")
	assert.Equal(t, "2025-03-10", body["date"])
	overall := body["summary"].(map[string]any)["top_overall"].([]any)
	assert.Len(t, overall, 1)
}

func TestGetSummaryEmptyDate(t *testing.T) {
	rec, body := serve(t, newTestServer(t), "/v1/summary?date=2024-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, []any{}, summary["top_gainers"])
	assert.Equal(t, []any{}, summary["top_overall"])
}

func TestBadParams(t *testing.T) {
	s := newTestServer(t)
	for _, target := range []string{
		"/v1/summary?date=yesterday",
		"/v1/summary?top_k=0",
		"/v1/statistics?limit=abc",
		"/v1/snapshots/not-a-date",
	} {
		rec, body := serve(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestGetStatistics(t *testing.T) {
	rec, body := serve(t, newTestServer(t), "/v1/statistics?date=2025-03-10&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total"])
	rows := body["statistics"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "beta", row["entity_id"])
	assert.Nil(t, row["rank_change_24h"])
}

func TestGetHistory(t *testing.T) {
	s := newTestServer(t)
	rec, body := serve(t, s, "/v1/entities/alpha/history")
	require.Equal(t, http.StatusOK, rec.Code)
	history := body["history"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, float64(8), history[0].(map[string]any)["rank"])

	rec, _ = serve(t, s, "/v1/entities/ghost/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSnapshot(t *testing.T) {
	s := newTestServer(t)
	rec, body := serve(t, s, "/v1/snapshots/2025-03-10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["entity_count"])
	assert.Len(t, body["payload"], 2)

	rec, _ = serve(t, s, "/v1/snapshots/2025-03-09")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreFailure(t *testing.T) {
	ms := &store.MockRankStore{}
	ms.On("StatisticsForDate", mock.Anything, day).Return(nil, contract.NewPersistenceError("statistics", "SELECT", errors.New("boom")))

	s := NewServer(ms, Options{TopK: 5, Limit: 25})
	rec, body := serve(t, s, "/v1/statistics?date=2025-03-10")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to get statistics", body["error"])
	ms.AssertExpectations(t)
}

func TestMetricsAndCORS(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("apprank_runs_total 1\n"))
	})
	s := NewServer(seededStore(t), Options{TopK: 5, Limit: 25, Metrics: metrics})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "apprank_runs_total")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://example.com")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
