package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func testConfig(output schema.OutputMode) *contract.Config {
	return &contract.Config{
		Output:      output,
		Precision:   2,
		ResultLimit: 10,
		Width:       120,
		UseColors:   false,
	}
}

func testSummary() schema.Summary {
	return schema.Summary{
		EntityCount: 3,
		TopGainers: []schema.GainerItem{
			{Name: "Alpha Game", Username: "alice", Rank: 4, Change: 6, Domain: "alpha.xyz"},
		},
		TopOverall: []schema.OverallItem{
			{Name: "Beta Swap", Username: "bob", Rank: 1, Domain: "beta.xyz"},
			{Name: "Gamma Feed", Username: "carol", Rank: 2, Domain: "gamma.xyz"},
		},
	}
}

func testRows() []schema.StatisticsRow {
	return []schema.StatisticsRow{
		{
			StatisticsRecord: schema.StatisticsRecord{
				EntityID:    "beta",
				Date:        testDate,
				CurrentRank: 1,
				RankDeltas: schema.RankDeltas{
					Change24h: schema.KnownDelta(0),
					Change72h: schema.KnownDelta(-6),
				},
				TotalObservations: 3,
				AvgRank:           5.333,
				BestRank:          1,
				WorstRank:         8,
			},
			Name:     "Beta Swap",
			Username: "bob",
			Domain:   "beta.xyz",
		},
		{
			StatisticsRecord: schema.StatisticsRecord{
				EntityID:    "alpha",
				Date:        testDate,
				CurrentRank: 4,
				RankDeltas: schema.RankDeltas{
					Change24h: schema.KnownDelta(6),
				},
				TotalObservations: 1,
				AvgRank:           4,
				BestRank:          4,
				WorstRank:         4,
			},
			Name:     "Alpha Game",
			Username: "alice",
			Domain:   "alpha.xyz",
		},
	}
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testSummary(), testDate, testConfig(schema.TextOut)))

	output := buf.String()
	assert.Contains(t, output, "Ranking for 2025-03-10: 3 entities")
	assert.Contains(t, output, "Alpha Game")
	assert.Contains(t, output, "@alice")
	assert.Contains(t, output, "+6")
	assert.Contains(t, output, "Beta Swap")
	assert.Contains(t, output, "gamma.xyz")
}

func TestWriteSummaryTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, schema.Summary{}, testDate, testConfig(schema.TextOut)))

	output := buf.String()
	assert.Contains(t, output, "No gainers today.")
	assert.Contains(t, output, "No entities ranked.")
}

func TestWriteSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testSummary(), testDate, testConfig(schema.JSONOut)))

	var decoded schema.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, testSummary(), decoded)
	assert.Contains(t, buf.String(), `"top_gainers"`)
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testSummary(), testDate, testConfig(schema.CSVOut)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"section", "position", "name", "username", "rank", "change", "domain"}, records[0])
	assert.Equal(t, []string{"top_gainers", "1", "Alpha Game", "alice", "4", "6", "alpha.xyz"}, records[1])
	assert.Equal(t, []string{"top_overall", "2", "Gamma Feed", "carol", "2", "", "gamma.xyz"}, records[3])
}

func TestWriteStatisticsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatistics(&buf, testRows(), testDate, testConfig(schema.TextOut)))

	output := buf.String()
	assert.Contains(t, output, "Beta Swap")
	assert.Contains(t, output, "-6")
	assert.Contains(t, output, "n/a")
	assert.Contains(t, output, "5.33")
	assert.Contains(t, output, "Statistics for 2025-03-10: showing 2 entities")
}

func TestWriteStatisticsLimit(t *testing.T) {
	cfg := testConfig(schema.CSVOut)
	cfg.ResultLimit = 1

	var buf bytes.Buffer
	require.NoError(t, WriteStatistics(&buf, testRows(), testDate, cfg))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "beta", records[1][1])
}

func TestWriteStatisticsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatistics(&buf, testRows(), testDate, testConfig(schema.CSVOut)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "rank_change_24h", records[0][6])
	assert.Equal(t, []string{
		"2025-03-10", "beta", "Beta Swap", "bob", "beta.xyz", "1",
		"0", "-6", "", "",
		"3", "5.33", "1", "8",
	}, records[1])
}

func TestWriteStatisticsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatistics(&buf, testRows(), testDate, testConfig(schema.JSONOut)))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "beta", decoded[0]["entity_id"])
	assert.Equal(t, float64(-6), decoded[0]["rank_change_72h"])
	assert.Nil(t, decoded[0]["rank_change_7d"])
}

func TestWriteStatisticsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatistics(&buf, nil, testDate, testConfig(schema.TextOut)))
	assert.Equal(t, "No statistics recorded for 2025-03-10.\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteStatistics(&buf, nil, testDate, testConfig(schema.JSONOut)))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteHistory(t *testing.T) {
	facts := []schema.RankFact{
		{EntityID: "alpha", Date: testDate.AddDate(0, 0, -3), Rank: 10},
		{EntityID: "alpha", Date: testDate, Rank: 4},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteHistory(&buf, "alpha", facts, testConfig(schema.TextOut)))
		output := buf.String()
		assert.Contains(t, output, "2025-03-07")
		assert.Contains(t, output, "+6")
		assert.Contains(t, output, "History for alpha: 2 observations")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteHistory(&buf, "alpha", facts, testConfig(schema.CSVOut)))
		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"entity_id", "date", "rank"},
			{"alpha", "2025-03-07", "10"},
			{"alpha", "2025-03-10", "4"},
		}, records)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteHistory(&buf, "ghost", nil, testConfig(schema.TextOut)))
		assert.Equal(t, "No rank history for ghost.\n", buf.String())
	})
}

func TestWriteSnapshot(t *testing.T) {
	snap := schema.Snapshot{Date: testDate, EntityCount: 1, Payload: json.RawMessage(`[{"rank":1}]`)}

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, snap, false, testConfig(schema.TextOut)))
	assert.Equal(t, "Snapshot 2025-03-10: 1 entities, 12 payload bytes\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSnapshot(&buf, snap, true, testConfig(schema.TextOut)))
	assert.Equal(t, "[\n  {\n    \"rank\": 1\n  }\n]\n", buf.String())

	buf.Reset()
	bad := schema.Snapshot{Date: testDate, Payload: json.RawMessage(`{`)}
	assert.Error(t, WriteSnapshot(&buf, bad, true, testConfig(schema.TextOut)))
}

func TestWriteStoreStatus(t *testing.T) {
	status := schema.StoreStatus{
		Backend:         "sqlite",
		Connected:       true,
		TableSizes:      map[string]int64{"apprank_runs": 2},
		LatestStatDate:  testDate,
		LatestStatCount: 3,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStoreStatus(&buf, status, testConfig(schema.TextOut)))
	assert.Contains(t, buf.String(), "Latest Statistics: 2025-03-10 (3 entities)")

	buf.Reset()
	require.NoError(t, WriteStoreStatus(&buf, status, testConfig(schema.JSONOut)))
	assert.Contains(t, buf.String(), `"latest_stat_count": 3`)
}

func TestPrintSummaryToFile(t *testing.T) {
	cfg := testConfig(schema.JSONOut)
	cfg.OutputFile = filepath.Join(t.TempDir(), "summary.json")

	require.NoError(t, NewOutWriter().WriteSummary(testSummary(), testDate, cfg))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))
	assert.Contains(t, string(data), "Alpha Game")
}

func TestGetMaxTableNameWidth(t *testing.T) {
	assert.Equal(t, 25, GetMaxTableNameWidth(&contract.Config{Width: 120}))
	assert.Equal(t, 12, GetMaxTableNameWidth(&contract.Config{Width: 60}))
	assert.Equal(t, 40, GetMaxTableNameWidth(&contract.Config{Width: 300}))
}

func TestCSVDelta(t *testing.T) {
	assert.Equal(t, "", csvDelta(schema.RankDelta{}))
	assert.Equal(t, "-3", csvDelta(schema.KnownDelta(-3)))
	assert.Equal(t, "+3", formatDelta(schema.KnownDelta(3), false))
}
