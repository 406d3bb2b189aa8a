package core

import (
	"testing"

	"github.com/huangsam/apprank/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStatistics(t *testing.T) {
	current := map[string]int{"gamma": 8, "alpha": 4, "beta": 10}
	deltas := map[string]schema.RankDeltas{
		"alpha": {Change24h: schema.KnownDelta(3)},
	}
	aggs := map[string]schema.RankAggregate{
		"alpha": {Count: 3, Sum: 21, Best: 4, Worst: 10},
		"gamma": {Count: 3, Sum: 16, Best: 3, Worst: 8},
	}

	records := BuildStatistics(date("2025-03-10"), current, deltas, aggs)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"alpha", "gamma", "beta"}, []string{records[0].EntityID, records[1].EntityID, records[2].EntityID})

	alpha := records[0]
	assert.Equal(t, date("2025-03-10"), alpha.Date)
	assert.Equal(t, 4, alpha.CurrentRank)
	assert.Equal(t, schema.KnownDelta(3), alpha.Change24h)
	assert.False(t, alpha.Change7d.Valid)
	assert.Equal(t, 3, alpha.TotalObservations)
	assert.InDelta(t, 7.0, alpha.AvgRank, 1e-9)

	gamma := records[1]
	assert.Equal(t, 3, gamma.BestRank)
	assert.Equal(t, 8, gamma.WorstRank)
	assert.InDelta(t, 16.0/3.0, gamma.AvgRank, 1e-9)
}

func TestBuildStatisticsWithoutAggregate(t *testing.T) {
	records := BuildStatistics(date("2025-03-10"), map[string]int{"beta": 10}, nil, nil)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].TotalObservations)
	assert.Equal(t, 10, records[0].BestRank)
	assert.Equal(t, 10, records[0].WorstRank)
	assert.InDelta(t, 10.0, records[0].AvgRank, 1e-9)
	assert.Equal(t, schema.RankDeltas{}, records[0].RankDeltas)
}

func TestBuildStatisticsTiesOrderByID(t *testing.T) {
	records := BuildStatistics(date("2025-03-10"), map[string]int{"b": 1, "a": 1}, nil, nil)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].EntityID)
	assert.Equal(t, "b", records[1].EntityID)
}

func TestBuildStatisticsEmpty(t *testing.T) {
	records := BuildStatistics(date("2025-03-10"), nil, nil, nil)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
