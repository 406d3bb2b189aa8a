package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaBetweenSign(t *testing.T) {
	// rank 10 three days ago, rank 4 today: moved up six places
	assert.Equal(t, KnownDelta(6), DeltaBetween(10, 4))
	// rank 4 three days ago, rank 10 today: fell six places
	assert.Equal(t, KnownDelta(-6), DeltaBetween(4, 10))
	assert.Equal(t, KnownDelta(0), DeltaBetween(7, 7))
}

func TestRankDeltaUnknownIsNotZero(t *testing.T) {
	var unknown RankDelta
	assert.False(t, unknown.Valid)
	assert.Nil(t, unknown.Ptr())
	assert.NotEqual(t, KnownDelta(0), unknown)
	assert.Equal(t, "n/a", unknown.String())

	zero := KnownDelta(0)
	require.NotNil(t, zero.Ptr())
	assert.Equal(t, 0, *zero.Ptr())
	assert.Equal(t, "0", zero.String())
	assert.Equal(t, "+3", KnownDelta(3).String())
	assert.Equal(t, "-3", KnownDelta(-3).String())
}

func TestRankDeltaJSON(t *testing.T) {
	deltas := RankDeltas{Change24h: KnownDelta(2), Change72h: KnownDelta(-1)}
	data, err := json.Marshal(deltas)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rank_change_24h":2,"rank_change_72h":-1,"rank_change_7d":null,"rank_change_30d":null}`, string(data))

	var decoded RankDeltas
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, deltas, decoded)

	var bad RankDelta
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &bad))
}

func TestRankDeltaScanValue(t *testing.T) {
	var d RankDelta
	require.NoError(t, d.Scan(nil))
	assert.False(t, d.Valid)

	require.NoError(t, d.Scan(int64(-4)))
	assert.Equal(t, KnownDelta(-4), d)

	require.NoError(t, d.Scan([]byte("12")))
	assert.Equal(t, KnownDelta(12), d)

	assert.Error(t, d.Scan(3.5))

	require.NotNil(t, KnownDelta(5).Ptr())
	assert.Equal(t, 5, *KnownDelta(5).Ptr())
	assert.Nil(t, RankDelta{}.Ptr())
}

func TestRankDeltasGetSet(t *testing.T) {
	var d RankDeltas
	for i, w := range AllWindows {
		d.Set(w, KnownDelta(i+1))
	}
	assert.Equal(t, KnownDelta(1), d.Get(Window24h))
	assert.Equal(t, KnownDelta(2), d.Get(Window72h))
	assert.Equal(t, KnownDelta(3), d.Get(Window7d))
	assert.Equal(t, KnownDelta(4), d.Get(Window30d))
	assert.False(t, d.Get(Window(2)).Valid)
}

func TestRankAggregateAvg(t *testing.T) {
	agg := RankAggregate{Count: 3, Sum: 16, Best: 3, Worst: 8}
	assert.Equal(t, 16.0/3.0, agg.Avg())
	assert.Equal(t, 0.0, RankAggregate{}.Avg())
}

func TestStatisticsRecordJSONFlattensDeltas(t *testing.T) {
	rec := StatisticsRecord{EntityID: "a", CurrentRank: 4}
	rec.Change72h = KnownDelta(6)
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 6.0, m["rank_change_72h"])
	assert.Nil(t, m["rank_change_30d"])
	assert.Contains(t, m, "rank_change_30d")
}
