package core

import (
	"sort"
	"time"

	"github.com/huangsam/apprank/schema"
)

// BuildStatistics combines current ranks, deltas and aggregates into one record per
// entity for the run date, ordered by current rank then id.
func BuildStatistics(runDate time.Time, current map[string]int, deltas map[string]schema.RankDeltas, aggs map[string]schema.RankAggregate) []schema.StatisticsRecord {
	date := schema.NormalizeDate(runDate)
	records := make([]schema.StatisticsRecord, 0, len(current))
	for id, rank := range current {
		agg, ok := aggs[id]
		if !ok || agg.Count == 0 {
			// the current fact is always part of the history
			agg = schema.RankAggregate{Count: 1, Sum: rank, Best: rank, Worst: rank}
		}
		records = append(records, schema.StatisticsRecord{
			EntityID:          id,
			Date:              date,
			CurrentRank:       rank,
			RankDeltas:        deltas[id],
			TotalObservations: agg.Count,
			AvgRank:           agg.Avg(),
			BestRank:          agg.Best,
			WorstRank:         agg.Worst,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CurrentRank != records[j].CurrentRank {
			return records[i].CurrentRank < records[j].CurrentRank
		}
		return records[i].EntityID < records[j].EntityID
	})
	return records
}
