// Package algo has ordering helpers for ranked statistics.
package algo

import (
	"sort"

	"github.com/huangsam/apprank/schema"
)

// RankGainers keeps rows with a known, positive 24h change, sorts them by that change
// in descending order and returns the top 'limit' rows. Ties break on current rank,
// then entity id. The input slice is not modified.
func RankGainers(rows []schema.StatisticsRow, limit int) []schema.StatisticsRow {
	gainers := make([]schema.StatisticsRow, 0, len(rows))
	for _, r := range rows {
		if r.Change24h.Valid && r.Change24h.Value > 0 {
			gainers = append(gainers, r)
		}
	}
	sort.Slice(gainers, func(i, j int) bool {
		a, b := gainers[i], gainers[j]
		if a.Change24h.Value != b.Change24h.Value {
			return a.Change24h.Value > b.Change24h.Value
		}
		if a.CurrentRank != b.CurrentRank {
			return a.CurrentRank < b.CurrentRank
		}
		return a.EntityID < b.EntityID
	})
	return truncate(gainers, limit)
}

// RankOverall sorts rows by current rank in ascending order and returns the top
// 'limit' rows. Ties break on entity id. The input slice is not modified.
func RankOverall(rows []schema.StatisticsRow, limit int) []schema.StatisticsRow {
	overall := append(make([]schema.StatisticsRow, 0, len(rows)), rows...)
	sort.Slice(overall, func(i, j int) bool {
		if overall[i].CurrentRank != overall[j].CurrentRank {
			return overall[i].CurrentRank < overall[j].CurrentRank
		}
		return overall[i].EntityID < overall[j].EntityID
	})
	return truncate(overall, limit)
}

func truncate(rows []schema.StatisticsRow, limit int) []schema.StatisticsRow {
	if limit >= 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
