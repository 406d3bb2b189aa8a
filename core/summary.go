package core

import (
	"context"
	"time"

	"github.com/huangsam/apprank/core/algo"
	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// ExtractSummary derives the top gainers and top overall lists from a day's statistics.
// Both lists are empty, never nil, when rows is empty.
func ExtractSummary(rows []schema.StatisticsRow, topK int) schema.Summary {
	summary := schema.Summary{
		EntityCount: len(rows),
		TopGainers:  []schema.GainerItem{},
		TopOverall:  []schema.OverallItem{},
	}
	for _, r := range algo.RankGainers(rows, topK) {
		summary.TopGainers = append(summary.TopGainers, schema.GainerItem{
			Name:     r.Name,
			Username: r.Username,
			Rank:     r.CurrentRank,
			Change:   r.Change24h.Value,
			Domain:   r.Domain,
		})
	}
	for _, r := range algo.RankOverall(rows, topK) {
		summary.TopOverall = append(summary.TopOverall, schema.OverallItem{
			Name:     r.Name,
			Username: r.Username,
			Rank:     r.CurrentRank,
			Domain:   r.Domain,
		})
	}
	return summary
}

// SummaryForDate reads the statistics of a date and extracts its summary.
func SummaryForDate(ctx context.Context, reader contract.RankReader, date time.Time, topK int) (schema.Summary, error) {
	rows, err := reader.StatisticsForDate(ctx, date)
	if err != nil {
		return schema.Summary{}, err
	}
	return ExtractSummary(rows, topK), nil
}
