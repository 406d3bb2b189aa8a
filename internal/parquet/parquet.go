// Package parquet provides data structures and functions for exporting apprank
// rank history and statistics to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/apprank/schema"
	"github.com/parquet-go/parquet-go"
)

// RankFact is a single daily rank observation.
// This struct maps to the apprank_rank_facts database table.
type RankFact struct {
	// EntityID is the upstream identifier of the ranked entity
	EntityID string `parquet:"entity_id,snappy"`

	// RankingDate is the calendar date of the observation (midnight UTC)
	RankingDate time.Time `parquet:"ranking_date,snappy"`

	// Rank is the 1-based position held on that date
	Rank int32 `parquet:"rank_position,snappy"`
}

// Statistics is the derived row for one entity and date.
// This struct maps to the apprank_statistics database table.
type Statistics struct {
	EntityID    string    `parquet:"entity_id,snappy"`
	StatDate    time.Time `parquet:"stat_date,snappy"`
	CurrentRank int32     `parquet:"current_rank,snappy"`

	// Rank changes are null when no rank was recorded at the lookback date
	RankChange24h *int32 `parquet:"rank_change_24h,optional,snappy"`
	RankChange72h *int32 `parquet:"rank_change_72h,optional,snappy"`
	RankChange7d  *int32 `parquet:"rank_change_7d,optional,snappy"`
	RankChange30d *int32 `parquet:"rank_change_30d,optional,snappy"`

	TotalObservations int32   `parquet:"total_observations,snappy"`
	AvgRank           float64 `parquet:"avg_rank,snappy"`
	BestRank          int32   `parquet:"best_rank,snappy"`
	WorstRank         int32   `parquet:"worst_rank,snappy"`
}

// FromRankFacts converts store rows into Parquet rows.
func FromRankFacts(facts []schema.RankFact) []RankFact {
	rows := make([]RankFact, len(facts))
	for i, f := range facts {
		rows[i] = RankFact{
			EntityID:    f.EntityID,
			RankingDate: schema.NormalizeDate(f.Date),
			Rank:        int32(f.Rank),
		}
	}
	return rows
}

// FromStatistics converts store rows into Parquet rows.
func FromStatistics(records []schema.StatisticsRecord) []Statistics {
	rows := make([]Statistics, len(records))
	for i, r := range records {
		rows[i] = Statistics{
			EntityID:          r.EntityID,
			StatDate:          schema.NormalizeDate(r.Date),
			CurrentRank:       int32(r.CurrentRank),
			RankChange24h:     deltaPtr(r.Change24h),
			RankChange72h:     deltaPtr(r.Change72h),
			RankChange7d:      deltaPtr(r.Change7d),
			RankChange30d:     deltaPtr(r.Change30d),
			TotalObservations: int32(r.TotalObservations),
			AvgRank:           r.AvgRank,
			BestRank:          int32(r.BestRank),
			WorstRank:         int32(r.WorstRank),
		}
	}
	return rows
}

func deltaPtr(d schema.RankDelta) *int32 {
	if !d.Valid {
		return nil
	}
	v := int32(d.Value)
	return &v
}

// WriteRankFactsParquet writes a slice of RankFact structs to a Parquet file.
func WriteRankFactsParquet(data []RankFact, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteStatisticsParquet writes a slice of Statistics structs to a Parquet file.
func WriteStatisticsParquet(data []Statistics, outputPath string) error {
	return writeParquet(data, outputPath)
}

func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
