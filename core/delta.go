package core

import (
	"context"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// ComputeDeltas returns, for every entity in current, its rank change over each
// lookback window. All four target dates are read in a single lookup. A window
// without a recorded rank stays unknown.
func ComputeDeltas(ctx context.Context, reader contract.RankReader, runDate time.Time, current map[string]int) (map[string]schema.RankDeltas, error) {
	lookback := schema.LookbackDates(runDate)
	dates := make([]time.Time, 0, len(schema.AllWindows))
	for _, w := range schema.AllWindows {
		dates = append(dates, lookback[w])
	}

	historical, err := reader.RanksOnDates(ctx, dates)
	if err != nil {
		return nil, err
	}

	deltas := make(map[string]schema.RankDeltas, len(current))
	for id, rank := range current {
		var d schema.RankDeltas
		for _, w := range schema.AllWindows {
			if past, ok := historical[schema.FormatDate(lookback[w])][id]; ok {
				d.Set(w, schema.DeltaBetween(past, rank))
			}
		}
		deltas[id] = d
	}
	return deltas, nil
}
