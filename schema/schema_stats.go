package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RankDelta is a signed rank change for one lookback window.
// A zero-value RankDelta is unknown: no rank was recorded at the lookback date.
type RankDelta struct {
	Value int
	Valid bool
}

// KnownDelta returns a defined rank change.
func KnownDelta(v int) RankDelta {
	return RankDelta{Value: v, Valid: true}
}

// DeltaBetween returns historical - current, so moving toward rank 1 is positive.
func DeltaBetween(historical, current int) RankDelta {
	return KnownDelta(historical - current)
}

// Ptr returns nil for unknown deltas.
func (d RankDelta) Ptr() *int {
	if !d.Valid {
		return nil
	}
	v := d.Value
	return &v
}

// String renders the delta for tables: "+6", "-6", "0" or "n/a".
func (d RankDelta) String() string {
	if !d.Valid {
		return "n/a"
	}
	if d.Value > 0 {
		return "+" + strconv.Itoa(d.Value)
	}
	return strconv.Itoa(d.Value)
}

// MarshalJSON encodes unknown deltas as null.
func (d RankDelta) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(d.Value)), nil
}

// UnmarshalJSON accepts an integer or null.
func (d *RankDelta) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = RankDelta{}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid rank delta %s: %w", data, err)
	}
	*d = KnownDelta(v)
	return nil
}

// Scan implements sql.Scanner.
func (d *RankDelta) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = RankDelta{}
	case int64:
		*d = KnownDelta(int(v))
	case int32:
		*d = KnownDelta(int(v))
	case int:
		*d = KnownDelta(v)
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into RankDelta", src)
	}
	return nil
}

func (d *RankDelta) scanString(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("cannot scan %q into RankDelta: %w", s, err)
	}
	*d = KnownDelta(v)
	return nil
}

// RankDeltas holds one delta per lookback window.
type RankDeltas struct {
	Change24h RankDelta `json:"rank_change_24h"`
	Change72h RankDelta `json:"rank_change_72h"`
	Change7d  RankDelta `json:"rank_change_7d"`
	Change30d RankDelta `json:"rank_change_30d"`
}

// Get returns the delta for a window.
func (d RankDeltas) Get(w Window) RankDelta {
	switch w {
	case Window24h:
		return d.Change24h
	case Window72h:
		return d.Change72h
	case Window7d:
		return d.Change7d
	case Window30d:
		return d.Change30d
	default:
		return RankDelta{}
	}
}

// Set stores the delta for a window. Unsupported windows are ignored.
func (d *RankDeltas) Set(w Window, v RankDelta) {
	switch w {
	case Window24h:
		d.Change24h = v
	case Window72h:
		d.Change72h = v
	case Window7d:
		d.Change7d = v
	case Window30d:
		d.Change30d = v
	}
}

// RankAggregate summarises every recorded rank of an entity.
type RankAggregate struct {
	Count int
	Sum   int
	Best  int // lowest rank number
	Worst int // highest rank number
}

// Avg returns the arithmetic mean rank, or 0 when nothing was recorded.
func (a RankAggregate) Avg() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.Sum) / float64(a.Count)
}

// StatisticsRecord is the derived row per entity and date that readers query.
type StatisticsRecord struct {
	EntityID    string    `json:"entity_id"`
	Date        time.Time `json:"date"`
	CurrentRank int       `json:"current_rank"`
	RankDeltas
	TotalObservations int     `json:"total_observations"`
	AvgRank           float64 `json:"avg_rank"`
	BestRank          int     `json:"best_rank"`
	WorstRank         int     `json:"worst_rank"`
}

// StatisticsRow is a StatisticsRecord joined with the entity fields readers display.
type StatisticsRow struct {
	StatisticsRecord
	Name     string `json:"name"`
	Username string `json:"username"`
	Domain   string `json:"domain"`
}
