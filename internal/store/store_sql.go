package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlOps runs rank queries against a connection or an open transaction.
type sqlOps struct {
	q dbtx
	d dialect
}

var entityColumns = []string{
	"id", "short_id", "name", "domain", "home_url", "icon_url", "image_url",
	"splash_image_url", "splash_background_color", "button_title", "supports_notifications",
	"primary_category", "author_fid", "author_username", "author_display_name",
	"author_follower_count", "author_following_count", "updated_at",
}

var rankFactColumns = []string{"entity_id", "ranking_date", "rank_position"}

var statisticsColumns = []string{
	"entity_id", "stat_date", "current_rank",
	"rank_change_24h", "rank_change_72h", "rank_change_7d", "rank_change_30d",
	"total_observations", "avg_rank", "best_rank", "worst_rank",
}

// execChunked writes rows in multi-row upserts of at most upsertChunkRows rows.
func (o sqlOps) execChunked(ctx context.Context, op, table string, cols, keyCols []string, n int, rowArgs func(i int) []any) error {
	for start := 0; start < n; start += upsertChunkRows {
		end := min(start+upsertChunkRows, n)
		query := o.d.upsertSQL(table, cols, keyCols, end-start)
		args := make([]any, 0, (end-start)*len(cols))
		for i := start; i < end; i++ {
			args = append(args, rowArgs(i)...)
		}
		if _, err := o.q.ExecContext(ctx, query, args...); err != nil {
			return contract.NewPersistenceError(op, query, err)
		}
	}
	return nil
}

func (o sqlOps) upsertEntities(ctx context.Context, entities []schema.Entity, seenOn time.Time) error {
	seen := o.d.dateArg(seenOn)
	return o.execChunked(ctx, "upsert entities", entitiesTable, entityColumns, []string{"id"}, len(entities), func(i int) []any {
		e := entities[i]
		return []any{
			e.ID, e.ShortID, e.Name, e.Domain, e.HomeURL, e.IconURL, e.ImageURL,
			e.SplashImageURL, e.SplashBackgroundColor, e.ButtonTitle, e.SupportsNotifications,
			e.PrimaryCategory, e.AuthorFID, e.AuthorUsername, e.AuthorDisplayName,
			e.AuthorFollowerCount, e.AuthorFollowingCount, seen,
		}
	})
}

func (o sqlOps) upsertRankFacts(ctx context.Context, facts []schema.RankFact) error {
	return o.execChunked(ctx, "upsert rank facts", rankFactsTable, rankFactColumns, []string{"entity_id", "ranking_date"}, len(facts), func(i int) []any {
		f := facts[i]
		return []any{f.EntityID, o.d.dateArg(f.Date), f.Rank}
	})
}

func (o sqlOps) upsertStatistics(ctx context.Context, records []schema.StatisticsRecord) error {
	return o.execChunked(ctx, "upsert statistics", statisticsTable, statisticsColumns, []string{"entity_id", "stat_date"}, len(records), func(i int) []any {
		r := records[i]
		return []any{
			r.EntityID, o.d.dateArg(r.Date), r.CurrentRank,
			deltaArg(r.Change24h), deltaArg(r.Change72h), deltaArg(r.Change7d), deltaArg(r.Change30d),
			r.TotalObservations, r.AvgRank, r.BestRank, r.WorstRank,
		}
	})
}

func (o sqlOps) replaceSnapshot(ctx context.Context, snap schema.Snapshot) error {
	table := o.d.quoteTableName(snapshotsTable)
	del := fmt.Sprintf("DELETE FROM %s WHERE snapshot_date = %s", table, o.d.placeholder(1))
	if _, err := o.q.ExecContext(ctx, del, o.d.dateArg(snap.Date)); err != nil {
		return contract.NewPersistenceError("delete snapshot", del, err)
	}
	ins := fmt.Sprintf("INSERT INTO %s (snapshot_date, entity_count, raw_payload) VALUES (%s)", table, o.d.placeholders(1, 3))
	if _, err := o.q.ExecContext(ctx, ins, o.d.dateArg(snap.Date), snap.EntityCount, string(snap.Payload)); err != nil {
		return contract.NewPersistenceError("insert snapshot", ins, err)
	}
	return nil
}

// RanksOnDates implements contract.RankReader.
func (o sqlOps) RanksOnDates(ctx context.Context, dates []time.Time) (map[string]map[string]int, error) {
	result := make(map[string]map[string]int, len(dates))
	if len(dates) == 0 {
		return result, nil
	}
	args := make([]any, len(dates))
	for i, d := range dates {
		args[i] = o.d.dateArg(d)
	}
	query := fmt.Sprintf("SELECT entity_id, ranking_date, rank_position FROM %s WHERE ranking_date IN (%s)",
		o.d.quoteTableName(rankFactsTable), o.d.placeholders(1, len(dates)))

	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contract.NewPersistenceError("read lookback ranks", query, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		var date dateValue
		var rank int
		if err := rows.Scan(&id, &date, &rank); err != nil {
			return nil, contract.NewPersistenceError("scan lookback ranks", query, err)
		}
		key := schema.FormatDate(date.t)
		if result[key] == nil {
			result[key] = make(map[string]int)
		}
		result[key][id] = rank
	}
	if err := rows.Err(); err != nil {
		return nil, contract.NewPersistenceError("read lookback ranks", query, err)
	}
	return result, nil
}

// RankAggregates implements contract.RankReader.
func (o sqlOps) RankAggregates(ctx context.Context, through time.Time) (map[string]schema.RankAggregate, error) {
	query := fmt.Sprintf(`SELECT entity_id, COUNT(*), SUM(rank_position), MIN(rank_position), MAX(rank_position)
		FROM %s WHERE ranking_date <= %s GROUP BY entity_id`,
		o.d.quoteTableName(rankFactsTable), o.d.placeholder(1))

	rows, err := o.q.QueryContext(ctx, query, o.d.dateArg(through))
	if err != nil {
		return nil, contract.NewPersistenceError("read rank aggregates", query, err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]schema.RankAggregate)
	for rows.Next() {
		var id string
		var agg schema.RankAggregate
		if err := rows.Scan(&id, &agg.Count, &agg.Sum, &agg.Best, &agg.Worst); err != nil {
			return nil, contract.NewPersistenceError("scan rank aggregates", query, err)
		}
		result[id] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, contract.NewPersistenceError("read rank aggregates", query, err)
	}
	return result, nil
}

// statisticsSelect lists statistics columns qualified by alias.
func statisticsSelect(alias string) string {
	cols := make([]string, len(statisticsColumns))
	for i, c := range statisticsColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanStatistics(rec *schema.StatisticsRecord, date *dateValue) []any {
	return []any{
		&rec.EntityID, date, &rec.CurrentRank,
		&rec.Change24h, &rec.Change72h, &rec.Change7d, &rec.Change30d,
		&rec.TotalObservations, &rec.AvgRank, &rec.BestRank, &rec.WorstRank,
	}
}

// StatisticsForDate implements contract.RankReader.
func (o sqlOps) StatisticsForDate(ctx context.Context, date time.Time) ([]schema.StatisticsRow, error) {
	query := fmt.Sprintf(`SELECT %s, COALESCE(e.name, ''), COALESCE(e.author_username, ''), COALESCE(e.domain, '')
		FROM %s s LEFT JOIN %s e ON e.id = s.entity_id
		WHERE s.stat_date = %s
		ORDER BY s.current_rank ASC, s.entity_id ASC`,
		statisticsSelect("s"), o.d.quoteTableName(statisticsTable), o.d.quoteTableName(entitiesTable), o.d.placeholder(1))

	rows, err := o.q.QueryContext(ctx, query, o.d.dateArg(date))
	if err != nil {
		return nil, contract.NewPersistenceError("read statistics", query, err)
	}
	defer func() { _ = rows.Close() }()

	result := []schema.StatisticsRow{}
	for rows.Next() {
		var row schema.StatisticsRow
		var d dateValue
		dest := append(scanStatistics(&row.StatisticsRecord, &d), &row.Name, &row.Username, &row.Domain)
		if err := rows.Scan(dest...); err != nil {
			return nil, contract.NewPersistenceError("scan statistics", query, err)
		}
		row.Date = d.t
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, contract.NewPersistenceError("read statistics", query, err)
	}
	return result, nil
}

// EntityHistory returns every rank fact of an entity, oldest first.
func (o sqlOps) EntityHistory(ctx context.Context, entityID string) ([]schema.RankFact, error) {
	query := fmt.Sprintf("SELECT entity_id, ranking_date, rank_position FROM %s WHERE entity_id = %s ORDER BY ranking_date ASC",
		o.d.quoteTableName(rankFactsTable), o.d.placeholder(1))
	return o.queryFacts(ctx, "read entity history", query, entityID)
}

// AllRankFacts returns rank facts for one date, or every date when date is zero.
func (o sqlOps) AllRankFacts(ctx context.Context, date time.Time) ([]schema.RankFact, error) {
	table := o.d.quoteTableName(rankFactsTable)
	if date.IsZero() {
		query := fmt.Sprintf("SELECT entity_id, ranking_date, rank_position FROM %s ORDER BY ranking_date ASC, rank_position ASC, entity_id ASC", table)
		return o.queryFacts(ctx, "read rank facts", query)
	}
	query := fmt.Sprintf("SELECT entity_id, ranking_date, rank_position FROM %s WHERE ranking_date = %s ORDER BY rank_position ASC, entity_id ASC",
		table, o.d.placeholder(1))
	return o.queryFacts(ctx, "read rank facts", query, o.d.dateArg(date))
}

func (o sqlOps) queryFacts(ctx context.Context, op, query string, args ...any) ([]schema.RankFact, error) {
	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contract.NewPersistenceError(op, query, err)
	}
	defer func() { _ = rows.Close() }()

	facts := []schema.RankFact{}
	for rows.Next() {
		var f schema.RankFact
		var d dateValue
		if err := rows.Scan(&f.EntityID, &d, &f.Rank); err != nil {
			return nil, contract.NewPersistenceError(op, query, err)
		}
		f.Date = d.t
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, contract.NewPersistenceError(op, query, err)
	}
	return facts, nil
}

// AllStatistics returns statistics for one date, or every date when date is zero.
func (o sqlOps) AllStatistics(ctx context.Context, date time.Time) ([]schema.StatisticsRecord, error) {
	table := o.d.quoteTableName(statisticsTable)
	var query string
	var args []any
	if date.IsZero() {
		query = fmt.Sprintf("SELECT %s FROM %s s ORDER BY s.stat_date ASC, s.current_rank ASC, s.entity_id ASC", statisticsSelect("s"), table)
	} else {
		query = fmt.Sprintf("SELECT %s FROM %s s WHERE s.stat_date = %s ORDER BY s.current_rank ASC, s.entity_id ASC",
			statisticsSelect("s"), table, o.d.placeholder(1))
		args = append(args, o.d.dateArg(date))
	}

	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contract.NewPersistenceError("read statistics", query, err)
	}
	defer func() { _ = rows.Close() }()

	records := []schema.StatisticsRecord{}
	for rows.Next() {
		var rec schema.StatisticsRecord
		var d dateValue
		if err := rows.Scan(scanStatistics(&rec, &d)...); err != nil {
			return nil, contract.NewPersistenceError("scan statistics", query, err)
		}
		rec.Date = d.t
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, contract.NewPersistenceError("read statistics", query, err)
	}
	return records, nil
}

// GetSnapshot returns the archived payload of a date, or contract.ErrNotFound.
func (o sqlOps) GetSnapshot(ctx context.Context, date time.Time) (schema.Snapshot, error) {
	query := fmt.Sprintf("SELECT snapshot_date, entity_count, raw_payload FROM %s WHERE snapshot_date = %s",
		o.d.quoteTableName(snapshotsTable), o.d.placeholder(1))

	var snap schema.Snapshot
	var d dateValue
	var payload string
	err := o.q.QueryRowContext(ctx, query, o.d.dateArg(date)).Scan(&d, &snap.EntityCount, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Snapshot{}, fmt.Errorf("snapshot %s: %w", schema.FormatDate(date), contract.ErrNotFound)
	}
	if err != nil {
		return schema.Snapshot{}, contract.NewPersistenceError("read snapshot", query, err)
	}
	snap.Date = d.t
	snap.Payload = []byte(payload)
	return snap, nil
}
