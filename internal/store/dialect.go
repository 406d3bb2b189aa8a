package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/apprank/schema"
)

// upsertChunkRows caps the rows of one multi-row INSERT.
const upsertChunkRows = 200

// sqliteTimeLayout stores timestamps as fixed-width text so they sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// dialect renders backend-specific SQL fragments.
type dialect struct {
	backend schema.DatabaseBackend
}

// quoteTableName quotes a table name for the backend.
func (d dialect) quoteTableName(name string) string {
	switch d.backend {
	case schema.PostgreSQLBackend:
		return fmt.Sprintf("\"%s\"", name)
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite
		return fmt.Sprintf("\"%s\"", name)
	}
}

// placeholder returns the n-th (1-based) bind parameter.
func (d dialect) placeholder(n int) string {
	if d.backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// placeholders returns count comma-separated bind parameters starting at start.
func (d dialect) placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// dateArg converts a calendar date into a bind argument.
// SQLite stores YYYY-MM-DD text; the others use native DATE columns.
func (d dialect) dateArg(t time.Time) any {
	t = schema.NormalizeDate(t)
	if d.backend == schema.SQLiteBackend {
		return schema.FormatDate(t)
	}
	return t
}

// timeArg converts a timestamp into a bind argument.
func (d dialect) timeArg(t time.Time) any {
	t = t.UTC()
	if d.backend == schema.SQLiteBackend {
		return t.Format(sqliteTimeLayout)
	}
	return t
}

// upsertSQL builds a multi-row INSERT that overwrites every non-key column on conflict.
func (d dialect) upsertSQL(table string, cols, keyCols []string, rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.quoteTableName(table), strings.Join(cols, ", "))
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(d.placeholders(r*len(cols)+1, len(cols)))
		b.WriteString(")")
	}

	isKey := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		isKey[k] = true
	}
	var sets []string
	for _, c := range cols {
		if isKey[c] {
			continue
		}
		if d.backend == schema.MySQLBackend {
			sets = append(sets, fmt.Sprintf("%s = new.%s", c, c))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}

	if d.backend == schema.MySQLBackend {
		fmt.Fprintf(&b, " AS new ON DUPLICATE KEY UPDATE %s", strings.Join(sets, ", "))
	} else {
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keyCols, ", "), strings.Join(sets, ", "))
	}
	return b.String()
}

// namedStatement is a DDL statement with a label for error messages.
type namedStatement struct {
	name  string
	query string
}

// columnTypes holds the backend spelling of each logical column type.
type columnTypes struct {
	key, text, longText, date, timestamp, boolean, integer, bigint, double string
}

func typesFor(backend schema.DatabaseBackend) columnTypes {
	switch backend {
	case schema.MySQLBackend:
		return columnTypes{
			key: "VARCHAR(191)", text: "VARCHAR(1024)", longText: "LONGTEXT",
			date: "DATE", timestamp: "DATETIME(6)", boolean: "BOOLEAN",
			integer: "INT", bigint: "BIGINT", double: "DOUBLE",
		}
	case schema.PostgreSQLBackend:
		return columnTypes{
			key: "TEXT", text: "TEXT", longText: "TEXT",
			date: "DATE", timestamp: "TIMESTAMPTZ", boolean: "BOOLEAN",
			integer: "INTEGER", bigint: "BIGINT", double: "DOUBLE PRECISION",
		}
	default: // SQLite
		return columnTypes{
			key: "TEXT", text: "TEXT", longText: "TEXT",
			date: "TEXT", timestamp: "TEXT", boolean: "INTEGER",
			integer: "INTEGER", bigint: "INTEGER", double: "REAL",
		}
	}
}

// createTableStatements returns the DDL for every rank table on the backend.
func createTableStatements(backend schema.DatabaseBackend) []namedStatement {
	d := dialect{backend: backend}
	ct := typesFor(backend)
	mysql := backend == schema.MySQLBackend

	// MySQL lacks CREATE INDEX IF NOT EXISTS, so its indexes are declared inline.
	inlineIndex := func(name, col string) string {
		if !mysql {
			return ""
		}
		return fmt.Sprintf(",\n\t\t\tINDEX %s (%s)", name, col)
	}

	stmts := []namedStatement{
		{entitiesTable, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s NOT NULL PRIMARY KEY,
			short_id %s NOT NULL,
			name %s NOT NULL,
			domain %s NOT NULL,
			home_url %s NOT NULL,
			icon_url %s NOT NULL,
			image_url %s NOT NULL,
			splash_image_url %s NOT NULL,
			splash_background_color %s NOT NULL,
			button_title %s NOT NULL,
			supports_notifications %s NOT NULL,
			primary_category %s NOT NULL,
			author_fid %s NOT NULL,
			author_username %s NOT NULL,
			author_display_name %s NOT NULL,
			author_follower_count %s NOT NULL,
			author_following_count %s NOT NULL,
			updated_at %s NOT NULL
		)`, d.quoteTableName(entitiesTable), ct.key,
			ct.key, ct.text, ct.text, ct.text, ct.text, ct.text, ct.text, ct.text, ct.text,
			ct.boolean, ct.text, ct.bigint, ct.text, ct.text, ct.bigint, ct.bigint, ct.date)},

		{rankFactsTable, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			entity_id %s NOT NULL,
			ranking_date %s NOT NULL,
			rank_position %s NOT NULL,
			PRIMARY KEY (entity_id, ranking_date)%s
		)`, d.quoteTableName(rankFactsTable), ct.key, ct.date, ct.integer,
			inlineIndex("idx_apprank_rank_facts_date", "ranking_date"))},

		{statisticsTable, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			entity_id %s NOT NULL,
			stat_date %s NOT NULL,
			current_rank %s NOT NULL,
			rank_change_24h %s NULL,
			rank_change_72h %s NULL,
			rank_change_7d %s NULL,
			rank_change_30d %s NULL,
			total_observations %s NOT NULL,
			avg_rank %s NOT NULL,
			best_rank %s NOT NULL,
			worst_rank %s NOT NULL,
			PRIMARY KEY (entity_id, stat_date)%s
		)`, d.quoteTableName(statisticsTable), ct.key, ct.date, ct.integer,
			ct.integer, ct.integer, ct.integer, ct.integer,
			ct.integer, ct.double, ct.integer, ct.integer,
			inlineIndex("idx_apprank_statistics_date", "stat_date"))},

		{snapshotsTable, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			snapshot_date %s NOT NULL PRIMARY KEY,
			entity_count %s NOT NULL,
			raw_payload %s NOT NULL
		)`, d.quoteTableName(snapshotsTable), ct.date, ct.integer, ct.longText)},

		{runsTable, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id %s NOT NULL PRIMARY KEY,
			run_date %s NOT NULL,
			started_at %s NOT NULL,
			finished_at %s NULL,
			status %s NOT NULL,
			entity_count %s NOT NULL,
			error_message %s NULL
		)`, d.quoteTableName(runsTable), ct.key, ct.date, ct.timestamp, ct.timestamp,
			ct.key, ct.integer, ct.longText)},
	}

	if !mysql {
		stmts = append(stmts,
			namedStatement{"rank facts date index", fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_apprank_rank_facts_date ON %s (ranking_date)", d.quoteTableName(rankFactsTable))},
			namedStatement{"statistics date index", fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_apprank_statistics_date ON %s (stat_date)", d.quoteTableName(statisticsTable))},
		)
	}
	return stmts
}

// dateValue scans DATE columns and YYYY-MM-DD text alike.
type dateValue struct {
	t time.Time
}

func (v *dateValue) Scan(src any) error {
	switch s := src.(type) {
	case time.Time:
		v.t = schema.NormalizeDate(s)
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
	return nil
}

func (v *dateValue) parse(s string) error {
	if len(s) > len(schema.DateLayout) {
		s = s[:len(schema.DateLayout)]
	}
	t, err := schema.ParseDate(s)
	if err != nil {
		return err
	}
	v.t = t
	return nil
}

// timeValue scans nullable timestamps stored natively or as text.
type timeValue struct {
	t     time.Time
	valid bool
}

func (v *timeValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		v.t, v.valid = time.Time{}, false
		return nil
	case time.Time:
		v.t, v.valid = s.UTC(), true
		return nil
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (v *timeValue) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	v.t, v.valid = t.UTC(), true
	return nil
}

func (v timeValue) ptr() *time.Time {
	if !v.valid {
		return nil
	}
	t := v.t
	return &t
}

// deltaArg binds unknown deltas as NULL.
func deltaArg(d schema.RankDelta) any {
	if !d.Valid {
		return nil
	}
	return int64(d.Value)
}
