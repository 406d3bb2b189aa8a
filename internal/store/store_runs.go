package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// BeginRun records a run as running. It is written outside the run-date transaction
// so failed runs stay visible.
func (s *RankStoreImpl) BeginRun(ctx context.Context, run schema.RunRecord) error {
	query := fmt.Sprintf("INSERT INTO %s (run_id, run_date, started_at, finished_at, status, entity_count, error_message) VALUES (%s)",
		s.d.quoteTableName(runsTable), s.d.placeholders(1, 7))
	status := run.Status
	if status == "" {
		status = schema.RunRunning
	}
	var finished any
	if run.FinishedAt != nil {
		finished = s.d.timeArg(*run.FinishedAt)
	}
	var errMsg any
	if run.Error != "" {
		errMsg = run.Error
	}
	_, err := s.db.ExecContext(ctx, query,
		run.RunID, s.d.dateArg(run.RunDate), s.d.timeArg(run.StartedAt), finished, string(status), run.EntityCount, errMsg)
	if err != nil {
		return contract.NewPersistenceError("begin run", query, err)
	}
	return nil
}

// EndRun stores the outcome of a run.
func (s *RankStoreImpl) EndRun(ctx context.Context, runID string, status schema.RunStatus, entityCount int, finishedAt time.Time, errMsg string) error {
	query := fmt.Sprintf("UPDATE %s SET finished_at = %s, status = %s, entity_count = %s, error_message = %s WHERE run_id = %s",
		s.d.quoteTableName(runsTable), s.d.placeholder(1), s.d.placeholder(2), s.d.placeholder(3), s.d.placeholder(4), s.d.placeholder(5))
	var msg any
	if errMsg != "" {
		msg = errMsg
	}
	if _, err := s.db.ExecContext(ctx, query, s.d.timeArg(finishedAt), string(status), entityCount, msg, runID); err != nil {
		return contract.NewPersistenceError("end run", query, err)
	}
	return nil
}

// GetStatus returns status information about the rank store.
func (s *RankStoreImpl) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.d.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.db == nil {
		return status, nil
	}

	for _, table := range allTables {
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.d.quoteTableName(table))
		var count int64
		if err := s.db.QueryRowContext(ctx, countQuery).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	latestQuery := fmt.Sprintf("SELECT stat_date, COUNT(*) FROM %s GROUP BY stat_date ORDER BY stat_date DESC LIMIT 1",
		s.d.quoteTableName(statisticsTable))
	var latest dateValue
	err := s.db.QueryRowContext(ctx, latestQuery).Scan(&latest, &status.LatestStatCount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return status, fmt.Errorf("failed to get latest statistics date: %w", err)
	default:
		status.LatestStatDate = latest.t
	}

	lastRunQuery := fmt.Sprintf(`SELECT run_id, run_date, started_at, finished_at, status, entity_count, COALESCE(error_message, '')
		FROM %s ORDER BY started_at DESC LIMIT 1`, s.d.quoteTableName(runsTable))
	var run schema.RunRecord
	var runDate dateValue
	var started, finished timeValue
	var runStatus string
	err = s.db.QueryRowContext(ctx, lastRunQuery).Scan(&run.RunID, &runDate, &started, &finished, &runStatus, &run.EntityCount, &run.Error)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return status, fmt.Errorf("failed to get last run info: %w", err)
	default:
		run.RunDate = runDate.t
		run.StartedAt = started.t
		run.FinishedAt = finished.ptr()
		run.Status = schema.RunStatus(runStatus)
		status.LastRun = &run
	}

	return status, nil
}
