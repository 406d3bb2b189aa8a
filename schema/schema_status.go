package schema

import "time"

// RunRecord represents a row from the apprank_runs table.
type RunRecord struct {
	RunID       string     `json:"run_id"`
	RunDate     time.Time  `json:"run_date"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Status      RunStatus  `json:"status"`
	EntityCount int        `json:"entity_count"`
	Error       string     `json:"error,omitempty"`
}

// StoreStatus holds status information about the rank store.
type StoreStatus struct {
	Backend         string           `json:"backend"`
	Connected       bool             `json:"connected"`
	TableSizes      map[string]int64 `json:"table_sizes"`
	LatestStatDate  time.Time        `json:"latest_stat_date"`
	LatestStatCount int64            `json:"latest_stat_count"`
	LastRun         *RunRecord       `json:"last_run,omitempty"`
}
