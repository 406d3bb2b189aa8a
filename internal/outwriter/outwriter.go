// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteSummary prints a run summary using the configured output format.
func (ow *OutWriter) WriteSummary(summary schema.Summary, date time.Time, cfg *contract.Config) error {
	return PrintSummary(summary, date, cfg)
}

// WriteStatistics prints statistics rows using the configured output format.
func (ow *OutWriter) WriteStatistics(rows []schema.StatisticsRow, date time.Time, cfg *contract.Config) error {
	return PrintStatistics(rows, date, cfg)
}

// WriteHistory prints the rank history of an entity using the configured output format.
func (ow *OutWriter) WriteHistory(entityID string, facts []schema.RankFact, cfg *contract.Config) error {
	return PrintHistory(entityID, facts, cfg)
}

// WriteSnapshot prints an archived snapshot using the configured output format.
func (ow *OutWriter) WriteSnapshot(snap schema.Snapshot, raw bool, cfg *contract.Config) error {
	return PrintSnapshot(snap, raw, cfg)
}
