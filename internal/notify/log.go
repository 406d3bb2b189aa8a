package notify

import (
	"context"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
)

// LogNotifier writes run outcomes to the structured log.
type LogNotifier struct {
	log logrus.FieldLogger
}

var _ contract.Notifier = &LogNotifier{} // Compile-time check

// NewLogNotifier returns a LogNotifier writing to log.
func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

// NotifySuccess implements contract.Notifier.
func (n *LogNotifier) NotifySuccess(_ context.Context, run schema.RunInfo, summary schema.Summary) error {
	entry := n.log.WithFields(logrus.Fields{
		"event":        EventSuccess,
		"run_id":       run.ID,
		"run_date":     schema.FormatDate(run.Date),
		"entity_count": summary.EntityCount,
	})
	for i, g := range summary.TopGainers {
		entry.WithFields(logrus.Fields{"position": i + 1, "name": g.Name, "rank": g.Rank, "change": g.Change}).Info("top gainer")
	}
	entry.WithField("top_overall", len(summary.TopOverall)).Info("run summary")
	return nil
}

// NotifyFailure implements contract.Notifier.
func (n *LogNotifier) NotifyFailure(_ context.Context, run schema.RunInfo, report schema.FailureReport) error {
	n.log.WithFields(logrus.Fields{
		"event":    EventFailure,
		"run_id":   run.ID,
		"run_date": schema.FormatDate(run.Date),
		"title":    report.Title,
	}).Error(report.Detail)
	return nil
}
