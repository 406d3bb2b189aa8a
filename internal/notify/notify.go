// Package notify delivers run outcomes to the configured collaborators.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
)

// Event names carried alongside every payload.
const (
	EventSuccess = "success"
	EventFailure = "failure"
)

// Header names carrying run metadata on NATS messages and webhook requests.
const (
	HeaderEvent   = "Apprank-Event"
	HeaderRunID   = "Apprank-Run-Id"
	HeaderRunDate = "Apprank-Run-Date"
)

// New builds the notifier for cfg.Notifiers. The returned close function releases
// connections and is safe to call once.
func New(cfg *contract.Config, log logrus.FieldLogger) (contract.Notifier, func(), error) {
	var notifiers []contract.Notifier
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, kind := range cfg.Notifiers {
		switch kind {
		case schema.LogNotifier:
			notifiers = append(notifiers, NewLogNotifier(log))
		case schema.NATSNotifier:
			n, err := DialNATS(cfg.NATSURL, cfg.NATSSubject, log)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			notifiers = append(notifiers, n)
			closers = append(closers, n.Close)
		case schema.WebhookNotifier:
			notifiers = append(notifiers, NewWebhookNotifier(cfg.WebhookURL, nil))
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unsupported notifier: %s", kind)
		}
	}
	return Multi(notifiers), closeAll, nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []contract.Notifier

var _ contract.Notifier = Multi{} // Compile-time check

// NotifySuccess implements contract.Notifier.
func (m Multi) NotifySuccess(ctx context.Context, run schema.RunInfo, summary schema.Summary) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifySuccess(ctx, run, summary))
	}
	return errors.Join(errs...)
}

// NotifyFailure implements contract.Notifier.
func (m Multi) NotifyFailure(ctx context.Context, run schema.RunInfo, report schema.FailureReport) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyFailure(ctx, run, report))
	}
	return errors.Join(errs...)
}

// encodeSummary guarantees JSON arrays (never null) for both lists.
func encodeSummary(summary schema.Summary) ([]byte, error) {
	if summary.TopGainers == nil {
		summary.TopGainers = []schema.GainerItem{}
	}
	if summary.TopOverall == nil {
		summary.TopOverall = []schema.OverallItem{}
	}
	return json.Marshal(summary)
}
