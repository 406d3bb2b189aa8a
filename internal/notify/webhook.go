package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// WebhookNotifier POSTs run outcomes as JSON to a URL.
type WebhookNotifier struct {
	client *http.Client
	url    string
}

var _ contract.Notifier = &WebhookNotifier{} // Compile-time check

// NewWebhookNotifier returns a WebhookNotifier. A nil client uses a 15s timeout.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WebhookNotifier{client: client, url: url}
}

// NotifySuccess implements contract.Notifier.
func (n *WebhookNotifier) NotifySuccess(ctx context.Context, run schema.RunInfo, summary schema.Summary) error {
	data, err := encodeSummary(summary)
	if err != nil {
		return err
	}
	return n.post(ctx, EventSuccess, run, data)
}

// NotifyFailure implements contract.Notifier.
func (n *WebhookNotifier) NotifyFailure(ctx context.Context, run schema.RunInfo, report schema.FailureReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return n.post(ctx, EventFailure, run, data)
}

func (n *WebhookNotifier) post(ctx context.Context, event string, run schema.RunInfo, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderRunID, run.ID)
	req.Header.Set(HeaderRunDate, schema.FormatDate(run.Date))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", event, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: unexpected status %d", event, resp.StatusCode)
	}
	return nil
}
