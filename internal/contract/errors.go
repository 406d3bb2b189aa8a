package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/apprank/schema"
)

// Failure titles reported to notifiers.
const (
	UpstreamFailureTitle    = "Upstream fetch failed"
	PersistenceFailureTitle = "Persistence failed"
	PipelineFailureTitle    = "Pipeline failed"
)

// UpstreamError is a non-success status, an unrecognized envelope or a
// transport failure while fetching the ranking.
type UpstreamError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("upstream ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " (%s)", e.URL)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError is any failure while reading or writing the rank store.
type PersistenceError struct {
	Op    string
	Query string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err unless it already is a PersistenceError.
func NewPersistenceError(op, query string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Query: compactQuery(query), Err: err}
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// FailureReportFor classifies err into the payload handed to notifiers.
func FailureReportFor(err error) schema.FailureReport {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return schema.FailureReport{Title: UpstreamFailureTitle, Detail: err.Error()}
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		detail := err.Error()
		if pe.Query != "" {
			detail += "\nquery: " + pe.Query
		}
		return schema.FailureReport{Title: PersistenceFailureTitle, Detail: detail}
	}
	return schema.FailureReport{Title: PipelineFailureTitle, Detail: err.Error()}
}

// maxQueryLen bounds the query text kept on a PersistenceError.
const maxQueryLen = 400

// compactQuery collapses whitespace so multi-line SQL fits on one report line.
func compactQuery(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > maxQueryLen {
		return q[:maxQueryLen] + "..."
	}
	return q
}
