package notify

import (
	"context"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of Notifier for testing.
type MockNotifier struct {
	mock.Mock
}

var _ contract.Notifier = &MockNotifier{} // Compile-time check

// NotifySuccess implements the Notifier interface.
func (m *MockNotifier) NotifySuccess(ctx context.Context, run schema.RunInfo, summary schema.Summary) error {
	args := m.Called(ctx, run, summary)
	return args.Error(0)
}

// NotifyFailure implements the Notifier interface.
func (m *MockNotifier) NotifyFailure(ctx context.Context, run schema.RunInfo, report schema.FailureReport) error {
	args := m.Called(ctx, run, report)
	return args.Error(0)
}
