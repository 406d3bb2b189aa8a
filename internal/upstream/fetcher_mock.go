package upstream

import (
	"context"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of RankFetcher for testing.
type MockFetcher struct {
	mock.Mock
}

var _ contract.RankFetcher = &MockFetcher{} // Compile-time check

// FetchAll implements the RankFetcher interface.
func (m *MockFetcher) FetchAll(ctx context.Context) ([]schema.RankEntry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]schema.RankEntry)
	return entries, args.Error(1)
}
