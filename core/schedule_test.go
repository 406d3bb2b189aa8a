package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/apprank/internal/store"
	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVFields(t *testing.T) {
	fields := kvFields([]any{"entry", 1, "now", "x", 42, "ignored", "dangling"})
	assert.Equal(t, logrus.Fields{"entry": 1, "now": "x"}, fields)
}

func TestCronLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	l := cronLogger{log: logger}

	l.Info("wake", "entry", 1)
	l.Error(errors.New("boom"), "panic", "entry", 2)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.DebugLevel, entries[0].Level)
	assert.Equal(t, 1, entries[0].Data["entry"])
	assert.Equal(t, logrus.ErrorLevel, entries[1].Level)
	assert.EqualError(t, entries[1].Data[logrus.ErrorKey].(error), "boom")
}

func TestNewSchedulerInvalidSpec(t *testing.T) {
	p := NewPipeline(testConfig(), staticFetcher(nil), store.NewMemoryStore(), nil)
	_, err := NewScheduler("not a cron spec", time.UTC, p, logrus.New())
	assert.Error(t, err)
}

func TestSchedulerTickUsesLocalDate(t *testing.T) {
	s := store.NewMemoryStore()
	p := NewPipeline(testConfig(), staticFetcher(rankEntries(map[string]int{"alpha": 1})), s, nil)
	loc := time.FixedZone("UTC+9", 9*3600)
	sched, err := NewScheduler("0 9 * * *", loc, p, logrus.New())
	require.NoError(t, err)

	// 20:00 UTC on March 9 is already March 10 in UTC+9
	sched.now = func() time.Time { return time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC) }
	sched.tick()

	runs := s.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, "2025-03-10", schema.FormatDate(runs[0].RunDate))
	_, err = s.GetSnapshot(context.Background(), date("2025-03-10"))
	assert.NoError(t, err)
}

func TestSchedulerStartStop(t *testing.T) {
	p := NewPipeline(testConfig(), staticFetcher(nil), store.NewMemoryStore(), nil)
	logger, hook := test.NewNullLogger()
	sched, err := NewScheduler("@every 1h", nil, p, logger)
	require.NoError(t, err)

	sched.Start()
	sched.Stop()

	var announced bool
	for _, e := range hook.AllEntries() {
		if e.Message == "next scheduled run" {
			announced = true
		}
	}
	assert.True(t, announced)
}
