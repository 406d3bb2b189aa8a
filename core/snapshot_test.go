package core

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/store"
	"github.com/huangsam/apprank/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestLoadSnapshotFile(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		date      time.Time
		wantDate  string
		wantCount int
		wantErr   string
	}{
		{
			name:      "bare array with date",
			data:      `[{"miniApp":{"id":"a"},"rank":1},{"miniApp":{"id":"b"},"rank":2}]`,
			date:      date("2025-03-10"),
			wantDate:  "2025-03-10",
			wantCount: 2,
		},
		{
			name:    "bare array without date",
			data:    `[]`,
			wantErr: "snapshot date is required",
		},
		{
			name:      "backup document uses its own date",
			data:      `{"snapshotDate":"2025-03-08","miniapps":[{"miniApp":{"id":"a"},"rank":1}]}`,
			wantDate:  "2025-03-08",
			wantCount: 1,
		},
		{
			name:      "explicit date wins over backup date",
			data:      `{"snapshotDate":"2025-03-08","miniapps":[]}`,
			date:      date("2025-03-09"),
			wantDate:  "2025-03-09",
			wantCount: 0,
		},
		{
			name:    "invalid backup date",
			data:    `{"snapshotDate":"March 8","miniapps":[]}`,
			wantErr: "invalid date",
		},
		{
			name:    "invalid json",
			data:    `{"miniapps":[`,
			wantErr: "not valid JSON",
		},
		{
			name:    "unexpected object",
			data:    `{"items":[]}`,
			wantErr: "must be a JSON array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := LoadSnapshotFile([]byte(tt.data), tt.date)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, schema.FormatDate(snap.Date))
			assert.Equal(t, tt.wantCount, snap.EntityCount)
			assert.True(t, gjson.ValidBytes(snap.Payload))
		})
	}
}

func TestWriteBackupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	entries := rankEntries(map[string]int{"alpha": 1, "beta": 2})
	deltas := map[string]schema.RankDeltas{"alpha": {Change24h: schema.KnownDelta(2), Change30d: schema.KnownDelta(-1)}}

	path, err := WriteBackup(dir, date("2025-03-10"), entries, deltas)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	alpha := gjson.GetBytes(data, "miniapps.0")
	assert.Equal(t, "alpha", alpha.Get("miniApp.id").String())
	assert.Equal(t, int64(1), alpha.Get("rank").Int())
	assert.Equal(t, int64(2), alpha.Get("rank24hChange").Int())
	assert.Equal(t, int64(-1), alpha.Get("rank30dChange").Int())
	assert.Equal(t, gjson.Null, alpha.Get("rank7dChange").Type)

	snap, err := LoadSnapshotFile(data, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, date("2025-03-10"), snap.Date)
	assert.Equal(t, 2, snap.EntityCount)
}

func TestWriteBackupInvalidDir(t *testing.T) {
	file := t.TempDir() + "/occupied"
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := WriteBackup(file, date("2025-03-10"), nil, nil)
	assert.Error(t, err)
}

func TestReplaceSnapshot(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	runDay(t, s, "2025-03-10", map[string]int{"alpha": 1, "beta": 2})
	before, err := s.AllStatistics(ctx, date("2025-03-10"))
	require.NoError(t, err)

	require.NoError(t, ReplaceSnapshot(ctx, s, schema.Snapshot{Date: date("2025-03-10"), EntityCount: 1, Payload: []byte(`[{"rank":1}]`)}))

	snap, err := s.GetSnapshot(ctx, date("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.EntityCount)

	after, err := s.AllStatistics(ctx, date("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = s.GetSnapshot(ctx, date("2025-03-11"))
	assert.ErrorIs(t, err, contract.ErrNotFound)
}
