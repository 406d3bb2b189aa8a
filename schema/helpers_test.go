package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-03-10", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{" 2024-02-29 ", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"2025-13-01", time.Time{}, true},
		{"10/03/2025", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeDateKeepsCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	late := time.Date(2025, 3, 10, 23, 30, 0, 0, loc)
	assert.Equal(t, "2025-03-10", FormatDate(NormalizeDate(late)))
	assert.Equal(t, time.UTC, NormalizeDate(late).Location())
}

func TestToday(t *testing.T) {
	now := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-10", FormatDate(Today(now, nil)))
	assert.Equal(t, "2025-03-11", FormatDate(Today(now, time.FixedZone("UTC+3", 3*3600))))
}

func TestLookbackDates(t *testing.T) {
	run := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	dates := LookbackDates(run)

	require.Len(t, dates, 4)
	assert.Equal(t, "2025-02-28", FormatDate(dates[Window24h]))
	assert.Equal(t, "2025-02-26", FormatDate(dates[Window72h]))
	assert.Equal(t, "2025-02-22", FormatDate(dates[Window7d]))
	assert.Equal(t, "2025-01-30", FormatDate(dates[Window30d]))
}

func TestWindowLabel(t *testing.T) {
	assert.Equal(t, "24h", Window24h.Label())
	assert.Equal(t, "72h", Window72h.Label())
	assert.Equal(t, "7d", Window7d.Label())
	assert.Equal(t, "30d", Window30d.Label())
}
