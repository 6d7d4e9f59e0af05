package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	now := time.Date(2026, time.February, 14, 16, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		input     string
		wantStart string
		wantEnd   string
		wantErr   string
	}{
		{name: "empty", input: ""},
		{name: "explicit", input: "2026-01-01..2026-01-31", wantStart: "2026-01-01", wantEnd: "2026-01-31"},
		{name: "open start", input: "..2026-01-31", wantEnd: "2026-01-31"},
		{name: "open end", input: "2026-01-01..", wantStart: "2026-01-01"},
		{name: "single day", input: "2026-01-05", wantStart: "2026-01-05", wantEnd: "2026-01-05"},
		{name: "this month", input: "this-month", wantStart: "2026-02-01", wantEnd: "2026-02-28"},
		{name: "last 30 days", input: "last-30-days", wantStart: "2026-01-16", wantEnd: "2026-02-14"},
		{name: "reversed", input: "2026-02-01..2026-01-01", wantErr: "before start date"},
		{name: "bad start", input: "yesterday..2026-01-01", wantErr: "invalid start date"},
		{name: "bad end", input: "2026-01-01..soon", wantErr: "invalid end date"},
		{name: "garbage", input: "next week", wantErr: "invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseDateRange(tt.input, now)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			q := r.Query()
			assert.Equal(t, tt.wantStart, q.Get("startDate"))
			assert.Equal(t, tt.wantEnd, q.Get("endDate"))
		})
	}
}

func TestDateRange_String(t *testing.T) {
	now := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	r, err := ParseDateRange("this-month", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01..2026-03-31", r.String())

	again, err := ParseDateRange(r.String(), now)
	require.NoError(t, err)
	assert.Equal(t, r, again)

	assert.Equal(t, "", DateRange{}.String())
	assert.True(t, DateRange{}.IsZero())
}
