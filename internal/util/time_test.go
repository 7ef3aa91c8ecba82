package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeProvider(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "local", timezone: "Local"},
		{name: "empty means local", timezone: ""},
		{name: "utc", timezone: "UTC"},
		{name: "iana", timezone: "America/New_York"},
		{name: "invalid", timezone: "Mars/Olympus_Mons", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := NewTimeProvider(tt.timezone)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid timezone")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, tp.Location())
		})
	}
}

func TestGetTimeProviderDefaultsToLocal(t *testing.T) {
	tp := GetTimeProvider()
	require.NotNil(t, tp)
	assert.NotNil(t, tp.Location())
}

func TestTimeProviderMonthStart(t *testing.T) {
	tp, err := NewTimeProvider("UTC")
	require.NoError(t, err)

	got := tp.MonthStart(time.Date(2026, 10, 15, 13, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), got)

	// A UTC instant that is already next month in Tokyo.
	tokyo, err := NewTimeProvider("Asia/Tokyo")
	require.NoError(t, err)
	got = tokyo.MonthStart(time.Date(2026, 9, 30, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, 10, int(got.Month()))
	assert.Equal(t, 1, got.Day())
}

func TestTimeProviderDayStart(t *testing.T) {
	tp, err := NewTimeProvider("UTC")
	require.NoError(t, err)
	got := tp.DayStart(time.Date(2026, 10, 15, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, DaysInMonth(time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, DaysInMonth(time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, DaysInMonth(time.Date(2028, 2, 5, 0, 0, 0, 0, time.UTC)))
}

func TestFixedTimeProvider(t *testing.T) {
	fixed := time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)
	tp := NewFixedTimeProvider(fixed, time.UTC)
	assert.True(t, tp.Now().Equal(fixed))
	assert.Equal(t, "2026-10-10", tp.Format(fixed, "2006-01-02"))
}

func TestTimeProviderConcurrency(t *testing.T) {
	tp, err := NewTimeProvider("UTC")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = tp.Now()
		}()
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = tp.SetTimezone("UTC")
			} else {
				_ = tp.SetTimezone("Europe/London")
			}
		}(i)
	}
	wg.Wait()
}
