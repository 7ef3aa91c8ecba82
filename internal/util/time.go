package util

import (
	"fmt"
	"sync"
	"time"
)

// TimeProvider is a timezone-aware clock. Calendar math (month and day
// boundaries) is done in its location; remote API boundaries use UTC.
type TimeProvider struct {
	location *time.Location
	now      func() time.Time
	mu       sync.RWMutex
}

var (
	globalTimeProvider *TimeProvider
	providerMu         sync.Mutex
)

// NewTimeProvider creates a provider for the given timezone name
// ("Local", "", "UTC", or an IANA name).
func NewTimeProvider(timezone string) (*TimeProvider, error) {
	tp := &TimeProvider{now: time.Now}
	if err := tp.SetTimezone(timezone); err != nil {
		return nil, err
	}
	return tp, nil
}

// NewFixedTimeProvider returns a provider whose clock always reads now.
func NewFixedTimeProvider(now time.Time, loc *time.Location) *TimeProvider {
	if loc == nil {
		loc = time.Local
	}
	return &TimeProvider{
		location: loc,
		now:      func() time.Time { return now },
	}
}

// NewTimeProviderWithClock returns a provider reading the given clock.
func NewTimeProviderWithClock(loc *time.Location, now func() time.Time) *TimeProvider {
	if loc == nil {
		loc = time.Local
	}
	return &TimeProvider{location: loc, now: now}
}

// InitializeTimeProvider initializes the global time provider with the specified timezone
func InitializeTimeProvider(timezone string) error {
	provider, err := NewTimeProvider(timezone)
	if err != nil {
		return err
	}

	providerMu.Lock()
	defer providerMu.Unlock()
	globalTimeProvider = provider
	return nil
}

// GetTimeProvider returns the global time provider instance,
// defaulting to the Local timezone.
func GetTimeProvider() *TimeProvider {
	providerMu.Lock()
	defer providerMu.Unlock()
	if globalTimeProvider == nil {
		globalTimeProvider = &TimeProvider{location: time.Local, now: time.Now}
	}
	return globalTimeProvider
}

// SetTimezone updates the timezone for the time provider
func (tp *TimeProvider) SetTimezone(timezone string) error {
	loc := time.Local
	if timezone != "" && timezone != "Local" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, America/New_York, Europe/London", timezone, err)
		}
		loc = l
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.location = loc
	return nil
}

// Location returns the configured location.
func (tp *TimeProvider) Location() *time.Location {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.location
}

// Now returns the current time in the configured timezone
func (tp *TimeProvider) Now() time.Time {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.now().In(tp.location)
}

// In converts a time to the configured timezone
func (tp *TimeProvider) In(t time.Time) time.Time {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return t.In(tp.location)
}

// Format formats a time according to the layout in the configured timezone
func (tp *TimeProvider) Format(t time.Time, layout string) string {
	return tp.In(t).Format(layout)
}

// MonthStart returns 00:00:00 on the first day of t's month in the
// provider's timezone.
func (tp *TimeProvider) MonthStart(t time.Time) time.Time {
	local := tp.In(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, local.Location())
}

// DayStart returns midnight of t's day in the provider's timezone.
func (tp *TimeProvider) DayStart(t time.Time) time.Time {
	local := tp.In(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
