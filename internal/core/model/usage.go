package model

import (
	"time"
)

// UsageEvent is one billed model response. Events are immutable once
// built; a reparse produces a fresh set.
type UsageEvent struct {
	MessageID        string
	Model            string
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
	Timestamp        time.Time

	// Cost is set when the log carried a pre-computed total. It takes
	// precedence over the rate card.
	Cost *float64
}

// TotalTokens sums all four token classes.
func (e UsageEvent) TotalTokens() int {
	return e.InputTokens + e.OutputTokens + e.CacheReadTokens + e.CacheWriteTokens
}

// TokenTotals holds per-class token sums.
type TokenTotals struct {
	Input      int
	Output     int
	CacheRead  int
	CacheWrite int
}

// Total sums all classes.
func (t TokenTotals) Total() int {
	return t.Input + t.Output + t.CacheRead + t.CacheWrite
}

// Add returns the class-wise sum of two totals.
func (t TokenTotals) Add(o TokenTotals) TokenTotals {
	return TokenTotals{
		Input:      t.Input + o.Input,
		Output:     t.Output + o.Output,
		CacheRead:  t.CacheRead + o.CacheRead,
		CacheWrite: t.CacheWrite + o.CacheWrite,
	}
}

// ParsedSession is one coding-agent session log after dedup.
type ParsedSession struct {
	SessionID string
	Events    []UsageEvent // ascending by Timestamp
	StartTime *time.Time
	Path      string
	Project   string
}

// Totals sums token classes across all events.
func (s *ParsedSession) Totals() TokenTotals {
	var t TokenTotals
	for _, e := range s.Events {
		t.Input += e.InputTokens
		t.Output += e.OutputTokens
		t.CacheRead += e.CacheReadTokens
		t.CacheWrite += e.CacheWriteTokens
	}
	return t
}

// PrimaryModel is the model of the most recent event.
func (s *ParsedSession) PrimaryModel() string {
	if len(s.Events) == 0 {
		return UnknownModel
	}
	return s.Events[len(s.Events)-1].Model
}

// ContextTokens is the prompt size of the most recent event: input plus
// cached tokens the model read or wrote on the last turn.
func (s *ParsedSession) ContextTokens() int {
	if len(s.Events) == 0 {
		return 0
	}
	last := s.Events[len(s.Events)-1]
	return last.InputTokens + last.CacheReadTokens + last.CacheWriteTokens
}

// Duration is the time since the session started, or zero when the
// start is unknown.
func (s *ParsedSession) Duration(now time.Time) time.Duration {
	if s.StartTime == nil {
		return 0
	}
	d := now.Sub(*s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// EffectiveStart is the logged start time, or the first event time when
// the log has no start line.
func (s *ParsedSession) EffectiveStart() (time.Time, bool) {
	if s.StartTime != nil {
		return *s.StartTime, true
	}
	if len(s.Events) > 0 {
		return s.Events[0].Timestamp, true
	}
	return time.Time{}, false
}

// DailySpend is one row of the historical report.
type DailySpend struct {
	Date     string  `json:"date"` // YYYY-MM-DD, local calendar day
	Sessions int     `json:"sessions"`
	Cost     float64 `json:"cost"`
}
