package meter

import (
	"time"

	"github.com/penwyp/go-molty-meter/internal/core/forecast"
	"github.com/penwyp/go-molty-meter/internal/core/health"
	"github.com/penwyp/go-molty-meter/internal/core/model"
)

// Trend is the direction of the session cost since the previous refresh.
type Trend int

const (
	TrendFlat Trend = iota
	TrendRising
	TrendFalling
)

func (t Trend) Arrow() string {
	switch t {
	case TrendRising:
		return "↑"
	case TrendFalling:
		return "↓"
	default:
		return ""
	}
}

// fullBurnRate is the $/min that fills the burn-rate bar.
const fullBurnRate = 0.20

// SessionView is the active session as the status line shows it.
type SessionView struct {
	ID           string
	Path         string
	Project      string
	Model        string
	DisplayModel string
	Provider     model.Provider

	Cost             float64
	Tokens           model.TokenTotals
	TotalTokens      int
	Duration         time.Duration
	BurnRate         float64 // dollars per minute
	BurnRateProgress float64 // 0..1
	Trend            Trend

	// Prompt size of the last turn against the model's context window.
	// ContextWindow is 0 for models with an unknown window.
	ContextTokens int
	ContextWindow int
	ContextUsed   float64 // 0..1
}

// SourceStatus is the state of one provider's authoritative figure.
type SourceStatus struct {
	Provider      model.ProviderKind
	LocalEstimate float64
	Authoritative *float64 // nil until a figure for the current period exists
	FetchedAt     time.Time
	Reconciled    bool
	Reconciling   bool
	LastError     string
	// Filter is set when the reconciled figure excludes part of the
	// provider's usage.
	Filter string
}

// Snapshot is a complete, immutable view of the meter. A new one replaces
// the old one on every refresh; fields are never updated in place.
type Snapshot struct {
	GeneratedAt time.Time

	// MonthlySpend is the effective figure: each reconciled provider's
	// authoritative amount plus the local estimate of every other
	// provider.
	MonthlySpend  float64
	LocalEstimate float64
	Period        time.Time // start of the counted period

	// Summary over Sources.
	Authoritative *float64
	FetchedAt     time.Time
	Reconciled    bool
	Reconciling   bool
	LastError     string
	Filter        string

	Sources []SourceStatus

	Budget     float64
	BudgetUsed float64 // 0..1
	Forecast   forecast.Forecast

	Session   *SessionView
	Tier      health.Tier
	GaugeFill float64
	Advice    string
}

// HasSession reports whether an active session was found.
func (s *Snapshot) HasSession() bool {
	return s != nil && s.Session != nil
}
