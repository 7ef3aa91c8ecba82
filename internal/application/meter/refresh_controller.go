package meter

import (
	"math"
	"strings"
	"time"

	"github.com/penwyp/go-molty-meter/internal/core/forecast"
	"github.com/penwyp/go-molty-meter/internal/core/health"
	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/data/billing"
	"github.com/penwyp/go-molty-meter/internal/util"
)

// authState is what the meter knows about one provider's authoritative
// figure.
type authState struct {
	result billing.Result
	start  time.Time // period boundary the figure was fetched for
	have   bool
	failed bool
	err    error
}

// providerState is one reconciled provider as a refresh sees it.
type providerState struct {
	provider model.ProviderKind
	auth     authState
	inFlight bool
}

// RefreshController turns local data and the authoritative state into
// snapshots.
type RefreshController struct {
	budget     float64
	freshness  time.Duration
	filterNote string
	advisor    *health.Advisor
}

// NewRefreshController creates a new RefreshController instance
func NewRefreshController(budget float64, freshness time.Duration, advisor *health.Advisor) *RefreshController {
	if advisor == nil {
		advisor = health.NewAdvisor(nil)
	}
	return &RefreshController{budget: budget, freshness: freshness, advisor: advisor}
}

// useAuthoritative reports whether a provider's authoritative figure may
// stand in for its local one. The figure must be for the current period.
// A stale figure is still used while a newer fetch is in flight; a failed
// fetch always falls back to the local estimate.
func (rc *RefreshController) useAuthoritative(ps providerState, period, now time.Time) bool {
	auth := ps.auth
	if !auth.have || auth.failed || !auth.start.Equal(period) {
		return false
	}
	return ps.inFlight || now.Sub(auth.result.FetchedAt) < rc.freshness
}

// Build assembles a complete snapshot for the period starting at period.
func (rc *RefreshController) Build(prev *Snapshot, local LocalData, providers []providerState, period, now time.Time) *Snapshot {
	snap := &Snapshot{
		GeneratedAt:   now,
		LocalEstimate: local.Total,
		Period:        period,
		Budget:        rc.budget,
	}

	spend := local.Total
	var errs []string
	for _, ps := range providers {
		status := rc.sourceStatus(ps, local, period, now)
		if status.Reconciled {
			spend += *status.Authoritative - status.LocalEstimate
			snap.Reconciled = true
			if snap.FetchedAt.IsZero() || status.FetchedAt.Before(snap.FetchedAt) {
				snap.FetchedAt = status.FetchedAt
			}
			if status.Filter != "" {
				snap.Filter = status.Filter
			}
		}
		if status.Authoritative != nil {
			total := *status.Authoritative
			if snap.Authoritative != nil {
				total += *snap.Authoritative
			}
			snap.Authoritative = &total
		}
		if status.Reconciling {
			snap.Reconciling = true
		}
		if status.LastError != "" {
			errs = append(errs, ps.provider.String()+": "+status.LastError)
		}
		snap.Sources = append(snap.Sources, status)
	}
	snap.LastError = strings.Join(errs, "; ")
	snap.MonthlySpend = math.Max(spend, 0)

	if rc.budget > 0 {
		snap.BudgetUsed = math.Min(snap.MonthlySpend/rc.budget, 1)
	}
	snap.Forecast = forecast.Project(snap.MonthlySpend, rc.budget, now)

	snap.Session = rc.sessionView(prev, local, now)

	var tier health.Tier
	if v := snap.Session; v != nil {
		tier = health.FromUsage(v.Cost, v.TotalTokens)
		if v.ContextWindow > 0 {
			tier = health.Max(tier, health.FromContextPercent(v.ContextUsed))
		}
	}
	advice, changed := rc.advisor.Update(tier)
	if changed {
		util.LogDebug("Health tier changed", util.F("tier", tier.String()))
	}
	snap.Tier = tier
	snap.GaugeFill = tier.GaugeFill()
	snap.Advice = advice

	return snap
}

func (rc *RefreshController) sourceStatus(ps providerState, local LocalData, period, now time.Time) SourceStatus {
	status := SourceStatus{
		Provider:      ps.provider,
		LocalEstimate: local.ByProvider[ps.provider],
		Reconciling:   ps.inFlight,
	}
	if ps.auth.err != nil {
		status.LastError = ps.auth.err.Error()
	}
	if ps.auth.have && ps.auth.start.Equal(period) {
		amount := ps.auth.result.Amount
		status.Authoritative = &amount
		status.FetchedAt = ps.auth.result.FetchedAt
	}
	if rc.useAuthoritative(ps, period, now) {
		status.Reconciled = true
		if ps.provider == model.ProviderAnthropic {
			status.Filter = rc.filterNote
		}
	}
	return status
}

func (rc *RefreshController) sessionView(prev *Snapshot, local LocalData, now time.Time) *SessionView {
	session := local.Session
	if session == nil {
		return nil
	}

	primary := session.PrimaryModel()
	tokens := session.Totals()
	duration := session.Duration(now)

	minutes := math.Max(duration.Minutes(), 1)
	burnRate := local.SessionCost / minutes

	view := &SessionView{
		ID:               session.SessionID,
		Path:             session.Path,
		Project:          session.Project,
		Model:            primary,
		DisplayModel:     util.DisplayModelName(primary),
		Provider:         model.ProviderFor(primary),
		Cost:             local.SessionCost,
		Tokens:           tokens,
		TotalTokens:      tokens.Total(),
		Duration:         duration,
		BurnRate:         burnRate,
		BurnRateProgress: math.Min(burnRate/fullBurnRate, 1),
		ContextTokens:    session.ContextTokens(),
		ContextWindow:    model.ContextWindow(primary),
	}
	if view.ContextWindow > 0 {
		view.ContextUsed = math.Min(float64(view.ContextTokens)/float64(view.ContextWindow), 1)
	}

	if prev.HasSession() && prev.Session.ID == view.ID {
		switch {
		case view.Cost > prev.Session.Cost+1e-9:
			view.Trend = TrendRising
		case view.Cost < prev.Session.Cost-1e-9:
			view.Trend = TrendFalling
		}
	}

	return view
}
