package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/core/pricing"
	"github.com/penwyp/go-molty-meter/internal/data/parser"
	"github.com/penwyp/go-molty-meter/internal/util"
)

// ModelFilter selects which models contribute to a cost. A nil filter
// accepts every model.
type ModelFilter func(modelName string) bool

// ProviderFilter accepts only models routed to kind.
func ProviderFilter(kind model.ProviderKind) ModelFilter {
	return func(modelName string) bool {
		return model.ProviderFor(modelName).Kind == kind
	}
}

func (f ModelFilter) accepts(modelName string) bool {
	return f == nil || f(modelName)
}

// EstimateOptions narrows a monthly estimate.
type EstimateOptions struct {
	Cutoff *time.Time // exclude sessions that started before this instant
	Filter ModelFilter
}

// Aggregator prices parsed sessions and rolls them up per month and day.
type Aggregator struct {
	pricing pricing.PricingProvider
	parser  *parser.Parser
	clock   *util.TimeProvider
}

// NewAggregator creates an Aggregator. Month and day boundaries are taken
// in the time provider's location.
func NewAggregator(p pricing.PricingProvider, prs *parser.Parser, clock *util.TimeProvider) *Aggregator {
	if p == nil {
		p = pricing.NewDefaultProvider()
	}
	if prs == nil {
		prs = parser.NewParser(4)
	}
	if clock == nil {
		clock = util.GetTimeProvider()
	}
	return &Aggregator{pricing: p, parser: prs, clock: clock}
}

// Pricing returns the provider used to price tokens.
func (a *Aggregator) Pricing() pricing.PricingProvider {
	return a.pricing
}

// Cost prices events by first summing tokens per model and then applying
// each model's rate once. Events with a logged cost use it verbatim.
func (a *Aggregator) Cost(events []model.UsageEvent, filter ModelFilter) float64 {
	var total float64

	byModel := lo.GroupBy(events, func(e model.UsageEvent) string { return e.Model })
	for modelName, group := range byModel {
		if !filter.accepts(modelName) {
			continue
		}

		var tokens model.TokenTotals
		for _, e := range group {
			if e.Cost != nil {
				total += *e.Cost
				continue
			}
			tokens.Input += e.InputTokens
			tokens.Output += e.OutputTokens
			tokens.CacheRead += e.CacheReadTokens
			tokens.CacheWrite += e.CacheWriteTokens
		}
		total += a.pricing.Cost(modelName, tokens)
	}

	return total
}

// SessionCost prices every event of a session.
func (a *Aggregator) SessionCost(session *model.ParsedSession) float64 {
	if session == nil {
		return 0
	}
	return a.Cost(session.Events, nil)
}

// monthSession is a parsed session that falls inside the month window.
type monthSession struct {
	start   time.Time
	session *model.ParsedSession
}

// MonthlyLocalEstimate sums the cost of sessions that started within asOf's
// calendar month and on or after the cutoff.
func (a *Aggregator) MonthlyLocalEstimate(paths []string, asOf time.Time, opts EstimateOptions) float64 {
	sessions := a.collectMonth(paths, asOf, opts)
	return lo.SumBy(sessions, func(s monthSession) float64 {
		return a.Cost(s.session.Events, opts.Filter)
	})
}

// MonthlyEstimateByProvider parses the month once and splits the estimate
// under opts by the provider each model routes to. The values sum to
// MonthlyLocalEstimate.
func (a *Aggregator) MonthlyEstimateByProvider(paths []string, asOf time.Time, opts EstimateOptions) map[model.ProviderKind]float64 {
	out := make(map[model.ProviderKind]float64)
	for _, s := range a.collectMonth(paths, asOf, opts) {
		byProvider := lo.GroupBy(s.session.Events, func(e model.UsageEvent) model.ProviderKind {
			return model.ProviderFor(e.Model).Kind
		})
		for kind, events := range byProvider {
			out[kind] += a.Cost(events, opts.Filter)
		}
	}
	return out
}

// DailySpend buckets this month's sessions by their local start day.
// Sessions that cost nothing are left out.
func (a *Aggregator) DailySpend(paths []string, asOf time.Time, opts EstimateOptions) []model.DailySpend {
	type dayCost struct {
		day  string
		cost float64
	}

	costs := lo.FilterMap(a.collectMonth(paths, asOf, opts), func(s monthSession, _ int) (dayCost, bool) {
		cost := a.Cost(s.session.Events, opts.Filter)
		return dayCost{day: a.clock.Format(s.start, "2006-01-02"), cost: cost}, cost > 0
	})

	byDay := lo.GroupBy(costs, func(c dayCost) string { return c.day })

	days := lo.MapToSlice(byDay, func(day string, group []dayCost) model.DailySpend {
		return model.DailySpend{
			Date:     day,
			Sessions: len(group),
			Cost:     lo.SumBy(group, func(c dayCost) float64 { return c.cost }),
		}
	})
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

func (a *Aggregator) collectMonth(paths []string, asOf time.Time, opts EstimateOptions) []monthSession {
	monthStart := a.clock.MonthStart(asOf)
	nextMonth := monthStart.AddDate(0, 1, 0)

	from := monthStart
	if opts.Cutoff != nil && opts.Cutoff.After(from) {
		from = *opts.Cutoff
	}

	candidates := make([]string, 0, len(paths))
	for _, path := range paths {
		info, err := util.GetFileInfo(path)
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip unreadable log: %s - %v", path, err))
			continue
		}
		if info.ModTime.Before(monthStart) {
			continue
		}
		candidates = append(candidates, path)
	}

	var sessions []monthSession
	for result := range a.parser.ParseFiles(candidates) {
		if result.Error != nil {
			continue
		}
		start, ok := result.Session.EffectiveStart()
		if !ok || start.Before(from) || !start.Before(nextMonth) {
			continue
		}
		sessions = append(sessions, monthSession{start: start, session: result.Session})
	}

	util.LogDebug(fmt.Sprintf("Monthly estimate: %d of %d logs modified this month, %d sessions counted",
		len(candidates), len(paths), len(sessions)))
	return sessions
}
