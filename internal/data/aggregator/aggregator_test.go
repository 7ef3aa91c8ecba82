package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/core/pricing"
	"github.com/penwyp/go-molty-meter/internal/data/parser"
	"github.com/penwyp/go-molty-meter/internal/testing/fixtures"
	"github.com/penwyp/go-molty-meter/internal/util"
)

var asOf = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestAggregator() *Aggregator {
	return NewAggregator(pricing.NewDefaultProvider(), parser.NewParser(2), util.NewFixedTimeProvider(asOf, time.UTC))
}

func TestCostGroupsByModel(t *testing.T) {
	agg := newTestAggregator()
	events := []model.UsageEvent{
		{Model: model.ModelOpus46, InputTokens: 500_000},
		{Model: model.ModelOpus46, InputTokens: 500_000, OutputTokens: 1_000_000},
		{Model: model.ModelSonnet45 + "-20250929", CacheReadTokens: 1_000_000, CacheWriteTokens: 1_000_000},
		{Model: "mystery", InputTokens: 99_999_999},
	}

	// opus: 15 + 75, sonnet: 0.30 + 3.75, mystery: 0
	assert.InDelta(t, 94.05, agg.Cost(events, nil), 1e-9)

	perEvent := 0.0
	for _, e := range events {
		perEvent += agg.Cost([]model.UsageEvent{e}, nil)
	}
	assert.InDelta(t, perEvent, agg.Cost(events, nil), 1e-9)
}

func TestCostUsesLoggedCost(t *testing.T) {
	agg := newTestAggregator()
	logged := 0.42
	events := []model.UsageEvent{
		{Model: model.ModelOpus46, InputTokens: 1_000_000, Cost: &logged},
		{Model: model.ModelOpus46, InputTokens: 1_000_000},
	}
	assert.InDelta(t, 15.42, agg.Cost(events, nil), 1e-9)
}

func TestCostFilter(t *testing.T) {
	agg := newTestAggregator()
	events := []model.UsageEvent{
		{Model: model.ModelHaiku45, OutputTokens: 1_000_000},
		{Model: "gpt-4o", InputTokens: 1_000_000, Cost: fixtures.Float(2.5)},
	}

	assert.InDelta(t, 4.0, agg.Cost(events, ProviderFilter(model.ProviderAnthropic)), 1e-9)
	assert.InDelta(t, 2.5, agg.Cost(events, ProviderFilter(model.ProviderOpenAI)), 1e-9)
	assert.InDelta(t, 6.5, agg.Cost(events, nil), 1e-9)
}

func TestSessionCost(t *testing.T) {
	agg := newTestAggregator()
	assert.Equal(t, 0.0, agg.SessionCost(nil))

	session := &model.ParsedSession{Events: []model.UsageEvent{{Model: model.ModelHaiku45, InputTokens: 1_000_000}}}
	assert.InDelta(t, 0.8, agg.SessionCost(session), 1e-9)
}

func writeMonthFixtures(t *testing.T) (*fixtures.TestDataGenerator, []string) {
	t.Helper()
	gen := fixtures.NewTestDataGenerator(t.TempDir())
	monthStart := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	million := fixtures.Usage{Input: 1_000_000}

	sessions := []struct {
		id    string
		start time.Time
		mtime time.Time
	}{
		// exactly at the month boundary: counted
		{"boundary", monthStart, asOf},
		// one second before the boundary: not counted even though touched this month
		{"before", monthStart.Add(-time.Second), asOf},
		// last month and untouched since
		{"stale", monthStart.AddDate(0, 0, -10), monthStart.AddDate(0, 0, -9)},
		{"mid", monthStart.AddDate(0, 0, 9).Add(3 * time.Hour), asOf},
	}

	var paths []string
	for _, s := range sessions {
		b := fixtures.NewClaudeSession(s.id).
			Start(s.start).
			Assistant("m-"+s.id, model.ModelHaiku45, s.start.Add(time.Minute), million)
		path, err := gen.Write("proj", b)
		require.NoError(t, err)
		require.NoError(t, fixtures.Touch(path, s.mtime))
		paths = append(paths, path)
	}
	return gen, paths
}

func TestMonthlyLocalEstimateBoundary(t *testing.T) {
	_, paths := writeMonthFixtures(t)
	agg := newTestAggregator()

	// boundary + mid, 0.80 each
	assert.InDelta(t, 1.6, agg.MonthlyLocalEstimate(paths, asOf, EstimateOptions{}), 1e-9)
}

func TestMonthlyLocalEstimateCutoff(t *testing.T) {
	_, paths := writeMonthFixtures(t)
	agg := newTestAggregator()

	cutoff := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 0.8, agg.MonthlyLocalEstimate(paths, asOf, EstimateOptions{Cutoff: &cutoff}), 1e-9)

	// a cutoff before the month never widens the window
	early := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.6, agg.MonthlyLocalEstimate(paths, asOf, EstimateOptions{Cutoff: &early}), 1e-9)
}

func TestMonthlyLocalEstimateIgnoresMissingAndUnknown(t *testing.T) {
	gen := fixtures.NewTestDataGenerator(t.TempDir())
	path, err := gen.Write("p", fixtures.NewClaudeSession("u").
		Start(asOf.Add(-time.Hour)).
		Assistant("x", "some-new-model", asOf.Add(-time.Minute), fixtures.Usage{Input: 5_000_000}))
	require.NoError(t, err)
	require.NoError(t, fixtures.Touch(path, asOf))

	agg := newTestAggregator()
	total := agg.MonthlyLocalEstimate([]string{path, "/does/not/exist.jsonl"}, asOf, EstimateOptions{})
	assert.Equal(t, 0.0, total)
}

func TestDailySpend(t *testing.T) {
	gen := fixtures.NewTestDataGenerator(t.TempDir())
	day := func(d, h int) time.Time { return time.Date(2026, 10, d, h, 0, 0, 0, time.UTC) }

	write := func(id string, start time.Time, usage fixtures.Usage) string {
		b := fixtures.NewOpenClawSession(id).
			Start(start).
			Assistant(id+"-m", model.ModelSonnet45, start.Add(time.Minute), usage)
		path, err := gen.Write("main", b)
		require.NoError(t, err)
		require.NoError(t, fixtures.Touch(path, asOf))
		return path
	}

	paths := []string{
		write("a", day(2, 9), fixtures.Usage{Cost: fixtures.Float(1.25)}),
		write("b", day(2, 18), fixtures.Usage{Cost: fixtures.Float(0.75)}),
		write("c", day(7, 1), fixtures.Usage{Output: 1_000_000}),
		write("free", day(8, 1), fixtures.Usage{}),
	}

	days := newTestAggregator().DailySpend(paths, asOf, EstimateOptions{})
	require.Len(t, days, 2)

	assert.Equal(t, "2026-10-02", days[0].Date)
	assert.Equal(t, 2, days[0].Sessions)
	assert.InDelta(t, 2.0, days[0].Cost, 1e-9)

	assert.Equal(t, "2026-10-07", days[1].Date)
	assert.Equal(t, 1, days[1].Sessions)
	assert.InDelta(t, 15.0, days[1].Cost, 1e-9)
}

func TestMonthlyEstimateByProvider(t *testing.T) {
	gen := fixtures.NewTestDataGenerator(t.TempDir())
	start := time.Date(2026, 10, 3, 9, 0, 0, 0, time.UTC)

	b := fixtures.NewOpenClawSession("mixed").
		Start(start).
		Assistant("m1", model.ModelHaiku45, start.Add(time.Minute), fixtures.Usage{Output: 1_000_000}).
		Assistant("m2", "gpt-5", start.Add(2*time.Minute), fixtures.Usage{Cost: fixtures.Float(1.5)}).
		Assistant("m3", "gemini-2.5-pro", start.Add(3*time.Minute), fixtures.Usage{Cost: fixtures.Float(0.25)})
	path, err := gen.Write("main", b)
	require.NoError(t, err)
	require.NoError(t, fixtures.Touch(path, asOf))

	agg := newTestAggregator()
	byProvider := agg.MonthlyEstimateByProvider([]string{path}, asOf, EstimateOptions{})
	assert.Len(t, byProvider, 3)
	assert.InDelta(t, 4.0, byProvider[model.ProviderAnthropic], 1e-9)
	assert.InDelta(t, 1.5, byProvider[model.ProviderOpenAI], 1e-9)
	assert.InDelta(t, 0.25, byProvider[model.ProviderUnknown], 1e-9)

	total := agg.MonthlyLocalEstimate([]string{path}, asOf, EstimateOptions{})
	assert.InDelta(t, total, byProvider[model.ProviderAnthropic]+byProvider[model.ProviderOpenAI]+byProvider[model.ProviderUnknown], 1e-9)
}
