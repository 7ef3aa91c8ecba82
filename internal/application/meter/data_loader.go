package meter

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/core/pricing"
	"github.com/penwyp/go-molty-meter/internal/data/aggregator"
	"github.com/penwyp/go-molty-meter/internal/data/parser"
	"github.com/penwyp/go-molty-meter/internal/data/scanner"
	"github.com/penwyp/go-molty-meter/internal/util"
)

// LocalData is one pass over the session logs.
type LocalData struct {
	// Total is the local estimate across every provider; ByProvider
	// splits it by the provider each model routes to.
	Total      float64
	ByProvider map[model.ProviderKind]float64
	Files      int

	Session     *model.ParsedSession
	SessionCost float64
}

// DataLoader handles scanning, parsing and pricing of session logs
type DataLoader struct {
	scanner    *scanner.FileScanner
	locator    *scanner.SessionLocator
	parser     *parser.Parser
	aggregator *aggregator.Aggregator
}

// NewDataLoader creates a DataLoader over the configured log roots
func NewDataLoader(cfg *MeterConfig, p pricing.PricingProvider, clock *util.TimeProvider) *DataLoader {
	fs := scanner.NewFileScanner(cfg.LogDirs...)
	prs := parser.NewParser(cfg.Concurrency)
	return &DataLoader{
		scanner:    fs,
		locator:    scanner.NewSessionLocator(cfg.ClaudeHome, fs),
		parser:     prs,
		aggregator: aggregator.NewAggregator(p, prs, clock),
	}
}

// Roots returns the scanned log roots.
func (dl *DataLoader) Roots() []string {
	return dl.scanner.Roots()
}

// Load computes the month's local estimate and prices the active session.
func (dl *DataLoader) Load(now time.Time, cutoff *time.Time) (LocalData, error) {
	files, err := dl.scanner.Scan()
	if err != nil {
		return LocalData{}, fmt.Errorf("failed to scan session logs: %w", err)
	}

	var data LocalData
	data.Files = len(files)
	data.ByProvider = dl.aggregator.MonthlyEstimateByProvider(files, now, aggregator.EstimateOptions{Cutoff: cutoff})
	data.Total = lo.Sum(lo.Values(data.ByProvider))

	if path, ok := dl.locator.ActiveSessionPath(); ok {
		session, err := dl.parser.ParseFile(path)
		if err == nil {
			data.Session = session
			data.SessionCost = dl.aggregator.SessionCost(session)
		} else {
			util.LogDebug("Active session has no usage yet", util.F("path", path))
		}
	}

	return data, nil
}

// DailySpend returns this month's spend per local day. A nil filter counts
// every model.
func (dl *DataLoader) DailySpend(now time.Time, cutoff *time.Time, filter aggregator.ModelFilter) ([]model.DailySpend, error) {
	files, err := dl.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan session logs: %w", err)
	}
	return dl.aggregator.DailySpend(files, now, aggregator.EstimateOptions{Cutoff: cutoff, Filter: filter}), nil
}
