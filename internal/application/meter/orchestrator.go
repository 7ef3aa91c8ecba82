package meter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-molty-meter/internal/config"
	"github.com/penwyp/go-molty-meter/internal/core/health"
	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/core/pricing"
	"github.com/penwyp/go-molty-meter/internal/data/aggregator"
	"github.com/penwyp/go-molty-meter/internal/data/billing"
	"github.com/penwyp/go-molty-meter/internal/data/monitoring"
	"github.com/penwyp/go-molty-meter/internal/util"
)

type fetchResult struct {
	provider model.ProviderKind
	seq      uint64
	start    time.Time // period boundary the fetch was started for
	result   billing.Result
	err      error
}

// reconcileSlot is one provider with an authoritative cost source. Its
// fields are guarded by the meter's refreshMu.
type reconcileSlot struct {
	provider   model.ProviderKind
	reconciler CostReconciler
	cred       billing.Credential

	auth        authState
	fetchSeq    uint64
	appliedSeq  uint64
	inFlight    bool
	lastAttempt time.Time
	lastStart   time.Time
}

// reconciledProviders are the providers with an authoritative source, in
// display order.
var reconciledProviders = []model.ProviderKind{model.ProviderAnthropic, model.ProviderOpenAI}

// Meter keeps the monthly figure current. All state changes happen inside
// refresh or applyResult, serialised by refreshMu; readers only ever see
// published snapshots.
type Meter struct {
	config      *MeterConfig
	clock       *util.TimeProvider
	pricing     pricing.PricingProvider
	loader      *DataLoader
	refreshCtrl *RefreshController
	state       *StateManager
	reconcilers map[model.ProviderKind]CostReconciler
	slots       []*reconcileSlot
	newMonitor  MonitorFactory
	intn        health.IntN

	trigger chan struct{}
	results chan fetchResult

	refreshMu  sync.Mutex
	local      LocalData
	forceFetch bool

	monitor  FileMonitor
	cancel   context.CancelFunc
	stopCh   chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures a Meter.
type Option func(*Meter)

// WithClock replaces the time provider.
func WithClock(tp *util.TimeProvider) Option {
	return func(m *Meter) { m.clock = tp }
}

// WithPricing replaces the rate card.
func WithPricing(p pricing.PricingProvider) Option {
	return func(m *Meter) { m.pricing = p }
}

// WithReconciler replaces the authoritative cost source for a provider.
// It is used only when that provider's credential is set.
func WithReconciler(kind model.ProviderKind, r CostReconciler) Option {
	return func(m *Meter) { m.reconcilers[kind] = r }
}

// WithMonitorFactory replaces the file watcher.
func WithMonitorFactory(f MonitorFactory) Option {
	return func(m *Meter) { m.newMonitor = f }
}

// WithRandom replaces the advice random source.
func WithRandom(intn health.IntN) Option {
	return func(m *Meter) { m.intn = intn }
}

// New creates a Meter. Without an injected reconciler one is built from the
// configuration when a credential is present.
func New(cfg *MeterConfig, opts ...Option) (*Meter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Meter{
		config:      cfg,
		state:       NewStateManager(),
		reconcilers: make(map[model.ProviderKind]CostReconciler),
		newMonitor:  newFileMonitor,
		trigger:     make(chan struct{}, 1),
		results:     make(chan fetchResult, 4),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.clock == nil {
		tp, err := util.NewTimeProvider(cfg.Timezone)
		if err != nil {
			return nil, err
		}
		m.clock = tp
	}
	if m.pricing == nil {
		m.pricing = pricing.NewDefaultProvider()
	}

	for _, kind := range reconciledProviders {
		cred := cfg.credential(kind)
		if cred.AdminKey == "" {
			continue
		}
		r := m.reconcilers[kind]
		if r == nil {
			r = NewReconciler(cfg, kind, m.pricing, m.clock)
		}
		m.slots = append(m.slots, &reconcileSlot{provider: kind, reconciler: r, cred: cred})
	}

	m.loader = NewDataLoader(cfg, m.pricing, m.clock)
	m.refreshCtrl = NewRefreshController(cfg.MonthlyBudget, cfg.Freshness, health.NewAdvisor(m.intn))
	m.refreshCtrl.filterNote = cfg.filterNote()
	return m, nil
}

// NewReconciler builds the billing reconciler for a provider. Anthropic
// uses the response schema selected by the config.
func NewReconciler(cfg *MeterConfig, kind model.ProviderKind, p pricing.PricingProvider, clock *util.TimeProvider) *billing.Reconciler {
	var src billing.Source
	baseURL := cfg.BaseURL
	switch {
	case kind == model.ProviderOpenAI:
		src = &billing.OpenAICostSource{}
		baseURL = cfg.OpenAIBaseURL
	case cfg.BillingSource == config.BillingUsageReport:
		src = billing.NewUsageReportSource(cfg.Models, p)
	default:
		src = &billing.CostReportSource{DescriptionFilter: cfg.DescriptionFilter}
	}

	client := billing.NewClient(billing.WithBaseURL(baseURL))
	cache := billing.NewFreshnessCache(cfg.Freshness, clock.Now)
	return billing.NewReconciler(client, src, cache, clock)
}

// State returns the snapshot publisher.
func (m *Meter) State() *StateManager {
	return m.state
}

// Snapshot returns the latest published snapshot.
func (m *Meter) Snapshot() *Snapshot {
	return m.state.Snapshot()
}

// DailySpend reports this month's spend per day, optionally for one
// provider's models only.
func (m *Meter) DailySpend(filter aggregator.ModelFilter) ([]model.DailySpend, error) {
	return m.loader.DailySpend(m.clock.Now(), m.config.Cutoff, filter)
}

// Start opens the file watch and runs the refresh worker until ctx is done
// or Stop is called. Without a working watch the timer alone drives
// refreshes.
func (m *Meter) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	monitor, err := m.newMonitor(m.loader.Roots())
	if err != nil {
		util.LogWarn(fmt.Sprintf("File watch unavailable, polling only: %v", err))
	} else {
		m.monitor = monitor
	}

	m.started = true
	go m.run(ctx)
	m.Trigger()
}

// Stop halts the worker, the timer and the file watch.
func (m *Meter) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stopCh)
		if m.cancel != nil {
			m.cancel()
		}
		if m.started {
			<-m.done
		}
		if m.monitor != nil {
			if cerr := m.monitor.Close(); cerr != nil {
				err = fmt.Errorf("failed to close file watcher: %w", cerr)
			}
		}
	})
	return err
}

// Trigger requests a refresh. Requests made while one is pending collapse
// into it.
func (m *Meter) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// ForceReconcile discards the cached authoritative figures and fetches
// new ones on the next refresh, superseding any fetch still in flight.
func (m *Meter) ForceReconcile() {
	m.refreshMu.Lock()
	m.forceFetch = true
	for _, slot := range m.slots {
		if c, ok := slot.reconciler.(interface{ Cache() *billing.FreshnessCache }); ok {
			c.Cache().Invalidate()
		}
	}
	m.refreshMu.Unlock()

	m.Trigger()
}

// Once refreshes synchronously and waits for a due authoritative fetch
// until ctx is done. It must not be mixed with Start.
func (m *Meter) Once(ctx context.Context) *Snapshot {
	snap := m.refresh(ctx)

	for m.fetchPending() {
		select {
		case r := <-m.results:
			snap = m.applyResult(r)
		case <-ctx.Done():
			return m.state.Snapshot()
		}
	}
	return snap
}

func (m *Meter) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	var events <-chan monitoring.FileEvent
	if m.monitor != nil {
		events = m.monitor.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Trigger()
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			util.LogDebug(fmt.Sprintf("File changed: %s (%s)", event.Path, event.Operation))
			m.Trigger()
		case <-m.trigger:
			m.refresh(ctx)
		case r := <-m.results:
			m.applyResult(r)
		}
	}
}

func (m *Meter) refresh(ctx context.Context) *Snapshot {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	now := m.clock.Now()
	local, err := m.loader.Load(now, m.config.Cutoff)
	if err != nil {
		// keep the previous figures rather than showing zero
		util.LogWarn(fmt.Sprintf("Failed to refresh local estimate: %v", err))
	} else {
		m.local = local
	}

	period := m.period(now)
	for _, slot := range m.slots {
		if m.forceFetch || m.fetchDue(slot, now, period) {
			m.startFetch(ctx, slot, now, period)
		}
	}
	m.forceFetch = false

	return m.publish(now)
}

// period is the start of the counted period: the later of the month start
// and the configured cutoff.
func (m *Meter) period(now time.Time) time.Time {
	return billing.StartBoundary(m.clock, now, m.config.Cutoff)
}

func (m *Meter) fetchDue(slot *reconcileSlot, now, period time.Time) bool {
	switch {
	case slot.inFlight:
		return false
	case slot.lastAttempt.IsZero(), !slot.lastStart.Equal(period):
		return true
	case slot.auth.failed:
		return now.Sub(slot.lastAttempt) >= m.config.RetryAfterFailure
	case slot.auth.have:
		return now.Sub(slot.auth.result.FetchedAt) >= m.config.Freshness
	default:
		return true
	}
}

func (m *Meter) startFetch(ctx context.Context, slot *reconcileSlot, now, period time.Time) {
	slot.fetchSeq++
	slot.inFlight = true
	slot.lastAttempt = now
	slot.lastStart = period

	provider := slot.provider
	seq := slot.fetchSeq
	reconciler := slot.reconciler
	cred := slot.cred
	cutoff := m.config.Cutoff

	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, m.config.FetchTimeout)
		defer cancel()

		result, err := reconciler.FetchMonthlyCost(fetchCtx, cred, cutoff)
		select {
		case m.results <- fetchResult{provider: provider, seq: seq, start: period, result: result, err: err}:
		case <-m.stopCh:
		}
	}()
}

func (m *Meter) fetchPending() bool {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	for _, slot := range m.slots {
		if slot.inFlight {
			return true
		}
	}
	return false
}

func (m *Meter) slot(kind model.ProviderKind) *reconcileSlot {
	for _, slot := range m.slots {
		if slot.provider == kind {
			return slot
		}
	}
	return nil
}

// applyResult records a finished fetch. A result older than one already
// applied for the same provider is dropped.
func (m *Meter) applyResult(r fetchResult) *Snapshot {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	slot := m.slot(r.provider)
	if slot == nil {
		return m.state.Snapshot()
	}
	if r.seq == slot.fetchSeq {
		slot.inFlight = false
	}
	if r.seq <= slot.appliedSeq {
		util.LogDebug("Discarding superseded billing result", util.F("provider", r.provider.String()), util.F("seq", r.seq))
		return m.state.Snapshot()
	}
	slot.appliedSeq = r.seq

	if r.err != nil {
		slot.auth.failed = true
		slot.auth.err = r.err
	} else {
		start := r.result.Start
		if start.IsZero() {
			start = r.start
		}
		slot.auth = authState{result: r.result, start: start, have: true}
	}

	return m.publish(m.clock.Now())
}

// publish must be called with refreshMu held.
func (m *Meter) publish(now time.Time) *Snapshot {
	providers := make([]providerState, len(m.slots))
	for i, slot := range m.slots {
		providers[i] = providerState{provider: slot.provider, auth: slot.auth, inFlight: slot.inFlight}
	}

	snap := m.refreshCtrl.Build(m.state.Snapshot(), m.local, providers, m.period(now), now)
	m.state.Publish(snap)
	return snap
}
