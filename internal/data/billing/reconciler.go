package billing

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/penwyp/go-molty-meter/internal/util"
)

// Result is an authoritative monthly figure.
type Result struct {
	Amount    float64
	Start     time.Time // boundary the amount is counted from
	FetchedAt time.Time
	Cached    bool
	Source    string
}

// Reconciler fetches the authoritative month-to-date cost and caches it
// for the freshness window.
type Reconciler struct {
	client *Client
	source Source
	cache  *FreshnessCache
	clock  *util.TimeProvider
}

// NewReconciler wires a client, a response schema and a cache together.
func NewReconciler(client *Client, source Source, cache *FreshnessCache, clock *util.TimeProvider) *Reconciler {
	if client == nil {
		client = NewClient()
	}
	if clock == nil {
		clock = util.GetTimeProvider()
	}
	if cache == nil {
		cache = NewFreshnessCache(DefaultFreshnessWindow, clock.Now)
	}
	return &Reconciler{client: client, source: source, cache: cache, clock: clock}
}

// Source returns the configured response schema.
func (r *Reconciler) Source() Source {
	return r.source
}

// Cache returns the freshness cache.
func (r *Reconciler) Cache() *FreshnessCache {
	return r.cache
}

// StartBoundary is the later of the current month start and the cutoff.
func (r *Reconciler) StartBoundary(now time.Time, cutoff *time.Time) time.Time {
	return StartBoundary(r.clock, now, cutoff)
}

// StartBoundary is the later of now's month start in clock's location and
// the cutoff. An authoritative figure covers [StartBoundary, now).
func StartBoundary(clock *util.TimeProvider, now time.Time, cutoff *time.Time) time.Time {
	start := clock.MonthStart(now)
	if cutoff != nil && cutoff.After(start) {
		start = *cutoff
	}
	return start
}

// FetchMonthlyCost returns the authoritative cost since the start
// boundary. Within the freshness window no request is made. On failure the
// caller is expected to fall back to its local estimate.
func (r *Reconciler) FetchMonthlyCost(ctx context.Context, cred Credential, cutoff *time.Time) (Result, error) {
	if cred.AdminKey == "" {
		return Result{}, ErrNoCredential
	}

	now := r.clock.Now()
	start := r.StartBoundary(now, cutoff)
	key := r.cacheKey(cred, start)

	if value, fetchedAt, ok := r.cache.Get(key); ok {
		return Result{Amount: value, Start: start, FetchedAt: fetchedAt, Cached: true, Source: r.source.Name()}, nil
	}

	util.LogDebug("Fetching authoritative cost",
		util.F("source", r.source.Name()),
		util.F("start", formatWireTime(start)))

	amount, err := r.client.FetchTotal(ctx, r.source, cred, start, now)
	if err != nil {
		util.LogWarn(fmt.Sprintf("Authoritative cost fetch failed: %v", err), util.F("source", r.source.Name()))
		return Result{}, err
	}
	if amount < 0 {
		amount = 0
	}

	fetchedAt := r.cache.Put(key, amount)
	util.LogInfo(fmt.Sprintf("Authoritative cost: $%.2f", amount), util.F("source", r.source.Name()))
	return Result{Amount: amount, Start: start, FetchedAt: fetchedAt, Source: r.source.Name()}, nil
}

// cacheKey ties a cached value to the query it answers. The credential
// only contributes a hash.
func (r *Reconciler) cacheKey(cred Credential, start time.Time) string {
	h := fnv.New64a()
	h.Write([]byte(cred.AdminKey))
	return fmt.Sprintf("%s|%s|%s|%x", r.source.Name(), formatWireTime(start), cred.APIKeyID, h.Sum64())
}
