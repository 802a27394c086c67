// Package dedupe decides whether an about-to-be-dispatched order is likely an
// accidental repeat of a recently dispatched one.
//
// Two tiers run in order. Local suppression catches double-taps from the same
// terminal by hashing the cart against a time-indexed cache, with no external
// call. The server-side heuristic then compares item-name overlap against
// recently active kitchen orders from a matching source. Both tiers are
// skipped for non-chargeable orders, and a failing server query is treated as
// "no duplicate" — blocking a legitimate order is worse than missing a repeat.
package dedupe

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kedai-pos/engine/internal/enum"
	"github.com/kedai-pos/engine/internal/order"
)

// Defaults for the detection parameters. The values carry no documented
// rationale beyond field experience; keep them configurable.
const (
	DefaultWindow    = 10 * time.Second
	DefaultLookback  = 30 * time.Minute
	DefaultThreshold = 0.5
)

// CandidateSource fetches recently active kitchen orders for the overlap
// heuristic. Satisfied by the gateway store.
type CandidateSource interface {
	FetchActive(ctx context.Context, outletID string, statuses []string, since time.Time) ([]order.Order, error)
}

// Result is the detector's verdict. Candidate is set only when the
// server-side heuristic matched; local suppression has no candidate to show.
type Result struct {
	Duplicate bool
	Candidate *order.Order
}

// Detector evaluates the two duplicate tiers. It holds no per-terminal
// state: the suppression cache belongs to the calling session and is passed
// into every Check, so one detector serves all terminals while their local
// suppression stays isolated.
type Detector struct {
	source    CandidateSource
	window    time.Duration
	lookback  time.Duration
	threshold float64
	now       func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithWindow overrides the local suppression window.
func WithWindow(d time.Duration) Option { return func(det *Detector) { det.window = d } }

// WithLookback overrides the server-side candidate lookback.
func WithLookback(d time.Duration) Option { return func(det *Detector) { det.lookback = d } }

// WithThreshold overrides the overlap ratio threshold.
func WithThreshold(t float64) Option { return func(det *Detector) { det.threshold = t } }

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option { return func(det *Detector) { det.now = now } }

// New creates a Detector over the given candidate source.
func New(source CandidateSource, opts ...Option) *Detector {
	det := &Detector{
		source:    source,
		window:    DefaultWindow,
		lookback:  DefaultLookback,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(det)
	}
	return det
}

// Check runs both tiers for the cart contents against the terminal's own
// suppression cache. It never returns an error: detection failures are folded
// into a fail-open "not duplicate" verdict.
func (det *Detector) Check(ctx context.Context, cache *Cache, outletID, source, orderType string, items []order.LineItem) Result {
	if orderType == enum.OrderTypeNonChargeable {
		return Result{}
	}

	now := det.now()

	// Tier 1: same operator, same instant. Correct by construction.
	if cache.SentWithin(Hash(source, items), now, det.window) {
		return Result{Duplicate: true}
	}

	// Tier 2: overlap against recent kitchen orders.
	candidates, err := det.source.FetchActive(ctx, outletID,
		[]string{enum.OrderStatusNew, enum.OrderStatusPreparing},
		now.Add(-det.lookback))
	if err != nil {
		return Result{} // fail open
	}

	names := itemNameSet(items)
	if len(names) == 0 {
		return Result{}
	}

	// Most recent first; report the first candidate over the threshold.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	for i := range candidates {
		cand := candidates[i]
		if cand.OrderType == enum.OrderTypeNonChargeable {
			continue // excluded from matching once marked
		}
		if !sourceMatches(source, cand.Source) {
			continue
		}
		if overlapRatio(names, itemNameSet(cand.Items)) >= det.threshold {
			return Result{Duplicate: true, Candidate: &cand}
		}
	}
	return Result{}
}

// sourceMatches is a loose textual match: the table label or customer
// identity of one order contained in the other, case-insensitively.
func sourceMatches(current, candidate string) bool {
	a := strings.ToLower(strings.TrimSpace(current))
	b := strings.ToLower(strings.TrimSpace(candidate))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func itemNameSet(items []order.LineItem) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, li := range items {
		name := strings.ToLower(strings.TrimSpace(li.Name))
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// overlapRatio is |current ∩ candidate| / |current|, name-based and not
// quantity-weighted.
func overlapRatio(current, candidate map[string]struct{}) float64 {
	if len(current) == 0 {
		return 0
	}
	shared := 0
	for name := range current {
		if _, ok := candidate[name]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(current))
}
