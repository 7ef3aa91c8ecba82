package health

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Tier is the ordered health classification of a session.
type Tier int

const (
	Healthy Tier = iota
	Watching
	Warning
	Heavy
)

func (t Tier) String() string {
	switch t {
	case Watching:
		return "watching"
	case Warning:
		return "warning"
	case Heavy:
		return "heavy"
	}
	return "healthy"
}

// Label is the capitalised tier name for display.
func (t Tier) Label() string {
	name := t.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// Max returns the more severe of two tiers.
func Max(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}

// GaugeFill is the arc gauge fraction shown for the tier.
func (t Tier) GaugeFill() float64 {
	switch t {
	case Watching:
		return 0.45
	case Warning:
		return 0.7
	case Heavy:
		return 0.95
	}
	return 0.15
}

// FromContextPercent classifies a context-window fill ratio (0..1).
func FromContextPercent(ratio float64) Tier {
	switch {
	case ratio > 0.85:
		return Heavy
	case ratio > 0.65:
		return Warning
	case ratio > 0.40:
		return Watching
	}
	return Healthy
}

// FromUsage classifies absolute session usage; whichever of cost and
// tokens trips the higher tier wins.
func FromUsage(cost float64, tokens int) Tier {
	switch {
	case cost > 5.0 || tokens > 1_000_000:
		return Heavy
	case cost > 3.50 || tokens > 750_000:
		return Warning
	case cost > 2.0 || tokens > 500_000:
		return Watching
	}
	return Healthy
}

var phrases = map[Tier][]string{
	Healthy: {
		"Let's go!",
		"Fresh shell!",
		"Claws out!",
		"Feeling snappy",
		"Ocean's clear",
		"Seize the bait!",
		"Shell yeah!",
		"Tides are right",
		"Ready to snap",
	},
	Watching: {
		"Cruising",
		"Steady claws",
		"Swimming along",
		"In flow",
		"Making waves",
		"Riding the tide",
	},
	Warning: {
		"Wrap it up",
		"Riptides ahead",
		"Heavy current",
		"Shell's tight",
		"Watch the trap",
		"Nets nearby",
		"Shallow waters",
		"Getting crabby",
	},
	Heavy: {
		"Time to molt!",
		"Shed that shell!",
		"Fresh start time",
		"Shell's cracking",
		"Molt o'clock",
		"Feeling the pinch!",
		"Boiling point!",
		"Escape the pot!",
		"Butter's melting",
	},
}

// Phrases returns the advice phrases for the tier.
func (t Tier) Phrases() []string {
	out := make([]string, len(phrases[t]))
	copy(out, phrases[t])
	return out
}

// IntN returns a pseudo-random number in [0, n).
type IntN func(n int) int

// PickAdvice selects one phrase for the tier.
func PickAdvice(t Tier, intn IntN) string {
	list := phrases[t]
	if len(list) == 0 {
		list = phrases[Healthy]
	}
	if intn == nil {
		intn = rand.IntN
	}
	i := intn(len(list))
	if i < 0 || i >= len(list) {
		i = 0
	}
	return list[i]
}

// Advisor keeps the advice text stable until the tier changes.
type Advisor struct {
	mu     sync.Mutex
	intn   IntN
	tier   Tier
	advice string
}

// NewAdvisor creates an advisor starting at Healthy. A nil source uses
// math/rand.
func NewAdvisor(intn IntN) *Advisor {
	if intn == nil {
		intn = rand.IntN
	}
	return &Advisor{intn: intn, tier: Healthy, advice: phrases[Healthy][0]}
}

// Update records the current tier and returns the advice to show. The
// phrase is re-rolled only on a tier change.
func (a *Advisor) Update(t Tier) (advice string, changed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t == a.tier {
		return a.advice, false
	}
	a.tier = t
	a.advice = PickAdvice(t, a.intn)
	return a.advice, true
}

// Current returns the tier and advice last recorded.
func (a *Advisor) Current() (Tier, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tier, a.advice
}
