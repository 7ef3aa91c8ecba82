package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromUsage(t *testing.T) {
	tests := []struct {
		name   string
		cost   float64
		tokens int
		want   Tier
	}{
		{"idle", 0, 0, Healthy},
		{"cost at watching threshold", 2.00, 0, Healthy},
		{"cost just over", 2.01, 0, Watching},
		{"tokens at watching threshold", 0, 500_000, Healthy},
		{"tokens over watching", 0, 500_001, Watching},
		{"cost warning", 3.51, 0, Warning},
		{"tokens warning", 1.0, 750_001, Warning},
		{"cost heavy", 5.01, 0, Heavy},
		{"tokens heavy regardless of cost", 0, 1_000_001, Heavy},
		{"cost at heavy threshold", 5.00, 0, Warning},
		{"higher of the two wins", 2.5, 900_000, Warning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromUsage(tt.cost, tt.tokens))
		})
	}
}

func TestFromContextPercent(t *testing.T) {
	tests := []struct {
		ratio float64
		want  Tier
	}{
		{0, Healthy},
		{0.40, Healthy},
		{0.41, Watching},
		{0.65, Watching},
		{0.66, Warning},
		{0.85, Warning},
		{0.86, Heavy},
		{1.0, Heavy},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FromContextPercent(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestGaugeFillAndString(t *testing.T) {
	assert.Equal(t, 0.15, Healthy.GaugeFill())
	assert.Equal(t, 0.45, Watching.GaugeFill())
	assert.Equal(t, 0.7, Warning.GaugeFill())
	assert.Equal(t, 0.95, Heavy.GaugeFill())

	assert.Equal(t, "healthy", Healthy.String())
	assert.Equal(t, "heavy", Heavy.String())
	assert.Equal(t, "Heavy", Heavy.Label())
	assert.Equal(t, "Watching", Watching.Label())

	assert.Equal(t, Warning, Max(Warning, Watching))
	assert.Equal(t, Heavy, Max(Healthy, Heavy))
	assert.True(t, Healthy < Watching && Watching < Warning && Warning < Heavy)
}

func TestPickAdvice(t *testing.T) {
	for _, tier := range []Tier{Healthy, Watching, Warning, Heavy} {
		for i := 0; i < 20; i++ {
			assert.Contains(t, tier.Phrases(), PickAdvice(tier, nil))
		}
	}

	last := func(n int) int { return n - 1 }
	assert.Equal(t, "Butter's melting", PickAdvice(Heavy, last))

	outOfRange := func(n int) int { return n + 5 }
	assert.Equal(t, "Cruising", PickAdvice(Watching, outOfRange))
}

func TestAdvisorRerollsOnlyOnTierChange(t *testing.T) {
	calls := 0
	intn := func(n int) int {
		calls++
		return calls % n
	}
	advisor := NewAdvisor(intn)

	tier, advice := advisor.Current()
	assert.Equal(t, Healthy, tier)
	assert.Equal(t, "Let's go!", advice)

	advice, changed := advisor.Update(Healthy)
	assert.False(t, changed)
	assert.Equal(t, "Let's go!", advice)
	assert.Equal(t, 0, calls)

	warning, changed := advisor.Update(Warning)
	assert.True(t, changed)
	assert.Contains(t, Warning.Phrases(), warning)

	for i := 0; i < 5; i++ {
		again, changed := advisor.Update(Warning)
		assert.False(t, changed)
		assert.Equal(t, warning, again)
	}
	assert.Equal(t, 1, calls)

	_, changed = advisor.Update(Heavy)
	assert.True(t, changed)
	assert.Equal(t, 2, calls)
}
