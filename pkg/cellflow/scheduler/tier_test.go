package scheduler_test

import (
	"testing"
	"time"

	"github.com/randalmurphal/cellflow/pkg/cellflow/config"
	"github.com/randalmurphal/cellflow/pkg/cellflow/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTier_Names(t *testing.T) {
	assert.Equal(t, "REFLEX", scheduler.Reflex.String())
	assert.Equal(t, "meta", scheduler.Meta.Name())
	assert.Equal(t, "TIER(9)", scheduler.Tier(9).String())
	assert.False(t, scheduler.Tier(-1).Valid())
	assert.Len(t, scheduler.AllTiers(), scheduler.NumTiers)
}

func TestTier_Next(t *testing.T) {
	next, ok := scheduler.Reflex.Next()
	require.True(t, ok)
	assert.Equal(t, scheduler.Micro, next)

	_, ok = scheduler.Meta.Next()
	assert.False(t, ok, "slowest tier has no next")
}

func TestParseTier(t *testing.T) {
	tier, err := scheduler.ParseTier("MACRO")
	require.NoError(t, err)
	assert.Equal(t, scheduler.Macro, tier)

	_, err = scheduler.ParseTier("ultra")
	assert.ErrorIs(t, err, scheduler.ErrUnknownTier)
}

func TestPolicy_InferTier(t *testing.T) {
	p := scheduler.DefaultPolicy()

	tests := []struct {
		cost float64
		want scheduler.Tier
	}{
		{0, scheduler.Reflex},
		{0.009, scheduler.Reflex},
		{0.01, scheduler.Micro},
		{0.03, scheduler.Micro},
		{scheduler.DefaultCostHint, scheduler.Macro},
		{0.5, scheduler.Macro},
		{1.0, scheduler.Meta},
		{42, scheduler.Meta},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.InferTier(tt.cost), "cost %v", tt.cost)
	}
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, scheduler.DefaultPolicy().Validate())
	assert.Equal(t, 11, scheduler.DefaultPolicy().TotalWorkers())

	tests := []struct {
		name   string
		mutate func(*scheduler.Policy)
	}{
		{"zero capacity", func(p *scheduler.Policy) { p.QueueCapacity = 0 }},
		{"no workers", func(p *scheduler.Policy) { p.Tiers[scheduler.Macro].Workers = 0 }},
		{"zero cadence", func(p *scheduler.Policy) { p.Tiers[scheduler.Reflex].Cadence = 0 }},
		{"cadence not increasing", func(p *scheduler.Policy) {
			p.Tiers[scheduler.Micro].Cadence = p.Tiers[scheduler.Reflex].Cadence
		}},
		{"slower tier with more workers", func(p *scheduler.Policy) { p.Tiers[scheduler.Meta].Workers = 9 }},
		{"thresholds not ascending", func(p *scheduler.Policy) { p.CostThresholds[2] = 0.02 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scheduler.DefaultPolicy()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), scheduler.ErrInvalidPolicy)
		})
	}
}

func TestPolicyFromSettings(t *testing.T) {
	p, err := scheduler.PolicyFromSettings(config.Defaults().Scheduler)
	require.NoError(t, err)
	assert.Equal(t, scheduler.DefaultPolicy(), p)

	s := config.Defaults().Scheduler
	s.Tiers[1].Workers = 4
	s.Tiers[1].Cadence = 100 * time.Millisecond
	p, err = scheduler.PolicyFromSettings(s)
	require.NoError(t, err)
	assert.Equal(t, scheduler.TierPolicy{Cadence: 100 * time.Millisecond, Workers: 4}, p.Tiers[scheduler.Micro])

	s = config.Defaults().Scheduler
	s.Tiers = s.Tiers[:3]
	_, err = scheduler.PolicyFromSettings(s)
	assert.ErrorIs(t, err, scheduler.ErrInvalidPolicy)

	s = config.Defaults().Scheduler
	s.CostThresholds = []float64{0.1}
	_, err = scheduler.PolicyFromSettings(s)
	assert.ErrorIs(t, err, scheduler.ErrInvalidPolicy)
}
