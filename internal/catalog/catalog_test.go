package catalog

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"karma-tycoon/internal/model"
)

func TestDefault_Validates(t *testing.T) {
	cat := Default()
	require.NoError(t, cat.Validate())
	assert.Len(t, cat.Tiers, 5)
	assert.Len(t, cat.Subreddits, 15)
	assert.Len(t, cat.Upgrades, 22)
	assert.Len(t, cat.Crises, 3)

	first := cat.Subreddits[0]
	assert.Equal(t, "r-funny", first.ID)
	assert.True(t, first.Unlocked)
	assert.Equal(t, 0, first.Level)
	for _, s := range cat.Subreddits[1:] {
		assert.False(t, s.Unlocked, s.ID)
	}
}

func TestTierFor(t *testing.T) {
	cat := Default()

	tests := []struct {
		name     string
		lifetime float64
		expected int
	}{
		{"zero", 0, 1},
		{"negative clamps to first", -5, 1},
		{"just below 1k", 999.99, 1},
		{"exactly 1k", 1000, 2},
		{"mid tier 3", 50000, 3},
		{"exactly 1M", 1e6, 5},
		{"far beyond", 1e18, 5},
		{"infinite", math.Inf(1), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cat.TierFor(tt.lifetime).Level)
		})
	}
}

// TestTierSelectionTotalProperty checks that every non-negative lifetime value
// falls in exactly one bracket.
func TestTierSelectionTotalProperty(t *testing.T) {
	cat := Default()

	rapid.Check(t, func(t *rapid.T) {
		lifetime := rapid.Float64Range(0, 1e12).Draw(t, "lifetime")

		matches := 0
		for _, tier := range cat.Tiers {
			if tier.Contains(lifetime) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("lifetime %v matched %d tiers", lifetime, matches)
		}
		if !cat.TierFor(lifetime).Contains(lifetime) {
			t.Fatalf("TierFor(%v) returned a bracket that does not contain it", lifetime)
		}
	})
}

func TestTiersContiguous(t *testing.T) {
	cat := Default()
	for i := 1; i < len(cat.Tiers); i++ {
		assert.Equal(t, cat.Tiers[i-1].MaxKarma, cat.Tiers[i].MinKarma)
	}
	assert.True(t, math.IsInf(cat.Tiers[len(cat.Tiers)-1].MaxKarma, 1))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Catalog)
	}{
		{"gap between tiers", func(c *Catalog) { c.Tiers[1].MinKarma = 1500 }},
		{"closed top tier", func(c *Catalog) { c.Tiers[4].MaxKarma = 1e7 }},
		{"first tier not at zero", func(c *Catalog) { c.Tiers[0].MinKarma = 1 }},
		{"duplicate subreddit", func(c *Catalog) { c.Subreddits[1].ID = c.Subreddits[0].ID }},
		{"locked with level", func(c *Catalog) { c.Subreddits[2].Level = 3 }},
		{"unknown effect", func(c *Catalog) { c.Upgrades[0].Effect.Kind = "click" }},
		{"bad crisis scope", func(c *Catalog) { c.Crises[0].Scope = "planet" }},
		{"no tiers", func(c *Catalog) { c.Tiers = nil }},
		{"zero content power", func(c *Catalog) { c.Tiers[1].ContentPower = 0 }},
		{"negative energy scale", func(c *Catalog) { c.Tiers[0].EnergyScale = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := Default()
			tt.mutate(cat)
			err := cat.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog))
		})
	}
}

func TestCosts(t *testing.T) {
	s := model.Subreddit{BaseCost: 10}
	assert.InDelta(t, 10, LevelUpCost(s), 1e-9)
	s.Level = 2
	assert.InDelta(t, 10*1.15*1.15, LevelUpCost(s), 1e-9)

	u := model.Upgrade{BaseCost: 50, Level: 1}
	assert.Equal(t, 57.0, UpgradeCost(u))
}

func TestNewState(t *testing.T) {
	cat := Default()
	s := cat.NewState()
	assert.Equal(t, 1, s.Tier)
	assert.Equal(t, 50.0, s.Energy)
	require.Len(t, s.Subreddits, 15)

	s.Subreddits[0].Level = 9
	assert.Equal(t, 0, cat.Subreddits[0].Level, "state must not alias catalog")
}

func TestLoadYAML(t *testing.T) {
	doc := `
tiers:
  - {tier: 1, name: Small, min_karma: 0, max_karma: 100, max_posts: 1, max_energy: 10, recharge_rate: 1, content_power: 1}
  - {tier: 2, name: Big, min_karma: 100, max_posts: 2, max_energy: 5, recharge_rate: 2, content_power: 3, energy_scale: 0.5}
subreddits:
  - {id: r-test, name: r/test, category: Tech, tier: 1, kps: 2, cost: 20, period: 60, unlocked: true}
upgrades:
  - {id: boost, name: Boost, tier: 1, cost: 10, kind: passive, magnitude: 2}
`
	cat, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, cat.Tiers, 2)
	assert.True(t, math.IsInf(cat.Tiers[1].MaxKarma, 1))
	assert.Equal(t, 1.0, cat.Tiers[0].EnergyScale)
	assert.Equal(t, 0.5, cat.Tiers[1].EnergyScale)

	require.Len(t, cat.Subreddits, 1)
	assert.Equal(t, 100.0, cat.Subreddits[0].Health)
	assert.Equal(t, 1.0, cat.Subreddits[0].Multiplier)

	require.Len(t, cat.Upgrades, 1)
	assert.Equal(t, UpgradeDuration(1), cat.Upgrades[0].Duration)

	assert.Len(t, cat.Crises, 3, "missing section falls back to defaults")
}

func TestLoadYAML_Errors(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("tiers: [{tier: 1, unknown_field: 2}]"))
	assert.Error(t, err)

	_, err = LoadYAML(strings.NewReader("upgrades: [{id: x, tier: 1, cost: 1, kind: click, magnitude: 2}]"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = LoadYAML(strings.NewReader("tiers: [{tier: 1, min_karma: 0, max_posts: 1, max_energy: 50, recharge_rate: 1, content_power: 1, energy_scale: -5}]"))
	assert.ErrorIs(t, err, ErrInvalidCatalog, "negative energy scale")
	assert.ErrorContains(t, err, "content power or energy scale")

	_, err = LoadYAML(strings.NewReader("tiers: [{tier: 1, min_karma: 0, max_posts: 1, max_energy: 50, recharge_rate: 1}]"))
	assert.ErrorIs(t, err, ErrInvalidCatalog, "missing content power")
	assert.ErrorContains(t, err, "content power or energy scale")
}

func TestLoadFile_EmptyPathIsDefault(t *testing.T) {
	cat, err := LoadFile("")
	require.NoError(t, err)
	assert.Len(t, cat.Subreddits, 15)
}
