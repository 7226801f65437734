// Package events generates and expires timed multiplicative events: positive
// viral boosts on single subreddits and crises drawn from the catalog.
//
// Viral chance per second is the base chance times purchased frequency
// upgrades. Crisis chance grows with tier, ramping difficulty against income.
package events

import (
	"math"
	"math/rand"

	"github.com/google/uuid"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/economy"
	"karma-tycoon/internal/model"
)

// Config holds the generator's tunables.
type Config struct {
	ViralChance   float64 // per second
	ViralDuration float64 // seconds
	ViralCap      float64 // ceiling of the rolled multiplier before power upgrades
	CrisisChance  float64 // per second at tier 1
	CrisisRamp    float64 // added crisis weight per tier above 1
}

// DefaultConfig returns the standard tunables.
func DefaultConfig() Config {
	return Config{
		ViralChance:   0.01,
		ViralDuration: 30,
		ViralCap:      10,
		CrisisChance:  0.002,
		CrisisRamp:    0.5,
	}
}

// Generator spawns events. It keeps no state between calls.
type Generator struct {
	cfg     Config
	crises  []catalog.CrisisDef
	maxTier int
}

// New creates a generator. Zero config fields take their defaults.
func New(cfg Config, cat *catalog.Catalog) *Generator {
	def := DefaultConfig()
	if cfg.ViralChance == 0 {
		cfg.ViralChance = def.ViralChance
	}
	if cfg.ViralDuration == 0 {
		cfg.ViralDuration = def.ViralDuration
	}
	if cfg.ViralCap == 0 {
		cfg.ViralCap = def.ViralCap
	}
	if cfg.CrisisChance == 0 {
		cfg.CrisisChance = def.CrisisChance
	}
	if cfg.CrisisRamp == 0 {
		cfg.CrisisRamp = def.CrisisRamp
	}
	return &Generator{cfg: cfg, crises: cat.Crises, maxTier: cat.MaxTier()}
}

// Advance decides one tick of event activity: expiry of every active event,
// then independent viral and crisis spawn checks.
func (g *Generator) Advance(s *model.State, tier model.TierInfo, delta float64, rng *rand.Rand) []game.Effect {
	effects := []game.Effect{ExpireAll(delta)}
	if delta <= 0 {
		return effects
	}

	freq := economy.UpgradeMultiplier(s.Upgrades, model.EffectEventFrequency)
	if rng.Float64() < g.cfg.ViralChance*freq*delta {
		if ev, ok := g.viral(s, rng); ok {
			effects = append(effects, game.SpawnEvent{Event: ev}, announce(game.NoticeViral, ev))
		}
	}

	if rng.Float64() < g.CrisisChance(tier.Level)*delta {
		if ev, ok := NewCrisis(g.crises, s, rng); ok {
			effects = append(effects, game.SpawnEvent{Event: ev}, announce(game.NoticeCrisis, ev))
		}
	}
	return effects
}

// CrisisChance is the per-second crisis probability at a tier.
func (g *Generator) CrisisChance(tier int) float64 {
	return g.cfg.CrisisChance * (1 + float64(tier-1)*g.cfg.CrisisRamp)
}

// ViralMultiplier is the rolled boost for a subreddit tier. Lower tiers roll
// bigger multipliers.
func (g *Generator) ViralMultiplier(subTier int, roll float64) float64 {
	tierFactor := float64(g.maxTier-subTier+1) / 2
	if tierFactor <= 0 {
		tierFactor = 0.5
	}
	return math.Min(g.cfg.ViralCap, (2+3*roll)*tierFactor)
}

func (g *Generator) viral(s *model.State, rng *rand.Rand) (model.Event, bool) {
	var candidates []int
	for i, sub := range s.Subreddits {
		if sub.Unlocked && !s.HasPositiveEvent(sub.ID) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return model.Event{}, false
	}
	sub := s.Subreddits[candidates[rng.Intn(len(candidates))]]

	power := economy.UpgradeMultiplier(s.Upgrades, model.EffectEventPower)
	duration := g.cfg.ViralDuration * economy.UpgradeMultiplier(s.Upgrades, model.EffectEventDuration)
	return model.Event{
		ID:         "viral-" + uuid.NewString(),
		Name:       "Viral post in " + sub.Name + "!",
		TargetID:   sub.ID,
		Multiplier: g.ViralMultiplier(sub.Tier, rng.Float64()) * power,
		Duration:   duration,
		Remaining:  duration,
		Polarity:   model.PolarityBoost,
		Scope:      model.ScopeLocal,
	}, true
}

// NewCrisis draws a crisis from the table. Local crises pick a random
// unlocked subreddit and are skipped when none is unlocked.
func NewCrisis(crises []catalog.CrisisDef, s *model.State, rng *rand.Rand) (model.Event, bool) {
	if len(crises) == 0 {
		return model.Event{}, false
	}
	def := crises[rng.Intn(len(crises))]
	ev := model.Event{
		ID:         "crisis-" + uuid.NewString(),
		Name:       def.Name,
		Multiplier: def.Multiplier,
		Duration:   def.Duration,
		Remaining:  def.Duration,
		Polarity:   model.PolarityCrisis,
		Scope:      def.Scope,
	}
	if def.Scope == model.ScopeGlobal {
		return ev, true
	}

	var unlocked []string
	for _, sub := range s.Subreddits {
		if sub.Unlocked {
			unlocked = append(unlocked, sub.ID)
		}
	}
	if len(unlocked) == 0 {
		return model.Event{}, false
	}
	ev.TargetID = unlocked[rng.Intn(len(unlocked))]
	ev.HealthPenalty = def.HealthPenalty
	if sub := s.Subreddit(ev.TargetID); sub != nil {
		ev.Name = def.Name + " in " + sub.Name
	}
	return ev, true
}

// ExpireAll returns the effect that counts every event down by delta and
// drops those at or below zero.
func ExpireAll(delta float64) game.Effect {
	return game.AgeEvents{Delta: delta}
}

func announce(kind game.NoticeKind, ev model.Event) game.Announce {
	return game.Announce{Notice: game.Notice{Kind: kind, Message: ev.Name, Target: ev.TargetID}}
}
