package engine

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/economy"
	"karma-tycoon/internal/model"
)

// credit moves the accumulator into spendable and lifetime karma.
type credit struct {
	Amount float64
}

func (c credit) Apply(s *model.State) {
	s.Karma += c.Amount
	s.LifetimeKarma += c.Amount
	s.Accumulator = 0
}

type setTier struct {
	Level int
}

func (t setTier) Apply(s *model.State) { s.Tier = t.Level }

type setEnergy struct {
	Value float64
}

func (e setEnergy) Apply(s *model.State) { s.Energy = e.Value }

type cacheBreakdown struct {
	Breakdown model.Breakdown
}

func (c cacheBreakdown) Apply(s *model.State) { s.Breakdown = c.Breakdown }

type stampFlush struct {
	At time.Time
}

func (f stampFlush) Apply(s *model.State) { s.LastFlush = f.At }

type setGameOver struct{}

func (setGameOver) Apply(s *model.State) { s.GameOver = true }

// countGrace counts the grace window down.
type countGrace struct {
	Delta float64
}

func (g countGrace) Apply(s *model.State) {
	if s.Grace > 0 {
		s.Grace = math.Max(0, s.Grace-g.Delta)
	}
}

// flush decides the once-per-second bookkeeping. elapsed is the simulated
// time since the previous flush.
func (e *Engine) flush(now time.Time, elapsed float64) []game.Effect {
	s := e.state
	amount := math.Max(0, s.Accumulator)
	effects := []game.Effect{credit{Amount: amount}}

	tier := e.cat.TierFor(s.LifetimeKarma + amount)
	if tier.Level != s.Tier {
		effects = append(effects, setTier{Level: tier.Level})
		if tier.Level > s.Tier {
			log.Debug().Int("tier", tier.Level).Str("name", tier.Name).Msg("Tier up")
			effects = append(effects, game.Announce{Notice: game.Notice{Kind: game.NoticeTierUp, Message: "Reached " + tier.Name, At: now}})
		}
	}

	recharge := economy.UpgradeMultiplier(s.Upgrades, model.EffectEnergyRecharge)
	energy := s.Energy + elapsed/tier.RechargeRate*recharge
	effects = append(effects, setEnergy{Value: math.Max(0, math.Min(tier.MaxEnergy, energy))})

	b := economy.Calculate(economy.InputsFrom(s, now))
	effects = append(effects, cacheBreakdown{Breakdown: b}, stampFlush{At: now})
	effects = append(effects, e.chartEffect(now, b.TotalKPS, amount))

	if !s.GameOver && s.Grace <= 0 && b.TotalKPS <= 0 && hasLeveled(s) && !incomePending(s, now) {
		log.Debug().Float64("lifetime", s.LifetimeKarma+amount).Msg("Game over")
		effects = append(effects,
			setGameOver{},
			game.Announce{Notice: game.Notice{Kind: game.NoticeGameOver, Message: "Your communities have gone quiet", At: now}},
		)
	}
	return effects
}

// incomePending reports whether a post is being written or a fresh post has
// not reached its peak yet. Either one will produce income shortly.
func incomePending(s *model.State, now time.Time) bool {
	if s.Action != nil && s.Action.Type == model.ActionContent {
		return true
	}
	for _, p := range s.Posts {
		if now.Sub(p.CreatedAt).Seconds() < p.PeakTime {
			return true
		}
	}
	return false
}

func hasLeveled(s *model.State) bool {
	for _, sub := range s.Subreddits {
		if sub.Unlocked && sub.Level > 0 {
			return true
		}
	}
	return false
}
