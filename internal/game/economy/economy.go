// Package economy computes income. Calculate is a pure function of the
// catalog-backed state and wall time; it holds no hidden state, so the same
// inputs always produce the same Breakdown.
//
// Per leveled subreddit the passive rate is
//
//	base · level · multiplier · activity · seasonal · fatigue · health · synergy · localEvent
//
// and the post rate is the sum of its posts' curve rates. Global scaling
// (purchased passive upgrades × global events) is applied once to the sum of
// passive and content income. Per-subreddit figures in the breakdown are
// always pre-global.
package economy

import (
	"math"
	"time"

	"karma-tycoon/internal/game/content"
	"karma-tycoon/internal/model"
)

// Economy constants.
const (
	HealthThreshold   = 75.0
	MaxHealth         = 100.0
	SynergyPerPost    = 0.05
	SeasonalAmplitude = 0.5
)

// Inputs is everything Calculate reads.
type Inputs struct {
	Subreddits []model.Subreddit
	Posts      []model.Post
	Upgrades   []model.Upgrade
	Events     []model.Event
	Now        time.Time
}

// InputsFrom builds Inputs from a state.
func InputsFrom(s *model.State, now time.Time) Inputs {
	return Inputs{
		Subreddits: s.Subreddits,
		Posts:      s.Posts,
		Upgrades:   s.Upgrades,
		Events:     s.Events,
		Now:        now,
	}
}

// Seasonal is the per-subreddit activity oscillator, bounded to [0.5, 1.5].
func Seasonal(s model.Subreddit, now time.Time) float64 {
	if s.ActivityPeriod <= 0 {
		return 1
	}
	secs := float64(now.UnixMilli()) / 1000
	return 1 + SeasonalAmplitude*math.Sin(2*math.Pi*secs/s.ActivityPeriod+s.ActivityPhase)
}

// FatigueMultiplier is 1 − fatigue.
func FatigueMultiplier(fatigue float64) float64 {
	return 1 - fatigue
}

// HealthMultiplier is 1 at or above the threshold and linear to 0 below it.
func HealthMultiplier(health float64) float64 {
	if health >= HealthThreshold {
		return 1
	}
	if health <= 0 {
		return 0
	}
	return health / HealthThreshold
}

// ActivityScore is 0, 0.5 or 1 for zero, one or several active posts.
func ActivityScore(posts int) float64 {
	switch {
	case posts <= 0:
		return 0
	case posts == 1:
		return 0.5
	default:
		return 1
	}
}

// UpgradeMultiplier is the product of magnitudes of purchased upgrades of kind.
func UpgradeMultiplier(upgrades []model.Upgrade, kind model.EffectKind) float64 {
	m := 1.0
	for _, u := range upgrades {
		if u.Purchased && u.Effect.Kind == kind {
			m *= u.Effect.Magnitude
		}
	}
	return m
}

// LocalEventMultiplier is the product of events targeting the subreddit.
func LocalEventMultiplier(events []model.Event, subredditID string) float64 {
	m := 1.0
	for _, e := range events {
		if e.Scope == model.ScopeLocal && e.TargetID == subredditID {
			m *= e.Multiplier
		}
	}
	return m
}

// GlobalEventMultiplier is the product of global-scope events.
func GlobalEventMultiplier(events []model.Event) float64 {
	m := 1.0
	for _, e := range events {
		if e.Scope == model.ScopeGlobal {
			m *= e.Multiplier
		}
	}
	return m
}

// Synergy is 1 + 0.05 per active post in other subreddits of the same category.
func Synergy(subs []model.Subreddit, posts []model.Post, self model.Subreddit) float64 {
	category := make(map[string]string, len(subs))
	for _, s := range subs {
		category[s.ID] = s.Category
	}
	n := 0
	for _, p := range posts {
		if p.SubredditID != self.ID && category[p.SubredditID] == self.Category {
			n++
		}
	}
	return 1 + SynergyPerPost*float64(n)
}

// GlobalMultiplier is purchased passive upgrades × global events.
func GlobalMultiplier(upgrades []model.Upgrade, events []model.Event) float64 {
	return UpgradeMultiplier(upgrades, model.EffectPassive) * GlobalEventMultiplier(events)
}

// Calculate produces the full income breakdown.
func Calculate(in Inputs) model.Breakdown {
	postCount := make(map[string]int)
	postKPS := make(map[string]float64)
	category := make(map[string]string, len(in.Subreddits))
	for _, s := range in.Subreddits {
		category[s.ID] = s.Category
	}
	perCategory := make(map[string]int)

	contentKPS := 0.0
	for _, p := range in.Posts {
		r := content.RateAt(p, in.Now)
		postCount[p.SubredditID]++
		postKPS[p.SubredditID] += r
		contentKPS += r
		if c, ok := category[p.SubredditID]; ok {
			perCategory[c]++
		}
	}

	b := model.Breakdown{
		Subreddits:     make([]model.SubredditBreakdown, 0, len(in.Subreddits)),
		ContentKPS:     contentKPS,
		UpgradeMul:     UpgradeMultiplier(in.Upgrades, model.EffectPassive),
		GlobalEventMul: GlobalEventMultiplier(in.Events),
	}

	for _, s := range in.Subreddits {
		if s.Level <= 0 {
			continue
		}
		n := postCount[s.ID]
		sb := model.SubredditBreakdown{
			ID:          s.ID,
			Name:        s.Name,
			Level:       s.Level,
			BaseKPS:     s.BaseKPS,
			Multiplier:  s.Multiplier,
			ActivePosts: n,
			Activity:    ActivityScore(n),
			Seasonal:    Seasonal(s, in.Now),
			Fatigue:     FatigueMultiplier(s.Fatigue),
			Health:      HealthMultiplier(s.Health),
			Synergy:     1 + SynergyPerPost*float64(perCategory[s.Category]-n),
			LocalEvent:  LocalEventMultiplier(in.Events, s.ID),
			PostKPS:     postKPS[s.ID],
		}
		sb.PassiveKPS = s.BaseKPS * float64(s.Level) * s.Multiplier * sb.Activity *
			sb.Seasonal * sb.Fatigue * sb.Health * sb.Synergy * sb.LocalEvent
		b.PassiveKPS += sb.PassiveKPS
		b.Subreddits = append(b.Subreddits, sb)
	}

	b.GlobalMultiplier = b.UpgradeMul * b.GlobalEventMul
	b.TotalKPS = (b.PassiveKPS + b.ContentKPS) * b.GlobalMultiplier
	return b
}

// TotalKPS is a shortcut for Calculate(in).TotalKPS.
func TotalKPS(in Inputs) float64 {
	return Calculate(in).TotalKPS
}
