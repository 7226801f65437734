package persist

import (
	"math"
	"time"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/content"
	"karma-tycoon/internal/model"
)

// Merge rebuilds a state from the catalog, copying saved progress forward by
// id. Entities missing from the snapshot take catalog defaults; saved entities
// missing from the catalog are dropped. A nil snapshot yields a fresh game.
// Merge never fails.
func Merge(cat *catalog.Catalog, snap *Snapshot, now time.Time) *model.State {
	s := cat.NewState()
	s.LastFlush = now
	if snap == nil {
		return s
	}

	subs := make(map[string]SubredditProgress, len(snap.Subreddits))
	for _, p := range snap.Subreddits {
		subs[p.ID] = p
	}
	for i := range s.Subreddits {
		if p, ok := subs[s.Subreddits[i].ID]; ok {
			mergeSubreddit(&s.Subreddits[i], p)
		}
	}

	ups := make(map[string]UpgradeProgress, len(snap.Upgrades))
	for _, p := range snap.Upgrades {
		ups[p.ID] = p
	}
	for i := range s.Upgrades {
		if p, ok := ups[s.Upgrades[i].ID]; ok {
			mergeUpgrade(&s.Upgrades[i], p)
		}
	}

	for _, p := range snap.Posts {
		if s.Subreddit(p.SubredditID) != nil && p.PeakTime > 0 && p.Duration > 0 {
			s.Posts = append(s.Posts, p)
		}
	}
	for _, e := range snap.Events {
		if e.Remaining <= 0 || e.Multiplier < 0 {
			continue
		}
		if e.TargetID != "" && s.Subreddit(e.TargetID) == nil {
			continue
		}
		if e.Scope != model.ScopeGlobal && e.Scope != model.ScopeLocal {
			e.Scope = model.ScopeGlobal
			if e.TargetID != "" {
				e.Scope = model.ScopeLocal
			}
		}
		s.Events = append(s.Events, e)
	}
	if a := snap.Action; a != nil && actionTargetExists(s, *a) {
		act := *a
		act.Remaining = math.Max(0, math.Min(act.Remaining, act.Duration))
		s.Action = &act
	}

	s.Karma = nonNegative(snap.Karma)
	s.LifetimeKarma = math.Max(nonNegative(snap.LifetimeKarma), s.Karma)
	s.Accumulator = nonNegative(snap.Accumulator)
	tier := cat.TierFor(s.LifetimeKarma)
	s.Tier = tier.Level
	if snap.Energy != nil {
		s.Energy = clamp(*snap.Energy, 0, tier.MaxEnergy)
	} else {
		s.Energy = tier.MaxEnergy
	}

	s.GameOver = snap.GameOver
	s.Grace = nonNegative(snap.Grace)
	s.GraceUsed = snap.GraceUsed

	if catalog.ValidTimeframe(snap.ChartTimeframe) {
		s.ChartTimeframe = snap.ChartTimeframe
		s.History = append([]model.Candle(nil), snap.History...)
		if snap.Candle != nil {
			c := *snap.Candle
			s.Candle = &c
		}
	}
	return s
}

func mergeSubreddit(sub *model.Subreddit, p SubredditProgress) {
	if p.Level > 0 {
		sub.Level = p.Level
	}
	sub.Unlocked = sub.Unlocked || p.Unlocked || sub.Level > 0
	if p.Multiplier != nil && *p.Multiplier > 0 {
		sub.Multiplier = *p.Multiplier
	} else {
		sub.Multiplier = milestoneMultiplier(sub.Level)
	}
	sub.Fatigue = clamp(p.Fatigue, 0, content.MaxFatigue)
	if p.Health != nil {
		sub.Health = clamp(*p.Health, 0, game.MaxHealth)
	}
}

func mergeUpgrade(u *model.Upgrade, p UpgradeProgress) {
	if p.Level > 0 {
		u.Level = p.Level
	}
	if p.Purchased && p.Remaining > 0 {
		u.Purchased = true
		u.Remaining = math.Min(p.Remaining, u.Duration)
	}
}

// milestoneMultiplier derives the multiplier a subreddit earns by reaching level.
func milestoneMultiplier(level int) float64 {
	m := 1.0
	for l := 1; l <= level; l++ {
		if game.IsMilestone(l) {
			m *= 2
		}
	}
	return m
}

func actionTargetExists(s *model.State, a model.ActiveAction) bool {
	switch a.Type {
	case model.ActionContent, model.ActionMaintenance:
		sub := s.Subreddit(a.Payload.SubredditID)
		return sub != nil && sub.Unlocked
	case model.ActionLevelUp:
		return s.Subreddit(a.Payload.SubredditID) != nil
	case model.ActionUpgrade:
		return s.Upgrade(a.Payload.UpgradeID) != nil
	}
	return false
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
