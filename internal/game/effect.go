package game

import (
	"math"
	"time"

	"karma-tycoon/internal/game/content"
	"karma-tycoon/internal/model"
)

// Decay rates, per second.
const (
	FatigueDecay        = 0.05
	HealthDecayBase     = 0.1
	HealthDecayPerLevel = 0.01
	MaxHealth           = 100.0
)

// milestones double a subreddit's multiplier when its level reaches them.
var milestones = map[int]bool{25: true, 50: true, 100: true}

// IsMilestone reports whether reaching level doubles the multiplier.
func IsMilestone(level int) bool {
	return milestones[level]
}

// Effect is a decided state transition. Apply is the only place state changes.
type Effect interface {
	Apply(s *model.State)
}

// ApplyAll applies effects in order.
func ApplyAll(s *model.State, effects []Effect) {
	for _, e := range effects {
		e.Apply(s)
	}
}

// Announce carries a notice. It does not touch state.
type Announce struct {
	Notice Notice
}

// Apply does nothing.
func (Announce) Apply(*model.State) {}

// SpendEnergy deducts energy, never below zero. A negative amount is ignored.
type SpendEnergy struct {
	Amount float64
}

func (e SpendEnergy) Apply(s *model.State) {
	s.Energy = math.Max(0, s.Energy-math.Max(0, e.Amount))
}

// SpendKarma deducts spendable karma.
type SpendKarma struct {
	Amount float64
}

func (e SpendKarma) Apply(s *model.State) {
	s.Karma -= e.Amount
}

// BeginAction puts an action in flight.
type BeginAction struct {
	Action model.ActiveAction
}

func (e BeginAction) Apply(s *model.State) {
	a := e.Action
	s.Action = &a
}

// ProgressAction counts the action in flight down.
type ProgressAction struct {
	Delta float64
}

func (e ProgressAction) Apply(s *model.State) {
	if s.Action != nil {
		s.Action.Remaining = math.Max(0, s.Action.Remaining-e.Delta)
	}
}

// FinishAction clears the action in flight.
type FinishAction struct{}

func (FinishAction) Apply(s *model.State) {
	s.Action = nil
}

// AddPost spawns a post and raises its subreddit's fatigue.
type AddPost struct {
	Post model.Post
}

func (e AddPost) Apply(s *model.State) {
	s.Posts = append(s.Posts, e.Post)
	if sub := s.Subreddit(e.Post.SubredditID); sub != nil {
		sub.Fatigue = content.AddFatigue(sub.Fatigue)
	}
}

// ActivateUpgrade marks an upgrade purchased for its full duration and bumps
// its repeat-buy level.
type ActivateUpgrade struct {
	UpgradeID string
}

func (e ActivateUpgrade) Apply(s *model.State) {
	u := s.Upgrade(e.UpgradeID)
	if u == nil {
		return
	}
	u.Purchased = true
	u.Remaining = u.Duration
	u.Level++
}

// LevelUp raises a subreddit's level, unlocking it on the first level.
type LevelUp struct {
	SubredditID string
}

func (e LevelUp) Apply(s *model.State) {
	sub := s.Subreddit(e.SubredditID)
	if sub == nil {
		return
	}
	sub.Level++
	sub.Unlocked = true
	if IsMilestone(sub.Level) {
		sub.Multiplier *= 2
	}
}

// RestoreHealth adds health to a subreddit, capped at MaxHealth.
type RestoreHealth struct {
	SubredditID string
	Amount      float64
}

func (e RestoreHealth) Apply(s *model.State) {
	if sub := s.Subreddit(e.SubredditID); sub != nil {
		sub.Health = math.Min(MaxHealth, sub.Health+e.Amount)
	}
}

// SpawnEvent activates an event and applies its one-shot health penalty.
type SpawnEvent struct {
	Event model.Event
}

func (e SpawnEvent) Apply(s *model.State) {
	s.Events = append(s.Events, e.Event)
	if e.Event.HealthPenalty > 0 && e.Event.TargetID != "" {
		if sub := s.Subreddit(e.Event.TargetID); sub != nil {
			sub.Health = math.Max(0, sub.Health-e.Event.HealthPenalty)
		}
	}
}

// AgeEvents counts every event down and drops the expired ones.
type AgeEvents struct {
	Delta float64
}

func (e AgeEvents) Apply(s *model.State) {
	kept := s.Events[:0]
	for _, ev := range s.Events {
		ev.Remaining -= e.Delta
		if ev.Remaining > 0 {
			kept = append(kept, ev)
		}
	}
	s.Events = kept
}

// AgeUpgrades counts purchased upgrades down. Expiry clears Purchased and
// keeps Level.
type AgeUpgrades struct {
	Delta float64
}

func (e AgeUpgrades) Apply(s *model.State) {
	for i := range s.Upgrades {
		u := &s.Upgrades[i]
		if !u.Purchased {
			continue
		}
		u.Remaining -= e.Delta
		if u.Remaining <= 0 {
			u.Remaining = 0
			u.Purchased = false
		}
	}
}

// ExpirePosts drops posts past their duration.
type ExpirePosts struct {
	Now time.Time
}

func (e ExpirePosts) Apply(s *model.State) {
	kept := s.Posts[:0]
	for _, p := range s.Posts {
		if !content.Expired(p, e.Now) {
			kept = append(kept, p)
		}
	}
	s.Posts = kept
}

// Decay lowers fatigue everywhere and health on unlocked subreddits.
type Decay struct {
	Delta float64
}

func (e Decay) Apply(s *model.State) {
	for i := range s.Subreddits {
		sub := &s.Subreddits[i]
		sub.Fatigue = math.Max(0, sub.Fatigue-FatigueDecay*e.Delta)
		if sub.Unlocked {
			rate := HealthDecayBase + HealthDecayPerLevel*float64(sub.Level)
			sub.Health = math.Max(0, sub.Health-rate*e.Delta)
		}
	}
}

// Accrue adds income to the sub-second accumulator.
type Accrue struct {
	Amount float64
}

func (e Accrue) Apply(s *model.State) {
	s.Accumulator += e.Amount
}
