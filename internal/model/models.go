// Package model defines the data models for the karma tycoon simulation.
package model

import (
	"encoding/json"
	"math"
	"time"
)

// Subreddit is a passive income source. A subreddit with Unlocked == false
// always has Level == 0.
type Subreddit struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Tier           int     `json:"tier"`
	BaseKPS        float64 `json:"base_kps"`
	BaseCost       float64 `json:"base_cost"`
	Level          int     `json:"level"`
	Multiplier     float64 `json:"multiplier"`
	Unlocked       bool    `json:"unlocked"`
	ActivityPeriod float64 `json:"activity_period"` // seconds
	ActivityPhase  float64 `json:"activity_phase"`  // radians
	Fatigue        float64 `json:"fatigue"`
	Health         float64 `json:"health"`
}

// Post is an ephemeral content unit with a rise-then-decay income curve.
type Post struct {
	ID          string    `json:"id"`
	SubredditID string    `json:"subreddit_id"`
	CreatedAt   time.Time `json:"created_at"`
	PeakKPS     float64   `json:"peak_kps"`
	PeakTime    float64   `json:"peak_time"` // seconds after creation
	Duration    float64   `json:"duration"`  // seconds after creation
	K           float64   `json:"k"`
}

// EffectKind tags what an upgrade's magnitude modifies.
type EffectKind string

// Upgrade effect kinds.
const (
	EffectPassive        EffectKind = "passive"         // scales total income
	EffectContent        EffectKind = "content"         // scales new post peaks
	EffectEventFrequency EffectKind = "event-frequency" // scales viral spawn chance
	EffectEventDuration  EffectKind = "event-duration"  // scales viral duration
	EffectEventPower     EffectKind = "event-power"     // scales viral multiplier
	EffectEnergyRecharge EffectKind = "energy-recharge" // scales energy regeneration
)

// Valid reports whether k is a known effect kind.
func (k EffectKind) Valid() bool {
	switch k {
	case EffectPassive, EffectContent, EffectEventFrequency, EffectEventDuration, EffectEventPower, EffectEnergyRecharge:
		return true
	}
	return false
}

// UpgradeEffect describes what an upgrade does while purchased.
type UpgradeEffect struct {
	Kind      EffectKind `json:"kind"`
	Magnitude float64    `json:"magnitude"`
}

// Upgrade is a timed global upgrade. Purchased implies Remaining > 0.
type Upgrade struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Tier        int           `json:"tier"`
	BaseCost    float64       `json:"base_cost"`
	Effect      UpgradeEffect `json:"effect"`
	Level       int           `json:"level"`
	Purchased   bool          `json:"purchased"`
	Duration    float64       `json:"duration"`
	Remaining   float64       `json:"remaining"`
}

// Polarity distinguishes boosts from crises.
type Polarity string

// Event polarities.
const (
	PolarityBoost  Polarity = "boost"
	PolarityCrisis Polarity = "crisis"
)

// Scope says whether an event hits one subreddit or all income.
type Scope string

// Event scopes.
const (
	ScopeLocal  Scope = "local"
	ScopeGlobal Scope = "global"
)

// Event is a timed multiplicative modifier. TargetID is empty for global events.
type Event struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	TargetID      string   `json:"target_id,omitempty"`
	Multiplier    float64  `json:"multiplier"`
	Duration      float64  `json:"duration"`
	Remaining     float64  `json:"remaining"`
	Polarity      Polarity `json:"polarity"`
	Scope         Scope    `json:"scope"`
	HealthPenalty float64  `json:"health_penalty,omitempty"`
}

// TierInfo is a progression bracket over lifetime karma: [MinKarma, MaxKarma).
type TierInfo struct {
	Level        int     `json:"tier"`
	Name         string  `json:"name"`
	MinKarma     float64 `json:"min_karma"`
	MaxKarma     float64 `json:"max_karma"`
	MaxPosts     int     `json:"max_posts"`
	MaxEnergy    float64 `json:"max_energy"`
	RechargeRate float64 `json:"recharge_rate"` // seconds per energy point
	ContentPower float64 `json:"content_power"`
	EnergyScale  float64 `json:"energy_scale"` // action energy cost factor
}

// Contains reports whether lifetime karma falls inside the bracket.
func (t TierInfo) Contains(lifetime float64) bool {
	return lifetime >= t.MinKarma && (lifetime < t.MaxKarma || math.IsInf(t.MaxKarma, 1))
}

// MarshalJSON encodes an open-ended upper bound as null.
func (t TierInfo) MarshalJSON() ([]byte, error) {
	type plain TierInfo
	out := struct {
		plain
		MaxKarma *float64 `json:"max_karma"`
	}{plain: plain(t)}
	if !math.IsInf(t.MaxKarma, 1) {
		out.MaxKarma = &t.MaxKarma
	}
	return json.Marshal(out)
}

// ActionType identifies a player action.
type ActionType string

// Action types.
const (
	ActionContent     ActionType = "content"
	ActionUpgrade     ActionType = "upgrade"
	ActionLevelUp     ActionType = "levelup"
	ActionMaintenance ActionType = "maintenance"
)

// ActionPayload carries the target of an action, resolved when it starts.
type ActionPayload struct {
	SubredditID string  `json:"subreddit_id,omitempty"`
	UpgradeID   string  `json:"upgrade_id,omitempty"`
	Quality     float64 `json:"quality,omitempty"`
}

// ActiveAction is the single action in flight.
type ActiveAction struct {
	Type      ActionType    `json:"type"`
	Label     string        `json:"label"`
	Duration  float64       `json:"duration"`
	Remaining float64       `json:"remaining"`
	Payload   ActionPayload `json:"payload"`
}

// Progress returns completion in [0,1].
func (a ActiveAction) Progress() float64 {
	if a.Duration <= 0 {
		return 1
	}
	p := 1 - a.Remaining/a.Duration
	return math.Max(0, math.Min(1, p))
}

// Candle is one OHLC bucket of total KPS. Volume is karma flushed while open.
type Candle struct {
	Bucket int64   `json:"bucket"`
	Time   int64   `json:"time"` // bucket start, unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// SubredditBreakdown attributes one subreddit's income. Figures are before
// global scaling.
type SubredditBreakdown struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Level       int     `json:"level"`
	BaseKPS     float64 `json:"base_kps"`
	Multiplier  float64 `json:"multiplier"`
	ActivePosts int     `json:"active_posts"`
	Activity    float64 `json:"activity"`
	Seasonal    float64 `json:"seasonal"`
	Fatigue     float64 `json:"fatigue"`
	Health      float64 `json:"health"`
	Synergy     float64 `json:"synergy"`
	LocalEvent  float64 `json:"local_event"`
	PassiveKPS  float64 `json:"passive_kps"`
	PostKPS     float64 `json:"post_kps"`
}

// Breakdown is the full income attribution for one instant.
type Breakdown struct {
	Subreddits       []SubredditBreakdown `json:"subreddits"`
	PassiveKPS       float64              `json:"passive_kps"`
	ContentKPS       float64              `json:"content_kps"`
	UpgradeMul       float64              `json:"upgrade_multiplier"`
	GlobalEventMul   float64              `json:"global_event_multiplier"`
	GlobalMultiplier float64              `json:"global_multiplier"`
	TotalKPS         float64              `json:"total_kps"`
}

// State is the aggregate simulation state. It is owned by a single engine.
type State struct {
	Karma         float64 `json:"karma"`
	LifetimeKarma float64 `json:"lifetime_karma"`
	Energy        float64 `json:"energy"`
	Accumulator   float64 `json:"accumulator"`
	Tier          int     `json:"tier"`

	LastFlush time.Time `json:"last_flush"`
	GameOver  bool      `json:"game_over"`
	Grace     float64   `json:"grace"`
	GraceUsed bool      `json:"grace_used"`

	Subreddits []Subreddit    `json:"subreddits"`
	Upgrades   []Upgrade      `json:"upgrades"`
	Posts      []Post         `json:"posts"`
	Events     []Event        `json:"events"`
	Action     *ActiveAction `json:"action,omitempty"`

	Breakdown      Breakdown `json:"breakdown"`
	ChartTimeframe int       `json:"chart_timeframe"`
	History        []Candle  `json:"history"`
	Candle         *Candle   `json:"candle,omitempty"`
}

// SubredditIndex returns the index of the subreddit with id, or -1.
func (s *State) SubredditIndex(id string) int {
	for i := range s.Subreddits {
		if s.Subreddits[i].ID == id {
			return i
		}
	}
	return -1
}

// UpgradeIndex returns the index of the upgrade with id, or -1.
func (s *State) UpgradeIndex(id string) int {
	for i := range s.Upgrades {
		if s.Upgrades[i].ID == id {
			return i
		}
	}
	return -1
}

// Subreddit returns a pointer to the subreddit with id, or nil.
func (s *State) Subreddit(id string) *Subreddit {
	if i := s.SubredditIndex(id); i >= 0 {
		return &s.Subreddits[i]
	}
	return nil
}

// Upgrade returns a pointer to the upgrade with id, or nil.
func (s *State) Upgrade(id string) *Upgrade {
	if i := s.UpgradeIndex(id); i >= 0 {
		return &s.Upgrades[i]
	}
	return nil
}

// PostsIn counts active posts in a subreddit.
func (s *State) PostsIn(subredditID string) int {
	n := 0
	for _, p := range s.Posts {
		if p.SubredditID == subredditID {
			n++
		}
	}
	return n
}

// HasPositiveEvent reports whether a boost already targets the subreddit.
func (s *State) HasPositiveEvent(subredditID string) bool {
	for _, e := range s.Events {
		if e.TargetID == subredditID && e.Polarity == PolarityBoost {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.Subreddits = append([]Subreddit(nil), s.Subreddits...)
	c.Upgrades = append([]Upgrade(nil), s.Upgrades...)
	c.Posts = append([]Post(nil), s.Posts...)
	c.Events = append([]Event(nil), s.Events...)
	c.History = append([]Candle(nil), s.History...)
	c.Breakdown.Subreddits = append([]SubredditBreakdown(nil), s.Breakdown.Subreddits...)
	if s.Action != nil {
		a := *s.Action
		c.Action = &a
	}
	if s.Candle != nil {
		cd := *s.Candle
		c.Candle = &cd
	}
	return &c
}
