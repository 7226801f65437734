// Package persist converts simulation state to and from a versioned snapshot
// and reconciles saved progress against the current catalog.
package persist

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"karma-tycoon/internal/model"
)

// Version is the current snapshot schema version.
const Version = 2

// SubredditProgress is the mutable part of a subreddit. Pointer fields
// distinguish "absent" from zero.
type SubredditProgress struct {
	ID         string   `json:"id"`
	Level      int      `json:"level"`
	Multiplier *float64 `json:"multiplier,omitempty"`
	Unlocked   bool     `json:"unlocked"`
	Fatigue    float64  `json:"fatigue"`
	Health     *float64 `json:"health,omitempty"`
}

// UpgradeProgress is the mutable part of an upgrade.
type UpgradeProgress struct {
	ID        string  `json:"id"`
	Level     int     `json:"level"`
	Purchased bool    `json:"purchased"`
	Remaining float64 `json:"remaining"`
}

// Snapshot is the persisted form of a game. Immutable catalog fields are not
// stored; they come from the catalog on load.
type Snapshot struct {
	Version       int       `json:"version"`
	SavedAt       time.Time `json:"saved_at"`
	Karma         float64   `json:"karma"`
	LifetimeKarma float64   `json:"lifetime_karma"`
	Energy        *float64  `json:"energy,omitempty"`
	Accumulator   float64   `json:"accumulator"`
	GameOver      bool      `json:"game_over"`
	Grace         float64   `json:"grace"`
	GraceUsed     bool      `json:"grace_used"`

	Subreddits []SubredditProgress `json:"subreddits"`
	Upgrades   []UpgradeProgress   `json:"upgrades"`
	Posts      []model.Post        `json:"posts"`
	Events     []model.Event       `json:"events"`
	Action     *model.ActiveAction `json:"action,omitempty"`

	ChartTimeframe int            `json:"chart_timeframe"`
	History        []model.Candle `json:"history"`
	Candle         *model.Candle  `json:"candle,omitempty"`
}

// FromState captures every mutable field of s.
func FromState(s *model.State, now time.Time) *Snapshot {
	energy := s.Energy
	snap := &Snapshot{
		Version:        Version,
		SavedAt:        now,
		Karma:          s.Karma,
		LifetimeKarma:  s.LifetimeKarma,
		Energy:         &energy,
		Accumulator:    s.Accumulator,
		GameOver:       s.GameOver,
		Grace:          s.Grace,
		GraceUsed:      s.GraceUsed,
		Subreddits:     make([]SubredditProgress, 0, len(s.Subreddits)),
		Upgrades:       make([]UpgradeProgress, 0, len(s.Upgrades)),
		Posts:          append([]model.Post(nil), s.Posts...),
		Events:         append([]model.Event(nil), s.Events...),
		ChartTimeframe: s.ChartTimeframe,
		History:        append([]model.Candle(nil), s.History...),
	}
	for _, sub := range s.Subreddits {
		mul, health := sub.Multiplier, sub.Health
		snap.Subreddits = append(snap.Subreddits, SubredditProgress{
			ID:         sub.ID,
			Level:      sub.Level,
			Multiplier: &mul,
			Unlocked:   sub.Unlocked,
			Fatigue:    sub.Fatigue,
			Health:     &health,
		})
	}
	for _, u := range s.Upgrades {
		snap.Upgrades = append(snap.Upgrades, UpgradeProgress{
			ID:        u.ID,
			Level:     u.Level,
			Purchased: u.Purchased,
			Remaining: u.Remaining,
		})
	}
	if s.Action != nil {
		a := *s.Action
		snap.Action = &a
	}
	if s.Candle != nil {
		c := *s.Candle
		snap.Candle = &c
	}
	return snap
}

// Encode writes the snapshot as JSON.
func Encode(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Marshal returns the snapshot as JSON bytes.
func Marshal(snap *Snapshot) ([]byte, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return b, nil
}

// Unmarshal parses a snapshot. Unknown fields are ignored.
func Unmarshal(b []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.Version == 0 {
		snap.Version = 1
	}
	return &snap, nil
}
