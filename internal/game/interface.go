// Package game defines the player action interface, the action registry and
// the effects a tick stage can decide.
//
// Every stage of a tick first decides a list of Effect values from the
// current state and then applies them in order. Handlers never mutate state
// directly.
package game

import (
	"math/rand"
	"time"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/model"
)

// Env is the read-only context a handler runs in.
type Env struct {
	Catalog *catalog.Catalog
	Tier    model.TierInfo
	Now     time.Time
	Rand    *rand.Rand
}

// Plan is a validated action ready to start.
type Plan struct {
	Payload model.ActionPayload // target resolved at start time
	Label   string
	Cost    float64 // karma charged at start
}

// Action defines the interface every player action implements. Adding a new
// action type only requires implementing Action and registering it.
type Action interface {
	// Type returns the action's type tag.
	Type() model.ActionType

	// EnergyCost returns the base energy cost before tier scaling.
	EnergyCost() float64

	// DurationRange returns the bounds of the randomized completion delay in seconds.
	DurationRange() (min, max float64)

	// Prepare checks feasibility and resolves the payload target.
	Prepare(s *model.State, env Env, p model.ActionPayload) (Plan, Rejection)

	// Complete decides the effects of a finished action. It runs exactly once.
	Complete(s *model.State, env Env, p model.ActionPayload) []Effect
}
