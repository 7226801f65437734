// Package action implements the player actions and the single-slot action
// machine. At most one action is in flight; starting charges energy and any
// karma cost immediately, and completion runs the handler's effects once.
package action

import (
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/model"
)

// NewRegistry returns a registry holding the four standard actions.
func NewRegistry() *game.Registry {
	r := game.NewRegistry()
	for _, a := range []game.Action{Content{}, Upgrade{}, LevelUp{}, Maintenance{}} {
		_ = r.Register(a)
	}
	return r
}

// Machine serializes player actions behind a single busy slot.
type Machine struct {
	registry *game.Registry
}

// NewMachine creates a machine over the given handlers.
func NewMachine(registry *game.Registry) *Machine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Machine{registry: registry}
}

// Registry returns the handler registry.
func (m *Machine) Registry() *game.Registry {
	return m.registry
}

// EnergyCost returns the tier-scaled energy cost of an action type.
func (m *Machine) EnergyCost(t model.ActionType, tier model.TierInfo) float64 {
	h, ok := m.registry.Get(t)
	if !ok {
		return 0
	}
	return h.EnergyCost() * tier.EnergyScale
}

// Start decides the effects of starting an action, or why it cannot start.
// A rejected start yields no effects.
func (m *Machine) Start(s *model.State, env game.Env, t model.ActionType, p model.ActionPayload) ([]game.Effect, game.Rejection) {
	if s.GameOver {
		return nil, game.RejectGameOver
	}
	if s.Action != nil {
		return nil, game.RejectBusy
	}
	h, ok := m.registry.Get(t)
	if !ok {
		return nil, game.RejectUnknown
	}
	energy := h.EnergyCost() * env.Tier.EnergyScale
	if s.Energy < energy {
		return nil, game.RejectEnergy
	}
	plan, rej := h.Prepare(s, env, p)
	if !rej.OK() {
		return nil, rej
	}

	lo, hi := h.DurationRange()
	duration := lo + env.Rand.Float64()*(hi-lo)

	effects := []game.Effect{game.SpendEnergy{Amount: energy}}
	if plan.Cost > 0 {
		effects = append(effects, game.SpendKarma{Amount: plan.Cost})
	}
	effects = append(effects, game.BeginAction{Action: model.ActiveAction{
		Type:      t,
		Label:     plan.Label,
		Duration:  duration,
		Remaining: duration,
		Payload:   plan.Payload,
	}})
	return effects, game.Accepted
}

// Advance decides the effects of delta seconds passing for the action in
// flight: either progress, or completion followed by clearing the slot.
func (m *Machine) Advance(s *model.State, env game.Env, delta float64) []game.Effect {
	a := s.Action
	if a == nil {
		return nil
	}
	if a.Remaining-delta > 0 {
		return []game.Effect{game.ProgressAction{Delta: delta}}
	}

	var effects []game.Effect
	if h, ok := m.registry.Get(a.Type); ok {
		effects = h.Complete(s, env, a.Payload)
	}
	return append(effects, game.FinishAction{})
}
