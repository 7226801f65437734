package action

import (
	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/model"
)

// Upgrade buys a timed global upgrade.
type Upgrade struct{}

func (Upgrade) Type() model.ActionType { return model.ActionUpgrade }

func (Upgrade) EnergyCost() float64 { return 2 }

func (Upgrade) DurationRange() (float64, float64) { return 2, 5 }

func (Upgrade) Prepare(s *model.State, env game.Env, p model.ActionPayload) (game.Plan, game.Rejection) {
	u := s.Upgrade(p.UpgradeID)
	if u == nil {
		return game.Plan{}, game.RejectNoTarget
	}
	if u.Tier > env.Tier.Level {
		return game.Plan{}, game.RejectTierLocked
	}
	if u.Purchased {
		return game.Plan{}, game.RejectActive
	}
	cost := catalog.UpgradeCost(*u)
	if s.Karma < cost {
		return game.Plan{}, game.RejectFunds
	}
	return game.Plan{
		Payload: model.ActionPayload{UpgradeID: u.ID},
		Label:   "Buying " + u.Name,
		Cost:    cost,
	}, game.Accepted
}

func (Upgrade) Complete(s *model.State, env game.Env, p model.ActionPayload) []game.Effect {
	u := s.Upgrade(p.UpgradeID)
	if u == nil {
		return nil
	}
	return []game.Effect{
		game.ActivateUpgrade{UpgradeID: u.ID},
		game.Announce{Notice: game.Notice{Kind: game.NoticeUpgrade, Message: u.Name + " activated", Target: u.ID, At: env.Now}},
	}
}
