package action

import (
	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/model"
)

// LevelUp raises a subreddit's level. The first level unlocks it.
type LevelUp struct{}

func (LevelUp) Type() model.ActionType { return model.ActionLevelUp }

func (LevelUp) EnergyCost() float64 { return 3 }

func (LevelUp) DurationRange() (float64, float64) { return 3, 10 }

func (LevelUp) Prepare(s *model.State, env game.Env, p model.ActionPayload) (game.Plan, game.Rejection) {
	sub := s.Subreddit(p.SubredditID)
	if sub == nil {
		return game.Plan{}, game.RejectNoTarget
	}
	if sub.Tier > env.Tier.Level {
		return game.Plan{}, game.RejectTierLocked
	}
	cost := catalog.LevelUpCost(*sub)
	if s.Karma < cost {
		return game.Plan{}, game.RejectFunds
	}
	label := "Leveling up " + sub.Name
	if sub.Level == 0 {
		label = "Unlocking " + sub.Name
	}
	return game.Plan{
		Payload: model.ActionPayload{SubredditID: sub.ID},
		Label:   label,
		Cost:    cost,
	}, game.Accepted
}

func (LevelUp) Complete(s *model.State, env game.Env, p model.ActionPayload) []game.Effect {
	sub := s.Subreddit(p.SubredditID)
	if sub == nil {
		return nil
	}
	n := game.Notice{Kind: game.NoticeLevelUp, Message: sub.Name + " leveled up", Target: sub.ID, At: env.Now}
	if sub.Level == 0 {
		n.Kind = game.NoticeUnlock
		n.Message = sub.Name + " unlocked"
	}
	return []game.Effect{
		game.LevelUp{SubredditID: sub.ID},
		game.Announce{Notice: n},
	}
}
