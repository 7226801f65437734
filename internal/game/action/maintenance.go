package action

import (
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/model"
)

// HealthRestore is the health one maintenance action gives back.
const HealthRestore = 20.0

// Maintenance clears a subreddit's mod queue, restoring health.
type Maintenance struct{}

func (Maintenance) Type() model.ActionType { return model.ActionMaintenance }

func (Maintenance) EnergyCost() float64 { return 2 }

func (Maintenance) DurationRange() (float64, float64) { return 5, 15 }

// Prepare targets the given subreddit, or the unhealthiest unlocked one.
func (Maintenance) Prepare(s *model.State, env game.Env, p model.ActionPayload) (game.Plan, game.Rejection) {
	var target *model.Subreddit
	if p.SubredditID != "" {
		target = s.Subreddit(p.SubredditID)
	} else {
		for i := range s.Subreddits {
			sub := &s.Subreddits[i]
			if sub.Unlocked && (target == nil || sub.Health < target.Health) {
				target = sub
			}
		}
	}
	if target == nil || !target.Unlocked {
		return game.Plan{}, game.RejectNoTarget
	}
	if target.Health >= game.MaxHealth {
		return game.Plan{}, game.RejectHealthy
	}
	return game.Plan{
		Payload: model.ActionPayload{SubredditID: target.ID},
		Label:   "Clearing mod queue in " + target.Name,
	}, game.Accepted
}

func (Maintenance) Complete(s *model.State, env game.Env, p model.ActionPayload) []game.Effect {
	sub := s.Subreddit(p.SubredditID)
	if sub == nil {
		return nil
	}
	return []game.Effect{
		game.RestoreHealth{SubredditID: sub.ID, Amount: HealthRestore},
		game.Announce{Notice: game.Notice{Kind: game.NoticeModQueue, Message: "Mod queue cleared in " + sub.Name, Target: sub.ID, At: env.Now}},
	}
}
