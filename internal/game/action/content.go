package action

import (
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/content"
	"karma-tycoon/internal/game/economy"
	"karma-tycoon/internal/model"
)

// Content creates a post in an unlocked subreddit.
type Content struct{}

func (Content) Type() model.ActionType { return model.ActionContent }

func (Content) EnergyCost() float64 { return 1 }

func (Content) DurationRange() (float64, float64) { return 1, 5 }

// Prepare requires a free post slot. Without an explicit target a random
// unlocked subreddit is picked.
func (Content) Prepare(s *model.State, env game.Env, p model.ActionPayload) (game.Plan, game.Rejection) {
	if len(s.Posts) >= env.Tier.MaxPosts {
		return game.Plan{}, game.RejectNoSlot
	}

	var target *model.Subreddit
	if p.SubredditID != "" {
		target = s.Subreddit(p.SubredditID)
		if target == nil || !target.Unlocked {
			return game.Plan{}, game.RejectNoTarget
		}
	} else {
		var open []int
		for i := range s.Subreddits {
			if s.Subreddits[i].Unlocked {
				open = append(open, i)
			}
		}
		if len(open) == 0 {
			return game.Plan{}, game.RejectNoTarget
		}
		target = &s.Subreddits[open[env.Rand.Intn(len(open))]]
	}

	return game.Plan{
		Payload: model.ActionPayload{
			SubredditID: target.ID,
			Quality:     content.NormalizeQuality(p.Quality),
		},
		Label: "Posting to " + target.Name,
	}, game.Accepted
}

// Complete spawns the post with a peak derived from the current modifiers.
func (Content) Complete(s *model.State, env game.Env, p model.ActionPayload) []game.Effect {
	sub := s.Subreddit(p.SubredditID)
	if sub == nil {
		return nil
	}
	post := content.New(content.Params{
		SubredditID:   sub.ID,
		BaseKPS:       sub.BaseKPS,
		Level:         sub.Level,
		Multiplier:    sub.Multiplier,
		ContentMul:    economy.UpgradeMultiplier(s.Upgrades, model.EffectContent),
		LocalEventMul: economy.LocalEventMultiplier(s.Events, sub.ID),
		FatigueMul:    economy.FatigueMultiplier(sub.Fatigue),
		Seasonal:      economy.Seasonal(*sub, env.Now),
		HealthMul:     economy.HealthMultiplier(sub.Health),
		TierPower:     env.Tier.ContentPower,
		Quality:       p.Quality,
	}, env.Rand, env.Now)

	return []game.Effect{
		game.AddPost{Post: post},
		game.Announce{Notice: game.Notice{Kind: game.NoticeContent, Message: "New post in " + sub.Name, Target: sub.ID, At: env.Now}},
	}
}
