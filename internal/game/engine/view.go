package engine

import (
	"time"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/model"
)

// View is an immutable read model published after every tick and input.
type View struct {
	At           time.Time                    `json:"at"`
	State        *model.State                 `json:"state"`
	Tier         model.TierInfo               `json:"tier"`
	TotalKPS     float64                      `json:"total_kps"`
	EnergyCosts  map[model.ActionType]float64 `json:"energy_costs"`
	LevelUpCosts map[string]float64           `json:"levelup_costs"`
	UpgradeCosts map[string]float64           `json:"upgrade_costs"`
}

// CanLevelUp reports whether a subreddit's next level is tier-unlocked and
// affordable.
func (v *View) CanLevelUp(id string) bool {
	sub := v.State.Subreddit(id)
	if sub == nil || sub.Tier > v.Tier.Level {
		return false
	}
	return v.State.Karma >= v.LevelUpCosts[id]
}

// CanBuyUpgrade reports whether an upgrade is tier-unlocked, inactive and
// affordable.
func (v *View) CanBuyUpgrade(id string) bool {
	u := v.State.Upgrade(id)
	if u == nil || u.Purchased || u.Tier > v.Tier.Level {
		return false
	}
	return v.State.Karma >= v.UpgradeCosts[id]
}

// Candles returns sealed history followed by the open candle.
func (v *View) Candles() []model.Candle {
	out := append([]model.Candle(nil), v.State.History...)
	if v.State.Candle != nil {
		out = append(out, *v.State.Candle)
	}
	return out
}

// FreeSlots is the number of posts that can still be started.
func (v *View) FreeSlots() int {
	n := v.Tier.MaxPosts - len(v.State.Posts)
	if n < 0 {
		return 0
	}
	return n
}

// View returns the latest published read model.
func (e *Engine) View() *View {
	return e.view.Load()
}

func (e *Engine) publish(now time.Time) {
	s := e.state.Clone()
	tier := e.cat.Tier(s.Tier)
	v := &View{
		At:           now,
		State:        s,
		Tier:         tier,
		TotalKPS:     s.Breakdown.TotalKPS,
		EnergyCosts:  make(map[model.ActionType]float64),
		LevelUpCosts: make(map[string]float64, len(s.Subreddits)),
		UpgradeCosts: make(map[string]float64, len(s.Upgrades)),
	}
	for _, t := range e.machine.Registry().Types() {
		v.EnergyCosts[t] = e.machine.EnergyCost(t, tier)
	}
	for _, sub := range s.Subreddits {
		v.LevelUpCosts[sub.ID] = catalog.LevelUpCost(sub)
	}
	for _, u := range s.Upgrades {
		v.UpgradeCosts[u.ID] = catalog.UpgradeCost(u)
	}
	e.view.Store(v)
}
