package handler

import (
	"fmt"
	"math"
	"strings"

	"karma-tycoon/internal/format"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/engine"
	"karma-tycoon/internal/model"
)

const divider = "━━━━━━━━━━━━━━━\n"

var noticeEmoji = map[game.NoticeKind]string{
	game.NoticeContent:     "📝",
	game.NoticeUpgrade:     "🛠",
	game.NoticeUnlock:      "🔓",
	game.NoticeLevelUp:     "⬆️",
	game.NoticeModQueue:    "🧹",
	game.NoticeViral:       "🚀",
	game.NoticeCrisis:      "🚨",
	game.NoticeEnergyError: "⚡",
	game.NoticeTierUp:      "🏆",
	game.NoticeGameOver:    "💀",
}

// RenderNotice formats a notice for chat.
func RenderNotice(n game.Notice) string {
	emoji, ok := noticeEmoji[n.Kind]
	if !ok {
		emoji = "ℹ️"
	}
	return emoji + " " + n.Message
}

// RenderRejection formats a refused input.
func RenderRejection(rej game.Rejection) string {
	return "❌ " + rej.Message()
}

// RenderStatus is the main dashboard.
func RenderStatus(v *engine.View) string {
	s := v.State
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Tier %d · %s\n", v.Tier.Level, v.Tier.Name)
	b.WriteString(divider)
	fmt.Fprintf(&b, "💰 Karma: %s (lifetime %s)\n", format.Karma(s.Karma), format.Karma(s.LifetimeKarma))
	fmt.Fprintf(&b, "📈 Income: %s\n", format.KPS(v.TotalKPS))
	fmt.Fprintf(&b, "⚡ Energy: %s/%s\n", format.Karma(math.Floor(s.Energy)), format.Karma(v.Tier.MaxEnergy))
	fmt.Fprintf(&b, "📝 Posts: %d/%d\n", len(s.Posts), v.Tier.MaxPosts)

	if a := s.Action; a != nil {
		fmt.Fprintf(&b, "⏳ %s %s %s\n", a.Label, format.Bar(a.Progress(), 10), format.Seconds(a.Remaining))
	}
	for _, ev := range s.Events {
		emoji := "🚀"
		if ev.Polarity == model.PolarityCrisis {
			emoji = "🚨"
		}
		target := "everywhere"
		if ev.TargetID != "" {
			target = displayName(s, ev.TargetID)
		}
		fmt.Fprintf(&b, "%s %s on %s ×%.2f (%s)\n", emoji, ev.Name, target, ev.Multiplier, format.Seconds(ev.Remaining))
	}
	if s.GameOver {
		b.WriteString(divider)
		if s.GraceUsed {
			b.WriteString("💀 GAME OVER · /reset to start again\n")
		} else {
			b.WriteString("💀 GAME OVER · /continue for one grace period\n")
		}
	} else if s.Grace > 0 {
		fmt.Fprintf(&b, "🛡 Grace: %s\n", format.Seconds(s.Grace))
	}
	return b.String()
}

// RenderBreakdown lists income per unlocked subreddit and the global factors.
func RenderBreakdown(v *engine.View) string {
	bd := v.State.Breakdown
	var b strings.Builder
	b.WriteString("📊 Income breakdown\n")
	b.WriteString(divider)
	for _, sb := range bd.Subreddits {
		sub := v.State.Subreddit(sb.ID)
		if sub == nil || !sub.Unlocked {
			continue
		}
		fmt.Fprintf(&b, "%s Lv%d · passive %s · content %s · ❤️ %.0f%%\n",
			sb.Name, sb.Level, format.KPS(sb.PassiveKPS), format.KPS(sb.PostKPS), sb.Health)
	}
	b.WriteString(divider)
	fmt.Fprintf(&b, "Upgrades ×%.2f · Events ×%.2f · Global ×%.2f\n", bd.UpgradeMul, bd.GlobalEventMul, bd.GlobalMultiplier)
	fmt.Fprintf(&b, "Passive %s + Content %s = %s\n", format.KPS(bd.PassiveKPS), format.KPS(bd.ContentKPS), format.KPS(bd.TotalKPS))
	return b.String()
}

// RenderSubreddits lists every subreddit with its next level cost.
func RenderSubreddits(v *engine.View) string {
	var b strings.Builder
	b.WriteString("🗂 Subreddits\n")
	b.WriteString(divider)
	for _, sub := range v.State.Subreddits {
		switch {
		case sub.Tier > v.Tier.Level:
			fmt.Fprintf(&b, "🔒 %s · tier %d\n", sub.Name, sub.Tier)
		case !sub.Unlocked:
			fmt.Fprintf(&b, "⬜ %s · unlock %s\n", sub.Name, format.Karma(v.LevelUpCosts[sub.ID]))
		default:
			mark := "▫️"
			if v.CanLevelUp(sub.ID) {
				mark = "✅"
			}
			fmt.Fprintf(&b, "%s %s Lv%d · next %s\n", mark, sub.Name, sub.Level, format.Karma(v.LevelUpCosts[sub.ID]))
		}
	}
	return b.String()
}

// RenderUpgrades lists upgrades available at the current tier.
func RenderUpgrades(v *engine.View) string {
	var b strings.Builder
	b.WriteString("🛠 Upgrades\n")
	b.WriteString(divider)
	for _, u := range v.State.Upgrades {
		if u.Tier > v.Tier.Level {
			continue
		}
		switch {
		case u.Purchased:
			fmt.Fprintf(&b, "🟢 %s · active %s\n", u.Name, format.Seconds(u.Remaining))
		case v.CanBuyUpgrade(u.ID):
			fmt.Fprintf(&b, "✅ %s (%s) · %s\n", u.Name, u.ID, format.Karma(v.UpgradeCosts[u.ID]))
		default:
			fmt.Fprintf(&b, "▫️ %s (%s) · %s\n", u.Name, u.ID, format.Karma(v.UpgradeCosts[u.ID]))
		}
	}
	return b.String()
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// RenderChart draws candle closes as a sparkline with the latest OHLC.
func RenderChart(candles []model.Candle, timeframe int) string {
	if len(candles) == 0 {
		return "📉 No chart data yet"
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range candles {
		lo = math.Min(lo, c.Close)
		hi = math.Max(hi, c.Close)
	}
	var line strings.Builder
	for _, c := range candles {
		idx := 0
		if hi > lo {
			idx = int((c.Close - lo) / (hi - lo) * float64(len(sparks)-1))
		}
		line.WriteRune(sparks[idx])
	}
	last := candles[len(candles)-1]
	return fmt.Sprintf("📈 KPS · %ds candles\n%s\nO %s H %s L %s C %s · vol %s",
		timeframe, line.String(),
		format.Karma(last.Open), format.Karma(last.High), format.Karma(last.Low), format.Karma(last.Close),
		format.Karma(last.Volume))
}

func displayName(s *model.State, id string) string {
	if sub := s.Subreddit(id); sub != nil {
		return sub.Name
	}
	return id
}
