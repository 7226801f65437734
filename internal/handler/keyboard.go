package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"karma-tycoon/internal/format"
	"karma-tycoon/internal/game/engine"
)

// Callback data prefixes
const (
	CallbackPost     = "tyc_post:" // tyc_post:r-funny
	CallbackLevelUp  = "tyc_lvl:"  // tyc_lvl:r-funny
	CallbackUpgrade  = "tyc_upg:"  // tyc_upg:better-titles
	CallbackModQueue = "tyc_mq:"   // tyc_mq:r-funny
	CallbackRefresh  = "tyc_refresh"
)

// BuildStatusPanel creates the dashboard keyboard: one row per unlocked
// subreddit with post, level and mod queue buttons.
func BuildStatusPanel(v *engine.View) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row

	if !v.State.GameOver {
		for _, sub := range v.State.Subreddits {
			if !sub.Unlocked {
				continue
			}
			name := strings.TrimPrefix(sub.Name, "r/")
			rows = append(rows, markup.Row(
				markup.Data("📝 "+name, CallbackPost+sub.ID),
				markup.Data("⬆️ "+format.Karma(v.LevelUpCosts[sub.ID]), CallbackLevelUp+sub.ID),
				markup.Data(fmt.Sprintf("🧹 %.0f%%", sub.Health), CallbackModQueue+sub.ID),
			))
		}
	}
	rows = append(rows, markup.Row(markup.Data("🔄 Refresh", CallbackRefresh)))

	markup.Inline(rows...)
	return markup
}

// BuildUpgradePanel lists affordable upgrades, two per row.
func BuildUpgradePanel(v *engine.View) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row

	var current []tele.Btn
	for _, u := range v.State.Upgrades {
		if !v.CanBuyUpgrade(u.ID) {
			continue
		}
		current = append(current, markup.Data(
			fmt.Sprintf("%s (%s)", u.Name, format.Karma(v.UpgradeCosts[u.ID])),
			CallbackUpgrade+u.ID,
		))
		if len(current) == 2 {
			rows = append(rows, markup.Row(current...))
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, markup.Row(current...))
	}
	rows = append(rows, markup.Row(markup.Data("🔄 Refresh", CallbackRefresh)))

	markup.Inline(rows...)
	return markup
}

// ParseCallback splits callback data into its prefix and argument.
// Telebot prefixes unique-less data buttons with "\f".
func ParseCallback(data string) (prefix, arg string) {
	data = strings.TrimPrefix(data, "\f")
	if data == CallbackRefresh {
		return CallbackRefresh, ""
	}
	for _, p := range []string{CallbackPost, CallbackLevelUp, CallbackUpgrade, CallbackModQueue} {
		if strings.HasPrefix(data, p) {
			return p, strings.TrimPrefix(data, p)
		}
	}
	return "", data
}
