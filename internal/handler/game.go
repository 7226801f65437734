// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/format"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/engine"
	"karma-tycoon/internal/model"
	"karma-tycoon/internal/service"
)

const (
	// ArchiveChartLimit is how many archived candles /chart archive draws
	ArchiveChartLimit = 60
	// requestTimeout bounds a single command's round trip to the game loop
	requestTimeout = 5 * time.Second
)

// Game is the game surface the bot drives.
type Game interface {
	View() *engine.View
	Catalog() *catalog.Catalog
	Start(ctx context.Context, t model.ActionType, p model.ActionPayload) (game.Rejection, error)
	Continue(ctx context.Context) (game.Rejection, error)
	Reset(ctx context.Context) error
	SetTimeframe(ctx context.Context, sec int) (game.Rejection, error)
	Save(ctx context.Context) error
	Inject(ctx context.Context, ev model.Event) error
	Archived(ctx context.Context, limit int) ([]model.Candle, error)
}

// GameHandler handles player commands.
type GameHandler struct {
	game Game
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(g Game) *GameHandler {
	return &GameHandler{game: g}
}

// NormalizeSubreddit maps user input such as "funny", "r/funny" or
// "r-funny" onto a subreddit id.
func NormalizeSubreddit(arg string) string {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "" {
		return ""
	}
	arg = strings.TrimPrefix(arg, "/")
	switch {
	case strings.HasPrefix(arg, "r/"):
		return "r-" + arg[2:]
	case strings.HasPrefix(arg, "r-"):
		return arg
	}
	return "r-" + arg
}

// start runs an action and returns the reply text.
func (h *GameHandler) start(ctx context.Context, t model.ActionType, p model.ActionPayload) string {
	rej, err := h.game.Start(ctx, t, p)
	if err != nil {
		return serviceErrorText(err)
	}
	if !rej.OK() {
		return RenderRejection(rej)
	}
	if a := h.game.View().State.Action; a != nil {
		return "✅ " + a.Label + " (" + format.Seconds(a.Duration) + ")"
	}
	return "✅ Started"
}

// Post starts creating content. Args: [subreddit] [quality].
func (h *GameHandler) Post(ctx context.Context, args []string) string {
	var p model.ActionPayload
	if len(args) > 0 {
		p.SubredditID = NormalizeSubreddit(args[0])
	}
	if len(args) > 1 {
		q, err := strconv.ParseFloat(args[1], 64)
		if err != nil || q <= 0 {
			return "❌ Quality must be a positive number"
		}
		p.Quality = q
	}
	return h.start(ctx, model.ActionContent, p)
}

// LevelUp starts leveling or unlocking a subreddit.
func (h *GameHandler) LevelUp(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /levelup <subreddit>"
	}
	return h.start(ctx, model.ActionLevelUp, model.ActionPayload{SubredditID: NormalizeSubreddit(args[0])})
}

// Upgrade starts buying a global upgrade.
func (h *GameHandler) Upgrade(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /upgrade <id>\n\n" + RenderUpgrades(h.game.View())
	}
	return h.start(ctx, model.ActionUpgrade, model.ActionPayload{UpgradeID: strings.ToLower(args[0])})
}

// ModQueue clears a mod queue. Without a target the unhealthiest subreddit is picked.
func (h *GameHandler) ModQueue(ctx context.Context, args []string) string {
	var p model.ActionPayload
	if len(args) > 0 {
		p.SubredditID = NormalizeSubreddit(args[0])
	}
	return h.start(ctx, model.ActionMaintenance, p)
}

// Chart renders the KPS chart. Args: none, a timeframe in seconds, or "archive".
func (h *GameHandler) Chart(ctx context.Context, args []string) string {
	if len(args) == 0 {
		v := h.game.View()
		return RenderChart(v.Candles(), v.State.ChartTimeframe)
	}
	if args[0] == "archive" {
		candles, err := h.game.Archived(ctx, ArchiveChartLimit)
		if err != nil {
			return serviceErrorText(err)
		}
		return RenderChart(candles, h.game.View().State.ChartTimeframe)
	}

	sec, err := strconv.Atoi(strings.TrimSuffix(args[0], "s"))
	if err != nil {
		return "❌ Usage: /chart [10|30|60|300|archive]"
	}
	rej, err := h.game.SetTimeframe(ctx, sec)
	if err != nil {
		return serviceErrorText(err)
	}
	if !rej.OK() {
		return RenderRejection(rej)
	}
	return "✅ Chart timeframe set to " + strconv.Itoa(sec) + "s"
}

// Continue uses the one-time grace period after game over.
func (h *GameHandler) Continue(ctx context.Context) string {
	rej, err := h.game.Continue(ctx)
	if err != nil {
		return serviceErrorText(err)
	}
	if !rej.OK() {
		return RenderRejection(rej)
	}
	return "🛡 Grace period started. Get some posts up!"
}

// HandleStart handles /start and /status.
func (h *GameHandler) HandleStart(c tele.Context) error {
	v := h.game.View()
	return c.Send(RenderStatus(v), BuildStatusPanel(v))
}

// HandleBreakdown handles /breakdown.
func (h *GameHandler) HandleBreakdown(c tele.Context) error {
	return c.Reply(RenderBreakdown(h.game.View()))
}

// HandleSubreddits handles /subs.
func (h *GameHandler) HandleSubreddits(c tele.Context) error {
	return c.Reply(RenderSubreddits(h.game.View()))
}

// HandleUpgrades handles /upgrades.
func (h *GameHandler) HandleUpgrades(c tele.Context) error {
	v := h.game.View()
	return c.Send(RenderUpgrades(v), BuildUpgradePanel(v))
}

// HandlePost handles /post [subreddit] [quality].
func (h *GameHandler) HandlePost(c tele.Context) error {
	return h.reply(c, h.Post)
}

// HandleLevelUp handles /levelup <subreddit>.
func (h *GameHandler) HandleLevelUp(c tele.Context) error {
	return h.reply(c, h.LevelUp)
}

// HandleUpgrade handles /upgrade <id>.
func (h *GameHandler) HandleUpgrade(c tele.Context) error {
	return h.reply(c, h.Upgrade)
}

// HandleModQueue handles /modqueue [subreddit].
func (h *GameHandler) HandleModQueue(c tele.Context) error {
	return h.reply(c, h.ModQueue)
}

// HandleChart handles /chart [timeframe|archive].
func (h *GameHandler) HandleChart(c tele.Context) error {
	return h.reply(c, h.Chart)
}

// HandleContinue handles /continue.
func (h *GameHandler) HandleContinue(c tele.Context) error {
	return h.reply(c, func(ctx context.Context, _ []string) string { return h.Continue(ctx) })
}

// HandleCallback handles the inline panel buttons.
func (h *GameHandler) HandleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	prefix, arg := ParseCallback(callback.Data)
	var text string
	switch prefix {
	case CallbackRefresh:
	case CallbackPost:
		text = h.Post(ctx, []string{arg})
	case CallbackLevelUp:
		text = h.LevelUp(ctx, []string{arg})
	case CallbackUpgrade:
		text = h.Upgrade(ctx, []string{arg})
	case CallbackModQueue:
		text = h.ModQueue(ctx, []string{arg})
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown button"})
	}

	if text != "" {
		c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: strings.HasPrefix(text, "❌")})
	} else {
		c.Respond()
	}

	v := h.game.View()
	markup := BuildStatusPanel(v)
	body := RenderStatus(v)
	if prefix == CallbackUpgrade {
		markup = BuildUpgradePanel(v)
		body = RenderUpgrades(v)
	}
	if err := c.Edit(body, markup); err != nil && !errors.Is(err, tele.ErrSameMessageContent) {
		log.Debug().Err(err).Msg("Failed to refresh panel")
	}
	return nil
}

func (h *GameHandler) reply(c tele.Context, fn func(ctx context.Context, args []string) string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return c.Reply(fn(ctx, c.Args()))
}

func serviceErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrStopped):
		return "❌ The game is shutting down"
	case errors.Is(err, service.ErrNoArchive):
		return "❌ This storage backend keeps no chart archive"
	case errors.Is(err, context.DeadlineExceeded):
		return "❌ The game is busy, try again"
	}
	log.Error().Err(err).Msg("Game request failed")
	return "❌ Operation failed, try again later"
}
