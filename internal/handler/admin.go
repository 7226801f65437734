package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/model"
)

// DefaultViralDuration is the duration of an admin-injected viral event in seconds.
const DefaultViralDuration = 30

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	game Game
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(g Game) *AdminHandler {
	return &AdminHandler{game: g}
}

// Reset wipes progress back to a fresh game.
func (h *AdminHandler) Reset(ctx context.Context) string {
	if err := h.game.Reset(ctx); err != nil {
		return serviceErrorText(err)
	}
	return "♻️ Game reset"
}

// Save writes a snapshot now.
func (h *AdminHandler) Save(ctx context.Context) string {
	if err := h.game.Save(ctx); err != nil {
		return serviceErrorText(err)
	}
	return "💾 Game saved"
}

// Crisis injects a crisis from the catalog table.
// Format: /crisis <id> [subreddit]
func (h *AdminHandler) Crisis(ctx context.Context, args []string) string {
	cat := h.game.Catalog()
	if len(args) == 0 {
		return "❌ Usage: /crisis <id> [subreddit]\n" + crisisList(cat)
	}

	var def *catalog.CrisisDef
	for i := range cat.Crises {
		if cat.Crises[i].ID == args[0] {
			def = &cat.Crises[i]
			break
		}
	}
	if def == nil {
		return "❌ Unknown crisis\n" + crisisList(cat)
	}

	ev := model.Event{
		Name:          def.Name,
		Multiplier:    def.Multiplier,
		Duration:      def.Duration,
		Polarity:      model.PolarityCrisis,
		Scope:         def.Scope,
		HealthPenalty: def.HealthPenalty,
	}
	if def.Scope == model.ScopeLocal {
		target, msg := h.target(args[1:])
		if msg != "" {
			return msg
		}
		ev.TargetID = target
		ev.Name = def.Name + " in " + displayName(h.game.View().State, target)
	}
	return h.inject(ctx, ev)
}

// Viral injects a boost on a subreddit.
// Format: /viral <subreddit> [multiplier]
func (h *AdminHandler) Viral(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /viral <subreddit> [multiplier]"
	}
	target, msg := h.target(args)
	if msg != "" {
		return msg
	}
	mul := 3.0
	if len(args) > 1 {
		m, err := strconv.ParseFloat(args[1], 64)
		if err != nil || m <= 1 {
			return "❌ Multiplier must be a number above 1"
		}
		mul = m
	}
	return h.inject(ctx, model.Event{
		Name:       "Viral post in " + displayName(h.game.View().State, target) + "!",
		TargetID:   target,
		Multiplier: mul,
		Duration:   DefaultViralDuration,
		Polarity:   model.PolarityBoost,
		Scope:      model.ScopeLocal,
	})
}

// target resolves an unlocked subreddit from the first argument.
func (h *AdminHandler) target(args []string) (string, string) {
	if len(args) == 0 {
		return "", "❌ This event needs a target subreddit"
	}
	id := NormalizeSubreddit(args[0])
	sub := h.game.View().State.Subreddit(id)
	if sub == nil || !sub.Unlocked {
		return "", "❌ Subreddit not found or locked"
	}
	return id, ""
}

func (h *AdminHandler) inject(ctx context.Context, ev model.Event) string {
	if err := h.game.Inject(ctx, ev); err != nil {
		return serviceErrorText(err)
	}
	return fmt.Sprintf("✅ Injected %s ×%.2f for %.0fs", ev.Name, ev.Multiplier, ev.Duration)
}

func crisisList(cat *catalog.Catalog) string {
	msg := "Available:"
	for _, cr := range cat.Crises {
		msg += fmt.Sprintf("\n• %s (%s)", cr.ID, cr.Scope)
	}
	return msg
}

// HandleReset handles /reset.
func (h *AdminHandler) HandleReset(c tele.Context) error {
	return h.logged(c, "reset", func(ctx context.Context, _ []string) string { return h.Reset(ctx) })
}

// HandleSave handles /save.
func (h *AdminHandler) HandleSave(c tele.Context) error {
	return h.logged(c, "save", func(ctx context.Context, _ []string) string { return h.Save(ctx) })
}

// HandleCrisis handles /crisis.
func (h *AdminHandler) HandleCrisis(c tele.Context) error {
	return h.logged(c, "crisis", h.Crisis)
}

// HandleViral handles /viral.
func (h *AdminHandler) HandleViral(c tele.Context) error {
	return h.logged(c, "viral", h.Viral)
}

func (h *AdminHandler) logged(c tele.Context, op string, fn func(ctx context.Context, args []string) string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var adminID int64
	if sender := c.Sender(); sender != nil {
		adminID = sender.ID
	}
	args := c.Args()
	log.Info().
		Int64("admin_id", adminID).
		Str("operation", op).
		Strs("args", args).
		Msg("Admin operation executed")

	return c.Reply(fn(ctx, args))
}
