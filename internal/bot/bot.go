package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"karma-tycoon/internal/config"
	"karma-tycoon/internal/handler"
)

// Bot wraps the telebot instance with the game handlers.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	notifier *ChatNotifier
	seen     *UserSet

	gameHandler  *handler.GameHandler
	adminHandler *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config *config.Config
	Game   handler.Game
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Bot handler failed")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:          teleBot,
		cfg:          deps.Config,
		seen:         NewUserSet(),
		gameHandler:  handler.NewGameHandler(deps.Game),
		adminHandler: handler.NewAdminHandler(deps.Game),
	}
	if deps.Config.Bot.ChatID != 0 {
		b.notifier = NewChatNotifier(teleBot, deps.Config.Bot.ChatID, deps.Config.Bot.NoticeTTL)
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.seen))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(CooldownMiddleware(b.cfg.Bot.Cooldown, time.Now))
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Read-only panels
	b.bot.Handle("/start", b.gameHandler.HandleStart)
	b.bot.Handle("/status", b.gameHandler.HandleStart)
	b.bot.Handle("/breakdown", b.gameHandler.HandleBreakdown)
	b.bot.Handle("/subs", b.gameHandler.HandleSubreddits)
	b.bot.Handle("/upgrades", b.gameHandler.HandleUpgrades)

	// Actions
	b.bot.Handle("/post", b.gameHandler.HandlePost)
	b.bot.Handle("/levelup", b.gameHandler.HandleLevelUp)
	b.bot.Handle("/upgrade", b.gameHandler.HandleUpgrade)
	b.bot.Handle("/modqueue", b.gameHandler.HandleModQueue)
	b.bot.Handle("/chart", b.gameHandler.HandleChart)
	b.bot.Handle("/continue", b.gameHandler.HandleContinue)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/reset", b.adminHandler.HandleReset)
	adminGroup.Handle("/save", b.adminHandler.HandleSave)
	adminGroup.Handle("/crisis", b.adminHandler.HandleCrisis)
	adminGroup.Handle("/viral", b.adminHandler.HandleViral)

	b.bot.Handle(tele.OnCallback, b.gameHandler.HandleCallback)
}

// Notifier returns the chat notifier, or nil when no notice chat is configured.
func (b *Bot) Notifier() *ChatNotifier {
	return b.notifier
}

// Start runs the notifier and blocks polling until Stop.
func (b *Bot) Start(ctx context.Context) {
	log.Info().Msg("Starting bot...")
	if b.notifier != nil {
		go b.notifier.Run(ctx)
		log.Info().Int64("chat_id", b.cfg.Bot.ChatID).Msg("Notice broadcaster started")
	}
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
