// Package main is the entry point for the karma tycoon server and its
// maintenance commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"karma-tycoon/internal/api"
	"karma-tycoon/internal/bot"
	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/config"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/engine"
	"karma-tycoon/internal/pkg/db"
	"karma-tycoon/internal/repository"
	"karma-tycoon/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configDir string

	root := &cobra.Command{
		Use:          "tycoon",
		Short:        "Karma idle tycoon simulation server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configDir, "config", "c", "config", "directory containing config.yaml")

	root.AddCommand(
		newRunCmd(&configDir),
		newStatusCmd(&configDir),
		newSlotsCmd(&configDir),
		newResetCmd(&configDir),
		newCatalogCmd(&configDir),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and configures the global logger.
func setup(configDir string) (*config.Config, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", config.ErrInvalidConfig, cfg.Log.Level)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Game.CatalogFile == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(cfg.Game.CatalogFile)
	if err != nil {
		return nil, err
	}
	log.Info().Str("file", cfg.Game.CatalogFile).Msg("Catalog loaded")
	return cat, nil
}

// openedStore is a snapshot store plus its lifecycle hooks.
type openedStore struct {
	repository.Store
	close  func()
	health api.HealthFunc // nil when the store has no remote dependency
}

// openStore builds the configured snapshot store.
func openStore(ctx context.Context, cfg *config.Config) (*openedStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverNone:
		return &openedStore{Store: repository.NoopStore{}, close: func() {}}, nil
	case config.DriverFile:
		store, err := repository.NewFileStore(cfg.Storage.FileDir)
		if err != nil {
			return nil, err
		}
		return &openedStore{Store: store, close: func() {}}, nil
	case config.DriverSQLite:
		store, err := repository.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &openedStore{Store: store, close: func() { store.Close() }}, nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Migrate(ctx, repository.Schema); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return &openedStore{
			Store:  repository.NewPostgresStore(pool.Pool),
			close:  pool.Close,
			health: pool.HealthCheck,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, cfg.Storage.Driver)
}

func apiOptions(s *openedStore) []api.Option {
	if s.health == nil {
		return nil
	}
	return []api.Option{api.WithHealthCheck(s.health)}
}

func engineConfig(cfg *config.Config) engine.Config {
	ec := engine.DefaultConfig()
	if cfg.Game.MaxTickDelta > 0 {
		ec.MaxTickDelta = cfg.Game.MaxTickDelta
	}
	if cfg.Game.HistorySize > 0 {
		ec.HistorySize = cfg.Game.HistorySize
	}
	if cfg.Game.GraceSeconds > 0 {
		ec.GraceSeconds = cfg.Game.GraceSeconds
	}
	return ec
}

func newRunCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the simulation with the configured front ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configDir)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
}

func run(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	opened, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer opened.close()
	store := opened.Store

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var notices game.Broadcaster
	state := service.LoadState(ctx, store, cat, cfg.Storage.Slot, time.Now())
	eng := engine.New(cat, engineConfig(cfg),
		engine.WithState(state),
		engine.WithNotifier(&notices),
		engine.WithRand(rand.New(rand.NewSource(seed))),
	)
	notices.Subscribe(game.NotifierFunc(func(n game.Notice) {
		log.Info().Str("kind", string(n.Kind)).Str("target", n.Target).Msg(n.Message)
	}))

	svc, err := service.NewGameService(eng, store, service.Options{
		Slot:         cfg.Storage.Slot,
		TickInterval: cfg.Game.TickInterval(),
		Autosave:     cfg.Storage.Autosave,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("slot", cfg.Storage.Slot).
		Str("driver", cfg.Storage.Driver).
		Int("tick_rate", cfg.Game.TickRate).
		Int64("seed", seed).
		Msg("Game starting")

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	var srv *http.Server
	if cfg.API.Addr != "" {
		srv = &http.Server{
			Addr:              cfg.API.Addr,
			Handler:           api.New(svc, cfg.API.Token, apiOptions(opened)...).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.API.Addr).Msg("API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("API server failed")
				stop()
			}
		}()
	}

	var telegramBot *bot.Bot
	if cfg.Bot.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{Config: cfg, Game: svc})
		if err != nil {
			stop()
			<-done
			return err
		}
		if n := telegramBot.Notifier(); n != nil {
			notices.Subscribe(n)
		}
		go telegramBot.Start(ctx)
	}

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	if telegramBot != nil {
		telegramBot.Stop()
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API shutdown failed")
		}
	}

	if err := <-done; err != nil {
		return err
	}
	log.Info().Msg("Game stopped gracefully")
	return nil
}
