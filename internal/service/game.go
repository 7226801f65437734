// Package service runs a game: it owns the engine on one goroutine, feeds it
// ticks and player input, and saves it to a repository.Store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/engine"
	"karma-tycoon/internal/model"
	"karma-tycoon/internal/persist"
	"karma-tycoon/internal/repository"
)

// Common errors for game service operations.
var (
	ErrStopped   = errors.New("game service is not running")
	ErrNoArchive = errors.New("store has no candle archive")
)

// saveTimeout bounds autosave and the final save on shutdown.
const saveTimeout = 10 * time.Second

// Options configures a GameService.
type Options struct {
	Slot         string
	TickInterval time.Duration
	Autosave     string // cron spec; empty disables autosave
	Clock        engine.Clock
}

// GameService serializes ticks and input for one engine.
type GameService struct {
	engine  *engine.Engine
	store   repository.Store
	archive repository.CandleArchive
	slot    string
	tick    time.Duration
	clock   engine.Clock
	cron    *cron.Cron

	inputs  chan func()
	started chan struct{}
	stopped chan struct{}
}

// LoadState reads a slot and merges it over the catalog. A missing or
// unreadable slot yields a fresh game.
func LoadState(ctx context.Context, store repository.Store, cat *catalog.Catalog, slot string, now time.Time) *model.State {
	snap, err := store.Load(ctx, slot)
	switch {
	case errors.Is(err, repository.ErrSlotNotFound):
		log.Info().Str("slot", slot).Msg("No save found, starting a new game")
	case err != nil:
		log.Warn().Err(err).Str("slot", slot).Msg("Failed to load save, starting a new game")
		snap = nil
	default:
		log.Info().Str("slot", slot).Int("version", snap.Version).Time("saved_at", snap.SavedAt).Msg("Save loaded")
	}
	return persist.Merge(cat, snap, now)
}

// NewGameService creates a service around eng.
func NewGameService(eng *engine.Engine, store repository.Store, opts Options) (*GameService, error) {
	if opts.Slot == "" {
		opts.Slot = "default"
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 60
	}
	if opts.Clock == nil {
		opts.Clock = engine.RealClock{}
	}
	if store == nil {
		store = repository.NoopStore{}
	}

	s := &GameService{
		engine:  eng,
		store:   store,
		slot:    opts.Slot,
		tick:    opts.TickInterval,
		clock:   opts.Clock,
		inputs:  make(chan func()),
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if a, ok := store.(repository.CandleArchive); ok {
		s.archive = a
	}
	if opts.Autosave != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(opts.Autosave, s.autosave); err != nil {
			return nil, fmt.Errorf("failed to register autosave %q: %w", opts.Autosave, err)
		}
	}
	return s, nil
}

// Run drives the engine until ctx is cancelled, then saves once more.
func (s *GameService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	if s.cron != nil {
		s.cron.Start()
	}
	close(s.started)
	log.Info().Str("slot", s.slot).Dur("tick", s.tick).Msg("Game loop started")

	for {
		select {
		case <-ctx.Done():
			snap := s.engine.Snapshot()
			close(s.stopped)
			// A running autosave may be blocked in do; it sees stopped now.
			if s.cron != nil {
				<-s.cron.Stop().Done()
			}

			saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			if err := s.persist(saveCtx, snap); err != nil {
				return fmt.Errorf("failed to save on shutdown: %w", err)
			}
			log.Info().Str("slot", s.slot).Msg("Game loop stopped")
			return nil
		case fn := <-s.inputs:
			fn()
		case <-ticker.C:
			s.engine.Tick(s.clock.Now())
		}
	}
}

// do runs fn on the loop goroutine and waits for it. It blocks until Run
// has started.
func (s *GameService) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.inputs <- func() { fn(); close(done) }:
		<-done
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start starts a player action.
func (s *GameService) Start(ctx context.Context, t model.ActionType, p model.ActionPayload) (game.Rejection, error) {
	var rej game.Rejection
	err := s.do(ctx, func() { _, rej = s.engine.StartAction(t, p) })
	return rej, err
}

// Continue clears a game over once per run.
func (s *GameService) Continue(ctx context.Context) (game.Rejection, error) {
	var rej game.Rejection
	err := s.do(ctx, func() { rej = s.engine.Continue() })
	return rej, err
}

// Reset starts the game over from catalog defaults.
func (s *GameService) Reset(ctx context.Context) error {
	return s.do(ctx, s.engine.Reset)
}

// SetTimeframe changes the chart candle width.
func (s *GameService) SetTimeframe(ctx context.Context, sec int) (game.Rejection, error) {
	var rej game.Rejection
	err := s.do(ctx, func() { rej = s.engine.SetChartTimeframe(sec) })
	return rej, err
}

// Inject activates an event directly.
func (s *GameService) Inject(ctx context.Context, ev model.Event) error {
	return s.do(ctx, func() { s.engine.InjectEvent(ev) })
}

// Ready is closed once Run has started.
func (s *GameService) Ready() <-chan struct{} {
	return s.started
}

// View returns the latest read model. Safe from any goroutine.
func (s *GameService) View() *engine.View {
	return s.engine.View()
}

// Catalog returns the engine's catalog.
func (s *GameService) Catalog() *catalog.Catalog {
	return s.engine.Catalog()
}

// Slot returns the save slot name.
func (s *GameService) Slot() string {
	return s.slot
}

// Save snapshots the game on the loop goroutine and writes it to the store.
func (s *GameService) Save(ctx context.Context) error {
	var snap *persist.Snapshot
	if err := s.do(ctx, func() { snap = s.engine.Snapshot() }); err != nil {
		return err
	}
	return s.persist(ctx, snap)
}

// Archived returns up to limit archived candles for the current timeframe.
func (s *GameService) Archived(ctx context.Context, limit int) ([]model.Candle, error) {
	if s.archive == nil {
		return nil, ErrNoArchive
	}
	return s.archive.Candles(ctx, s.slot, s.View().State.ChartTimeframe, limit)
}

func (s *GameService) persist(ctx context.Context, snap *persist.Snapshot) error {
	if err := s.store.Save(ctx, s.slot, snap); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	if s.archive != nil {
		if err := s.archive.ArchiveCandles(ctx, s.slot, snap.ChartTimeframe, snap.History); err != nil {
			return fmt.Errorf("failed to archive candles: %w", err)
		}
	}
	log.Debug().Str("slot", s.slot).Float64("lifetime", snap.LifetimeKarma).Msg("Game saved")
	return nil
}

func (s *GameService) autosave() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.Save(ctx); err != nil && !errors.Is(err, ErrStopped) {
		log.Error().Err(err).Str("slot", s.slot).Msg("Autosave failed")
	}
}
