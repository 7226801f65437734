// Package engine is the tick orchestrator. An Engine owns the game state and
// is driven by Tick, roughly 60 times per second. Each tick runs five stages
// in a fixed order, and every stage decides its effects before applying them:
//
//  1. action resolution
//  2. event expiry and spawn, upgrade timers
//  3. post expiry, fatigue and health decay
//  4. income accumulation
//  5. flush (at most once per second): karma, tier, energy, breakdown,
//     candle and the game-over check
//
// An Engine is not safe for concurrent mutation; the caller serializes Tick
// and the input operations. View may be called from any goroutine.
package engine

import (
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/action"
	"karma-tycoon/internal/game/economy"
	"karma-tycoon/internal/game/events"
	"karma-tycoon/internal/model"
	"karma-tycoon/internal/persist"
)

// Config holds the engine's timing parameters.
type Config struct {
	MaxTickDelta  time.Duration // longer gaps are clamped, so there is no offline progress
	FlushInterval time.Duration
	HistorySize   int // sealed candles kept
	GraceSeconds  float64
	Events        events.Config
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxTickDelta:  250 * time.Millisecond,
		FlushInterval: time.Second,
		HistorySize:   200,
		GraceSeconds:  60,
		Events:        events.DefaultConfig(),
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used by input operations.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithNotifier sets the notice sink.
func WithNotifier(n game.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithRand sets the random source.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithState starts the engine from an existing (merged) state.
func WithState(s *model.State) Option {
	return func(e *Engine) { e.state = s }
}

// WithRegistry replaces the action handlers.
func WithRegistry(r *game.Registry) Option {
	return func(e *Engine) { e.machine = action.NewMachine(r) }
}

// Engine runs the simulation.
type Engine struct {
	cfg      Config
	cat      *catalog.Catalog
	state    *model.State
	machine  *action.Machine
	events   *events.Generator
	rng      *rand.Rand
	clock    Clock
	notifier game.Notifier

	lastTick   time.Time
	sinceFlush float64
	view       atomic.Pointer[View]
}

// New creates an engine over the catalog.
func New(cat *catalog.Catalog, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.MaxTickDelta <= 0 {
		cfg.MaxTickDelta = def.MaxTickDelta
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.GraceSeconds <= 0 {
		cfg.GraceSeconds = def.GraceSeconds
	}

	e := &Engine{
		cfg:      cfg,
		cat:      cat,
		machine:  action.NewMachine(nil),
		events:   events.New(cfg.Events, cat),
		clock:    RealClock{},
		notifier: game.NopNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := e.clock.Now()
	if e.state == nil {
		e.state = cat.NewState()
		e.state.LastFlush = now
	}
	if e.state.ChartTimeframe == 0 {
		e.state.ChartTimeframe = catalog.DefaultTimeframe
	}
	e.state.Breakdown = economy.Calculate(economy.InputsFrom(e.state, now))
	e.publish(now)
	return e
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

func (e *Engine) env(now time.Time) game.Env {
	return game.Env{
		Catalog: e.cat,
		Tier:    e.cat.Tier(e.state.Tier),
		Now:     now,
		Rand:    e.rng,
	}
}

// apply runs effects against the state and forwards announcements.
func (e *Engine) apply(now time.Time, effects []game.Effect) {
	for _, eff := range effects {
		eff.Apply(e.state)
		if a, ok := eff.(game.Announce); ok {
			n := a.Notice
			if n.At.IsZero() {
				n.At = now
			}
			log.Debug().Str("kind", string(n.Kind)).Str("target", n.Target).Msg(n.Message)
			e.notifier.Notify(n)
		}
	}
}

// StartAction tries to start a player action. A rejection leaves the state
// untouched; an energy rejection also pushes an energy-error notice.
func (e *Engine) StartAction(t model.ActionType, p model.ActionPayload) (bool, game.Rejection) {
	now := e.clock.Now()
	effects, rej := e.machine.Start(e.state, e.env(now), t, p)
	if !rej.OK() {
		if rej == game.RejectEnergy {
			e.notifier.Notify(game.Notice{Kind: game.NoticeEnergyError, Message: rej.Message(), At: now})
		}
		return false, rej
	}
	e.apply(now, effects)
	log.Debug().Str("action", string(t)).Str("label", e.state.Action.Label).Float64("duration", e.state.Action.Duration).Msg("Action started")
	e.publish(now)
	return true, game.Accepted
}

// Continue clears a game over and opens the grace window. It works once per run.
func (e *Engine) Continue() game.Rejection {
	if !e.state.GameOver {
		return game.RejectNotGameOver
	}
	if e.state.GraceUsed {
		return game.RejectGraceUsed
	}
	e.state.GameOver = false
	e.state.Grace = e.cfg.GraceSeconds
	e.state.GraceUsed = true
	log.Info().Float64("grace", e.cfg.GraceSeconds).Msg("Game continued with grace period")
	e.publish(e.clock.Now())
	return game.Accepted
}

// Reset restores a fresh game from the catalog.
func (e *Engine) Reset() {
	now := e.clock.Now()
	e.state = e.cat.NewState()
	e.state.LastFlush = now
	e.state.Breakdown = economy.Calculate(economy.InputsFrom(e.state, now))
	e.sinceFlush = 0
	log.Info().Msg("Game reset")
	e.publish(now)
}

// SetChartTimeframe changes the candle width and clears the chart. Widths
// other than the default need the top tier.
func (e *Engine) SetChartTimeframe(sec int) game.Rejection {
	if !catalog.ValidTimeframe(sec) {
		return game.RejectTimeframe
	}
	if sec != catalog.DefaultTimeframe && e.state.Tier < e.cat.MaxTier() {
		return game.RejectTierLocked
	}
	e.state.ChartTimeframe = sec
	e.state.History = nil
	e.state.Candle = nil
	e.publish(e.clock.Now())
	return game.Accepted
}

// InjectEvent activates an event directly. Missing id and remaining time
// are filled in.
func (e *Engine) InjectEvent(ev model.Event) {
	now := e.clock.Now()
	if ev.Remaining <= 0 {
		ev.Remaining = ev.Duration
	}
	if ev.ID == "" {
		ev.ID = "injected-" + uuid.NewString()
	}
	if ev.Scope == "" {
		ev.Scope = model.ScopeGlobal
		if ev.TargetID != "" {
			ev.Scope = model.ScopeLocal
		}
	}
	kind := game.NoticeViral
	if ev.Polarity == model.PolarityCrisis {
		kind = game.NoticeCrisis
	}
	e.apply(now, []game.Effect{
		game.SpawnEvent{Event: ev},
		game.Announce{Notice: game.Notice{Kind: kind, Message: ev.Name, Target: ev.TargetID}},
	})
	e.publish(now)
}

// Snapshot captures the state for persistence.
func (e *Engine) Snapshot() *persist.Snapshot {
	return persist.FromState(e.state, e.clock.Now())
}

// Tick advances the simulation to now.
func (e *Engine) Tick(now time.Time) {
	if e.lastTick.IsZero() {
		e.lastTick = now
		e.publish(now)
		return
	}
	delta := now.Sub(e.lastTick)
	e.lastTick = now
	if delta <= 0 {
		return
	}
	if delta > e.cfg.MaxTickDelta {
		delta = e.cfg.MaxTickDelta
	}
	if e.state.GameOver {
		e.publish(now)
		return
	}
	e.step(now, delta.Seconds())
	e.publish(now)
}

func (e *Engine) step(now time.Time, dt float64) {
	s := e.state
	env := e.env(now)

	e.apply(now, e.machine.Advance(s, env, dt))

	e.apply(now, e.events.Advance(s, env.Tier, dt, e.rng))
	e.apply(now, []game.Effect{game.AgeUpgrades{Delta: dt}})

	e.apply(now, []game.Effect{game.ExpirePosts{Now: now}, game.Decay{Delta: dt}})

	kps := economy.TotalKPS(economy.InputsFrom(s, now))
	e.apply(now, []game.Effect{game.Accrue{Amount: math.Max(0, kps) * dt}, countGrace{Delta: dt}})

	e.sinceFlush += dt
	if e.sinceFlush >= e.cfg.FlushInterval.Seconds() {
		elapsed := e.sinceFlush
		e.sinceFlush = 0
		e.apply(now, e.flush(now, elapsed))
	}
}
