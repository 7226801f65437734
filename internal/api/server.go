// Package api exposes the game's read model and input over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/engine"
	"karma-tycoon/internal/model"
	"karma-tycoon/internal/service"
)

// Game is the part of service.GameService the API drives.
type Game interface {
	View() *engine.View
	Start(ctx context.Context, t model.ActionType, p model.ActionPayload) (game.Rejection, error)
	Continue(ctx context.Context) (game.Rejection, error)
	Reset(ctx context.Context) error
	SetTimeframe(ctx context.Context, sec int) (game.Rejection, error)
	Save(ctx context.Context) error
	Archived(ctx context.Context, limit int) ([]model.Candle, error)
}

const defaultArchiveLimit = 500

// HealthFunc reports whether a backing dependency is reachable.
type HealthFunc func(ctx context.Context) error

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck makes /healthz fail with 503 when check returns an error.
func WithHealthCheck(check HealthFunc) Option {
	return func(s *Server) { s.health = check }
}

// Server routes HTTP requests to a Game.
type Server struct {
	game   Game
	token  string
	health HealthFunc
	mux    *chi.Mux
}

// New creates a server. A non-empty token requires "Authorization: Bearer
// <token>" on every /v1 route.
func New(g Game, token string, opts ...Option) *Server {
	s := &Server{
		game:  g,
		token: token,
		mux:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/view", s.handleView)
		r.Get("/breakdown", s.handleBreakdown)
		r.Get("/candles", s.handleCandles)
		r.Get("/subreddits/{id}", s.handleSubreddit)

		r.Post("/actions", s.handleAction)
		r.Post("/continue", s.handleContinue)
		r.Post("/reset", s.handleReset)
		r.Post("/timeframe", s.handleTimeframe)
		r.Post("/save", s.handleSave)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && !validToken(bearerToken(r.Header.Get("Authorization")), s.token) {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validToken(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.View())
}

func (s *Server) handleBreakdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.View().State.Breakdown)
}

func (s *Server) handleSubreddit(w http.ResponseWriter, r *http.Request) {
	v := s.game.View()
	id := chi.URLParam(r, "id")
	sub := v.State.Subreddit(id)
	if sub == nil {
		writeError(w, http.StatusNotFound, "unknown subreddit "+id)
		return
	}
	var breakdown *model.SubredditBreakdown
	for i := range v.State.Breakdown.Subreddits {
		if v.State.Breakdown.Subreddits[i].ID == id {
			breakdown = &v.State.Breakdown.Subreddits[i]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subreddit":    sub,
		"breakdown":    breakdown,
		"levelup_cost": v.LevelUpCosts[id],
		"can_levelup":  v.CanLevelUp(id),
		"active_posts": v.State.PostsIn(id),
	})
}

// handleCandles returns the in-game chart, or the archive with ?source=archive.
func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	v := s.game.View()
	if r.URL.Query().Get("source") != "archive" {
		writeJSON(w, http.StatusOK, map[string]any{
			"timeframe": v.State.ChartTimeframe,
			"candles":   v.Candles(),
		})
		return
	}

	limit := defaultArchiveLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	candles, err := s.game.Archived(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timeframe": v.State.ChartTimeframe,
		"candles":   candles,
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Type        string  `json:"type"`
		SubredditID string  `json:"subreddit_id"`
		UpgradeID   string  `json:"upgrade_id"`
		Quality     float64 `json:"quality"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rej, err := s.game.Start(r.Context(), model.ActionType(strings.TrimSpace(in.Type)), model.ActionPayload{
		SubredditID: in.SubredditID,
		UpgradeID:   in.UpgradeID,
		Quality:     in.Quality,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !rej.OK() {
		writeRejection(w, rej)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"started": true, "action": s.game.View().State.Action})
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	rej, err := s.game.Continue(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !rej.OK() {
		writeRejection(w, rej)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grace": s.game.View().State.Grace})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.game.Reset(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTimeframe(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Seconds int `json:"seconds"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rej, err := s.game.SetTimeframe(r.Context(), in.Seconds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !rej.OK() {
		writeRejection(w, rej)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeframe": in.Seconds})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.game.Save(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

// writeRejection reports a refused input. Rejections are not failures, so the
// reason code travels with the message.
func writeRejection(w http.ResponseWriter, rej game.Rejection) {
	writeJSON(w, http.StatusConflict, map[string]any{"error": rej.Message(), "reason": string(rej)})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrNoArchive):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		log.Error().Err(err).Msg("API request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
