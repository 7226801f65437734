package handler

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/game/engine"
	"karma-tycoon/internal/model"
	"karma-tycoon/internal/service"
)

// engineGame drives an engine directly on the test goroutine.
type engineGame struct {
	eng      *engine.Engine
	saves    int
	injected []model.Event
	archived []model.Candle
	err      error
}

func newEngineGame(t *testing.T, karma float64) *engineGame {
	t.Helper()
	cat := catalog.Default()
	s := cat.NewState()
	s.Karma = karma
	s.LifetimeKarma = karma
	funny := s.Subreddit("r-funny")
	require.NotNil(t, funny)
	funny.Unlocked = true
	funny.Level = 1
	eng := engine.New(cat, engine.DefaultConfig(),
		engine.WithState(s),
		engine.WithRand(rand.New(rand.NewSource(1))),
	)
	return &engineGame{eng: eng}
}

func (g *engineGame) View() *engine.View          { return g.eng.View() }
func (g *engineGame) Catalog() *catalog.Catalog { return g.eng.Catalog() }

func (g *engineGame) Start(_ context.Context, t model.ActionType, p model.ActionPayload) (game.Rejection, error) {
	if g.err != nil {
		return game.Accepted, g.err
	}
	_, rej := g.eng.StartAction(t, p)
	return rej, nil
}

func (g *engineGame) Continue(context.Context) (game.Rejection, error) { return g.eng.Continue(), nil }

func (g *engineGame) Reset(context.Context) error {
	g.eng.Reset()
	return nil
}

func (g *engineGame) SetTimeframe(_ context.Context, sec int) (game.Rejection, error) {
	return g.eng.SetChartTimeframe(sec), nil
}

func (g *engineGame) Save(context.Context) error {
	g.saves++
	return g.err
}

func (g *engineGame) Inject(_ context.Context, ev model.Event) error {
	g.injected = append(g.injected, ev)
	g.eng.InjectEvent(ev)
	return nil
}

func (g *engineGame) Archived(_ context.Context, limit int) ([]model.Candle, error) {
	if g.archived == nil {
		return nil, service.ErrNoArchive
	}
	return g.archived, nil
}

func TestNormalizeSubreddit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"funny", "r-funny"},
		{"r/funny", "r-funny"},
		{"r-funny", "r-funny"},
		{" R/Funny ", "r-funny"},
		{"/r/funny", "r-funny"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSubreddit(tt.in), tt.in)
	}
}

func TestPost(t *testing.T) {
	ctx := context.Background()
	g := newEngineGame(t, 0)
	h := NewGameHandler(g)

	reply := h.Post(ctx, []string{"funny"})
	assert.True(t, strings.HasPrefix(reply, "✅ Posting to r/funny ("), reply)

	reply = h.Post(ctx, nil)
	assert.Equal(t, RenderRejection(game.RejectBusy), reply)
}

func TestPost_Rejections(t *testing.T) {
	ctx := context.Background()
	h := NewGameHandler(newEngineGame(t, 0))

	assert.Equal(t, RenderRejection(game.RejectNoTarget), h.Post(ctx, []string{"pics"}))
	assert.Equal(t, "❌ Quality must be a positive number", h.Post(ctx, []string{"funny", "abc"}))
	assert.Equal(t, "❌ Quality must be a positive number", h.Post(ctx, []string{"funny", "-1"}))
}

func TestLevelUp(t *testing.T) {
	ctx := context.Background()

	poor := NewGameHandler(newEngineGame(t, 0))
	assert.Equal(t, RenderRejection(game.RejectFunds), poor.LevelUp(ctx, []string{"r/pics"}))
	assert.Contains(t, poor.LevelUp(ctx, nil), "Usage")

	rich := newEngineGame(t, 900)
	h := NewGameHandler(rich)
	reply := h.LevelUp(ctx, []string{"r/pics"})
	assert.True(t, strings.HasPrefix(reply, "✅ Unlocking r/pics"), reply)
	assert.InDelta(t, 800, rich.View().State.Karma, 1e-9)
}

func TestUpgrade(t *testing.T) {
	ctx := context.Background()
	g := newEngineGame(t, 900)
	h := NewGameHandler(g)

	assert.Contains(t, h.Upgrade(ctx, nil), "Automod")
	assert.Equal(t, RenderRejection(game.RejectNoTarget), h.Upgrade(ctx, []string{"nope"}))
	reply := h.Upgrade(ctx, []string{"AUTOMOD"})
	assert.True(t, strings.HasPrefix(reply, "✅ Buying Automod"), reply)
	assert.InDelta(t, 850, g.View().State.Karma, 1e-9)
}

func TestModQueue_Healthy(t *testing.T) {
	h := NewGameHandler(newEngineGame(t, 0))
	assert.Equal(t, RenderRejection(game.RejectHealthy), h.ModQueue(context.Background(), nil))
}

func TestChart(t *testing.T) {
	ctx := context.Background()
	g := newEngineGame(t, 0)
	h := NewGameHandler(g)

	assert.Contains(t, h.Chart(ctx, nil), "No chart data")
	assert.Equal(t, RenderRejection(game.RejectTierLocked), h.Chart(ctx, []string{"60s"}))
	assert.Equal(t, RenderRejection(game.RejectTimeframe), h.Chart(ctx, []string{"7"}))
	assert.Contains(t, h.Chart(ctx, []string{"soon"}), "Usage")
	assert.Equal(t, "✅ Chart timeframe set to 10s", h.Chart(ctx, []string{"10"}))

	assert.Contains(t, h.Chart(ctx, []string{"archive"}), "no chart archive")
	g.archived = []model.Candle{{Open: 1, High: 3, Low: 1, Close: 2}, {Open: 2, High: 5, Low: 2, Close: 4}}
	assert.Contains(t, h.Chart(ctx, []string{"archive"}), "C 4")
}

func TestContinue_NotGameOver(t *testing.T) {
	h := NewGameHandler(newEngineGame(t, 0))
	assert.Equal(t, RenderRejection(game.RejectNotGameOver), h.Continue(context.Background()))
}

func TestServiceErrors(t *testing.T) {
	g := newEngineGame(t, 0)
	g.err = service.ErrStopped
	h := NewGameHandler(g)
	assert.Equal(t, "❌ The game is shutting down", h.Post(context.Background(), nil))
}

func TestAdmin_ResetAndSave(t *testing.T) {
	ctx := context.Background()
	g := newEngineGame(t, 500)
	h := NewAdminHandler(g)

	assert.Equal(t, "💾 Game saved", h.Save(ctx))
	assert.Equal(t, 1, g.saves)

	assert.Equal(t, "♻️ Game reset", h.Reset(ctx))
	assert.Zero(t, g.View().State.Karma)
	assert.False(t, g.View().State.Subreddit("r-funny").Unlocked)
}

func TestAdmin_Crisis(t *testing.T) {
	ctx := context.Background()
	g := newEngineGame(t, 0)
	h := NewAdminHandler(g)

	assert.Contains(t, h.Crisis(ctx, nil), "mod-drama")
	assert.Contains(t, h.Crisis(ctx, []string{"meteor"}), "Unknown crisis")
	assert.Contains(t, h.Crisis(ctx, []string{"mod-drama"}), "needs a target")
	assert.Contains(t, h.Crisis(ctx, []string{"mod-drama", "pics"}), "not found or locked")

	reply := h.Crisis(ctx, []string{"mod-drama", "funny"})
	assert.True(t, strings.HasPrefix(reply, "✅ Injected Mod Drama in r/funny"), reply)
	require.Len(t, g.injected, 1)
	assert.Equal(t, model.PolarityCrisis, g.injected[0].Polarity)
	assert.Equal(t, "r-funny", g.injected[0].TargetID)
	assert.InDelta(t, 75, g.View().State.Subreddit("r-funny").Health, 1e-9)

	reply = h.Crisis(ctx, []string{"site-outage"})
	assert.True(t, strings.HasPrefix(reply, "✅ Injected Site Outage"), reply)
	assert.Empty(t, g.injected[1].TargetID)
}

func TestAdmin_Viral(t *testing.T) {
	ctx := context.Background()
	g := newEngineGame(t, 0)
	h := NewAdminHandler(g)

	assert.Contains(t, h.Viral(ctx, nil), "Usage")
	assert.Contains(t, h.Viral(ctx, []string{"funny", "0.5"}), "above 1")

	reply := h.Viral(ctx, []string{"r/funny", "4"})
	assert.Equal(t, "✅ Injected Viral post in r/funny! ×4.00 for 30s", reply)
	require.Len(t, g.View().State.Events, 1)
	assert.Equal(t, model.PolarityBoost, g.View().State.Events[0].Polarity)
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data, prefix, arg string
	}{
		{"\ftyc_post:r-funny", CallbackPost, "r-funny"},
		{"tyc_lvl:r-pics", CallbackLevelUp, "r-pics"},
		{"tyc_upg:automod", CallbackUpgrade, "automod"},
		{"tyc_mq:r-funny", CallbackModQueue, "r-funny"},
		{"\ftyc_refresh", CallbackRefresh, ""},
		{"shop_buy:x", "", "shop_buy:x"},
	}
	for _, tt := range tests {
		prefix, arg := ParseCallback(tt.data)
		assert.Equal(t, tt.prefix, prefix, tt.data)
		assert.Equal(t, tt.arg, arg, tt.data)
	}
}

func TestBuildStatusPanel(t *testing.T) {
	g := newEngineGame(t, 0)
	markup := BuildStatusPanel(g.View())

	require.Len(t, markup.InlineKeyboard, 2)
	row := markup.InlineKeyboard[0]
	require.Len(t, row, 3)
	assert.Equal(t, "📝 funny", row[0].Text)
	assert.Equal(t, CallbackPost+"r-funny", row[0].Unique)
	assert.Equal(t, CallbackRefresh, markup.InlineKeyboard[1][0].Unique)
}

func TestBuildUpgradePanel_OnlyAffordable(t *testing.T) {
	g := newEngineGame(t, 120)
	markup := BuildUpgradePanel(g.View())

	// automod (50) and meme-factory (100) in one row, then refresh
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
}
