package action

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/game"
	"karma-tycoon/internal/model"
)

var now = time.Unix(1_700_000_000, 0)

func newEnv(cat *catalog.Catalog, s *model.State, seed int64) game.Env {
	return game.Env{
		Catalog: cat,
		Tier:    cat.TierFor(s.LifetimeKarma),
		Now:     now,
		Rand:    rand.New(rand.NewSource(seed)),
	}
}

func start(t *testing.T, m *Machine, s *model.State, env game.Env, at model.ActionType, p model.ActionPayload) game.Rejection {
	t.Helper()
	effects, rej := m.Start(s, env, at, p)
	if rej.OK() {
		game.ApplyAll(s, effects)
	} else {
		assert.Empty(t, effects)
	}
	return rej
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 4, r.Count())
	assert.Equal(t, []model.ActionType{model.ActionContent, model.ActionLevelUp, model.ActionMaintenance, model.ActionUpgrade}, r.Types())
}

func TestStart_ContentChargesEnergy(t *testing.T) {
	cat := catalog.Default()
	s := cat.NewState()
	m := NewMachine(nil)
	env := newEnv(cat, s, 1)

	rej := start(t, m, s, env, model.ActionContent, model.ActionPayload{})
	require.True(t, rej.OK())
	require.NotNil(t, s.Action)
	assert.Equal(t, 49.0, s.Energy)
	assert.Equal(t, "r-funny", s.Action.Payload.SubredditID, "the only unlocked subreddit")
	assert.Equal(t, 1.0, s.Action.Payload.Quality)
	assert.GreaterOrEqual(t, s.Action.Duration, 1.0)
	assert.LessOrEqual(t, s.Action.Duration, 5.0)
}

func TestStart_Rejections(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		name    string
		setup   func(s *model.State)
		action  model.ActionType
		payload model.ActionPayload
		want    game.Rejection
	}{
		{"game over", func(s *model.State) { s.GameOver = true }, model.ActionContent, model.ActionPayload{}, game.RejectGameOver},
		{"busy", func(s *model.State) { s.Action = &model.ActiveAction{Type: model.ActionContent, Remaining: 1} }, model.ActionContent, model.ActionPayload{}, game.RejectBusy},
		{"unknown", func(s *model.State) {}, "dance", model.ActionPayload{}, game.RejectUnknown},
		{"no energy", func(s *model.State) { s.Energy = 0.5 }, model.ActionContent, model.ActionPayload{}, game.RejectEnergy},
		{"no slot", func(s *model.State) {
			for i := 0; i < 3; i++ {
				s.Posts = append(s.Posts, model.Post{SubredditID: "r-funny", CreatedAt: now, Duration: 100})
			}
		}, model.ActionContent, model.ActionPayload{}, game.RejectNoSlot},
		{"locked content target", func(s *model.State) {}, model.ActionContent, model.ActionPayload{SubredditID: "r-pics"}, game.RejectNoTarget},
		{"missing upgrade", func(s *model.State) {}, model.ActionUpgrade, model.ActionPayload{UpgradeID: "nope"}, game.RejectNoTarget},
		{"upgrade tier locked", func(s *model.State) { s.Karma = 1e9 }, model.ActionUpgrade, model.ActionPayload{UpgradeID: "viral-loop"}, game.RejectTierLocked},
		{"upgrade unaffordable", func(s *model.State) {}, model.ActionUpgrade, model.ActionPayload{UpgradeID: "automod"}, game.RejectFunds},
		{"upgrade active", func(s *model.State) {
			s.Karma = 1e3
			u := s.Upgrade("automod")
			u.Purchased, u.Remaining = true, 10
		}, model.ActionUpgrade, model.ActionPayload{UpgradeID: "automod"}, game.RejectActive},
		{"levelup unaffordable", func(s *model.State) { s.Karma = 9 }, model.ActionLevelUp, model.ActionPayload{SubredditID: "r-funny"}, game.RejectFunds},
		{"levelup tier locked", func(s *model.State) { s.Karma = 1e9 }, model.ActionLevelUp, model.ActionPayload{SubredditID: "r-aww"}, game.RejectTierLocked},
		{"maintenance healthy", func(s *model.State) {}, model.ActionMaintenance, model.ActionPayload{}, game.RejectHealthy},
		{"maintenance locked", func(s *model.State) {}, model.ActionMaintenance, model.ActionPayload{SubredditID: "r-pics"}, game.RejectNoTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cat.NewState()
			tt.setup(s)
			before := *s
			m := NewMachine(nil)

			rej := start(t, m, s, newEnv(cat, s, 1), tt.action, tt.payload)
			assert.Equal(t, tt.want, rej)
			assert.NotEmpty(t, rej.Message())
			assert.Equal(t, before.Energy, s.Energy)
			assert.Equal(t, before.Karma, s.Karma)
		})
	}
}

func TestLevelUp_ChargesAtStartAndUnlocks(t *testing.T) {
	cat := catalog.Default()
	s := cat.NewState()
	s.Karma = 150
	m := NewMachine(nil)
	env := newEnv(cat, s, 3)

	require.True(t, start(t, m, s, env, model.ActionLevelUp, model.ActionPayload{SubredditID: "r-pics"}).OK())
	assert.Equal(t, 50.0, s.Karma)
	assert.Equal(t, 47.0, s.Energy)
	assert.Equal(t, "Unlocking r/pics", s.Action.Label)

	// Not done yet.
	game.ApplyAll(s, m.Advance(s, env, s.Action.Duration/2))
	require.NotNil(t, s.Action)
	assert.False(t, s.Subreddit("r-pics").Unlocked)

	effects := m.Advance(s, env, s.Action.Duration)
	game.ApplyAll(s, effects)
	assert.Nil(t, s.Action)
	pics := s.Subreddit("r-pics")
	assert.True(t, pics.Unlocked)
	assert.Equal(t, 1, pics.Level)

	var notice game.Notice
	for _, e := range effects {
		if a, ok := e.(game.Announce); ok {
			notice = a.Notice
		}
	}
	assert.Equal(t, game.NoticeUnlock, notice.Kind)
}

func TestUpgrade_Completes(t *testing.T) {
	cat := catalog.Default()
	s := cat.NewState()
	s.Karma = 100
	m := NewMachine(nil)
	env := newEnv(cat, s, 4)

	require.True(t, start(t, m, s, env, model.ActionUpgrade, model.ActionPayload{UpgradeID: "automod"}).OK())
	assert.Equal(t, 50.0, s.Karma)
	assert.Equal(t, 48.0, s.Energy)

	game.ApplyAll(s, m.Advance(s, env, 10))
	u := s.Upgrade("automod")
	assert.True(t, u.Purchased)
	assert.Equal(t, u.Duration, u.Remaining)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, 57.0, catalog.UpgradeCost(*u), "repeat purchases cost more")
}

func TestContent_CompletesWithPost(t *testing.T) {
	cat := catalog.Default()
	s := cat.NewState()
	m := NewMachine(nil)
	env := newEnv(cat, s, 5)

	require.True(t, start(t, m, s, env, model.ActionContent, model.ActionPayload{Quality: 2}).OK())
	game.ApplyAll(s, m.Advance(s, env, 5))

	require.Len(t, s.Posts, 1)
	p := s.Posts[0]
	assert.Equal(t, "r-funny", p.SubredditID)
	assert.Greater(t, p.PeakKPS, 0.0)
	assert.GreaterOrEqual(t, p.Duration, 120.0, "high quality doubles duration")
	assert.InDelta(t, 0.1, s.Subreddit("r-funny").Fatigue, 1e-12)
}

func TestMaintenance_PicksUnhealthiest(t *testing.T) {
	cat := catalog.Default()
	s := cat.NewState()
	s.Subreddit("r-funny").Health = 90
	pics := s.Subreddit("r-pics")
	pics.Unlocked, pics.Level, pics.Health = true, 1, 40
	m := NewMachine(nil)
	env := newEnv(cat, s, 6)

	require.True(t, start(t, m, s, env, model.ActionMaintenance, model.ActionPayload{}).OK())
	assert.Equal(t, "r-pics", s.Action.Payload.SubredditID)
	game.ApplyAll(s, m.Advance(s, env, 15))
	assert.Equal(t, 60.0, s.Subreddit("r-pics").Health)
}

// TestSecondStartRejectedProperty checks a start while busy is rejected and
// charges nothing a second time.
func TestSecondStartRejectedProperty(t *testing.T) {
	cat := catalog.Default()
	types := []model.ActionType{model.ActionContent, model.ActionUpgrade, model.ActionLevelUp, model.ActionMaintenance}

	rapid.Check(t, func(t *rapid.T) {
		s := cat.NewState()
		s.Karma = rapid.Float64Range(0, 1e4).Draw(t, "karma")
		s.Energy = rapid.Float64Range(0, 50).Draw(t, "energy")
		s.Subreddit("r-funny").Health = rapid.Float64Range(0, 100).Draw(t, "health")
		m := NewMachine(nil)
		env := game.Env{Catalog: cat, Tier: cat.TierFor(0), Now: now, Rand: rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))}

		first := types[rapid.IntRange(0, 3).Draw(t, "first")]
		payload := model.ActionPayload{SubredditID: "r-funny", UpgradeID: "automod"}
		effects, rej := m.Start(s, env, first, payload)
		if !rej.OK() {
			return
		}
		game.ApplyAll(s, effects)
		energy, karma := s.Energy, s.Karma

		for i := rapid.IntRange(1, 5).Draw(t, "retries"); i > 0; i-- {
			second := types[rapid.IntRange(0, 3).Draw(t, "second")]
			effects, rej := m.Start(s, env, second, payload)
			if rej != game.RejectBusy || len(effects) != 0 {
				t.Fatalf("second start returned %q with %d effects", rej, len(effects))
			}
			game.ApplyAll(s, effects)
		}
		if s.Energy != energy || s.Karma != karma {
			t.Fatalf("resources changed: energy %v -> %v, karma %v -> %v", energy, s.Energy, karma, s.Karma)
		}
	})
}
