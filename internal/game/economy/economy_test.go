package economy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"karma-tycoon/internal/model"
)

var epoch = time.Unix(1_700_000_000, 0)

func testSub(id, category string, level int) model.Subreddit {
	return model.Subreddit{
		ID: id, Name: "r/" + id, Category: category, BaseKPS: 2, Level: level,
		Multiplier: 1, Unlocked: level > 0, ActivityPeriod: 3600, Health: 100,
	}
}

func TestHealthMultiplier(t *testing.T) {
	tests := []struct {
		health   float64
		expected float64
	}{
		{100, 1},
		{75, 1},
		{37.5, 0.5},
		{0, 0},
		{-10, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, HealthMultiplier(tt.health), 1e-12)
	}
}

func TestActivityScore(t *testing.T) {
	assert.Equal(t, 0.0, ActivityScore(0))
	assert.Equal(t, 0.5, ActivityScore(1))
	assert.Equal(t, 1.0, ActivityScore(2))
	assert.Equal(t, 1.0, ActivityScore(9))
}

func TestSeasonalBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := model.Subreddit{
			ActivityPeriod: rapid.Float64Range(1, 86400).Draw(t, "period"),
			ActivityPhase:  rapid.Float64Range(0, 2*math.Pi).Draw(t, "phase"),
		}
		now := time.UnixMilli(rapid.Int64Range(0, 4_000_000_000_000).Draw(t, "ms"))
		v := Seasonal(s, now)
		if v < 0.5-1e-12 || v > 1.5+1e-12 {
			t.Fatalf("seasonal %v out of range", v)
		}
	})
}

func TestUpgradeMultiplier_OnlyPurchasedOfKind(t *testing.T) {
	ups := []model.Upgrade{
		{Purchased: true, Effect: model.UpgradeEffect{Kind: model.EffectPassive, Magnitude: 2}},
		{Purchased: false, Effect: model.UpgradeEffect{Kind: model.EffectPassive, Magnitude: 10}},
		{Purchased: true, Effect: model.UpgradeEffect{Kind: model.EffectContent, Magnitude: 3}},
		{Purchased: true, Effect: model.UpgradeEffect{Kind: model.EffectPassive, Magnitude: 1.5}},
	}
	assert.Equal(t, 3.0, UpgradeMultiplier(ups, model.EffectPassive))
	assert.Equal(t, 3.0, UpgradeMultiplier(ups, model.EffectContent))
	assert.Equal(t, 1.0, UpgradeMultiplier(ups, model.EffectEventPower))
}

func TestEventMultipliers(t *testing.T) {
	events := []model.Event{
		{Scope: model.ScopeLocal, TargetID: "a", Multiplier: 3},
		{Scope: model.ScopeLocal, TargetID: "a", Multiplier: 0.5},
		{Scope: model.ScopeLocal, TargetID: "b", Multiplier: 7},
		{Scope: model.ScopeGlobal, Multiplier: 0.5},
	}
	assert.Equal(t, 1.5, LocalEventMultiplier(events, "a"))
	assert.Equal(t, 7.0, LocalEventMultiplier(events, "b"))
	assert.Equal(t, 1.0, LocalEventMultiplier(events, "c"))
	assert.Equal(t, 0.5, GlobalEventMultiplier(events))
}

func TestCalculate_Basic(t *testing.T) {
	subs := []model.Subreddit{
		testSub("a", "Fun", 2),
		testSub("b", "Fun", 1),
		testSub("c", "News", 0),
	}
	// At unix zero with phase 0 the oscillator sits at its midpoint.
	now := time.UnixMilli(0)
	posts := []model.Post{
		{ID: "p1", SubredditID: "a", CreatedAt: now.Add(-10 * time.Second), PeakKPS: 4, PeakTime: 10, Duration: 60, K: 2},
		{ID: "p2", SubredditID: "b", CreatedAt: now.Add(-10 * time.Second), PeakKPS: 6, PeakTime: 10, Duration: 60, K: 2},
		{ID: "p3", SubredditID: "c", CreatedAt: now.Add(-10 * time.Second), PeakKPS: 1, PeakTime: 10, Duration: 60, K: 2},
	}
	b := Calculate(Inputs{Subreddits: subs, Posts: posts, Now: now})

	require.Len(t, b.Subreddits, 2, "only leveled subreddits are listed")
	a := b.Subreddits[0]
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, 0.5, a.Activity)
	assert.InDelta(t, 1.05, a.Synergy, 1e-12, "one post in another Fun subreddit")
	assert.Equal(t, 1.0, a.Seasonal)

	// Post rates count even when the subreddit is not leveled.
	assert.InDelta(t, 11.0, b.ContentKPS, 1e-9)
	assert.InDelta(t, 2*2*0.5*1.05+2*1*0.5*1.05, b.PassiveKPS, 1e-6)
	assert.Equal(t, 1.0, b.GlobalMultiplier)
	assert.InDelta(t, b.PassiveKPS+b.ContentKPS, b.TotalKPS, 1e-9)
}

func TestCalculate_Pure(t *testing.T) {
	in := Inputs{
		Subreddits: []model.Subreddit{testSub("a", "Fun", 3)},
		Posts: []model.Post{
			{SubredditID: "a", CreatedAt: epoch, PeakKPS: 10, PeakTime: 5, Duration: 60, K: 2},
		},
		Events: []model.Event{{Scope: model.ScopeLocal, TargetID: "a", Multiplier: 2}},
		Now:    epoch.Add(3 * time.Second),
	}
	assert.Equal(t, Calculate(in), Calculate(in))
}

// TestGlobalScalingOnceProperty checks scaling the sum once equals summing the
// globally scaled per-source figures.
func TestGlobalScalingOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "subs")
		subs := make([]model.Subreddit, n)
		categories := []string{"Fun", "News", "Tech"}
		for i := range subs {
			subs[i] = model.Subreddit{
				ID:             string(rune('a' + i)),
				Category:       categories[rapid.IntRange(0, 2).Draw(t, "cat")],
				BaseKPS:        rapid.Float64Range(0, 1000).Draw(t, "kps"),
				Level:          rapid.IntRange(0, 50).Draw(t, "level"),
				Multiplier:     rapid.Float64Range(1, 8).Draw(t, "mul"),
				ActivityPeriod: rapid.Float64Range(60, 86400).Draw(t, "period"),
				Fatigue:        rapid.Float64Range(0, 0.8).Draw(t, "fatigue"),
				Health:         rapid.Float64Range(0, 100).Draw(t, "health"),
			}
		}
		var posts []model.Post
		for i := rapid.IntRange(0, 8).Draw(t, "posts"); i > 0; i-- {
			posts = append(posts, model.Post{
				SubredditID: subs[rapid.IntRange(0, n-1).Draw(t, "postSub")].ID,
				CreatedAt:   epoch.Add(-time.Duration(rapid.IntRange(0, 120).Draw(t, "age")) * time.Second),
				PeakKPS:     rapid.Float64Range(0, 500).Draw(t, "peak"),
				PeakTime:    rapid.Float64Range(1, 30).Draw(t, "peakTime"),
				Duration:    180,
				K:           rapid.Float64Range(1.5, 2.5).Draw(t, "k"),
			})
		}
		var upgrades []model.Upgrade
		for i := rapid.IntRange(0, 4).Draw(t, "upgrades"); i > 0; i-- {
			upgrades = append(upgrades, model.Upgrade{
				Purchased: rapid.Bool().Draw(t, "purchased"),
				Effect:    model.UpgradeEffect{Kind: model.EffectPassive, Magnitude: rapid.Float64Range(1, 11).Draw(t, "mag")},
			})
		}
		var events []model.Event
		for i := rapid.IntRange(0, 3).Draw(t, "globals"); i > 0; i-- {
			events = append(events, model.Event{Scope: model.ScopeGlobal, Multiplier: rapid.Float64Range(0.1, 10).Draw(t, "gmul")})
		}

		b := Calculate(Inputs{Subreddits: subs, Posts: posts, Upgrades: upgrades, Events: events, Now: epoch})

		g := b.GlobalMultiplier
		perSource := 0.0
		for _, sb := range b.Subreddits {
			perSource += sb.PassiveKPS * g
		}
		for _, p := range posts {
			perSource += rateAt(p) * g
		}

		tol := 1e-9 * math.Max(1, math.Abs(b.TotalKPS))
		if math.Abs(perSource-b.TotalKPS) > tol {
			t.Fatalf("per-source %v != aggregate %v", perSource, b.TotalKPS)
		}
		if math.Abs(g-b.UpgradeMul*b.GlobalEventMul) > 1e-12*math.Max(1, g) {
			t.Fatalf("global multiplier %v is not upgrades × events", g)
		}
	})
}

func rateAt(p model.Post) float64 {
	return Calculate(Inputs{Posts: []model.Post{p}, Now: epoch}).ContentKPS
}

func TestSynergyMatchesBreakdown(t *testing.T) {
	subs := []model.Subreddit{testSub("a", "Fun", 1), testSub("b", "Fun", 1), testSub("c", "Fun", 0)}
	posts := []model.Post{
		{SubredditID: "b", CreatedAt: epoch, Duration: 60},
		{SubredditID: "c", CreatedAt: epoch, Duration: 60},
		{SubredditID: "a", CreatedAt: epoch, Duration: 60},
	}
	b := Calculate(Inputs{Subreddits: subs, Posts: posts, Now: epoch})
	require.Len(t, b.Subreddits, 2)
	assert.InDelta(t, Synergy(subs, posts, subs[0]), b.Subreddits[0].Synergy, 1e-12)
	assert.InDelta(t, 1.1, b.Subreddits[0].Synergy, 1e-12)
}
