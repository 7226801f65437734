package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierInfo_Contains(t *testing.T) {
	closed := TierInfo{MinKarma: 10, MaxKarma: 20}
	assert.True(t, closed.Contains(10))
	assert.False(t, closed.Contains(20))

	open := TierInfo{MinKarma: 20, MaxKarma: math.Inf(1)}
	assert.True(t, open.Contains(1e300))
	assert.True(t, open.Contains(math.Inf(1)))
}

func TestTierInfo_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(TierInfo{Level: 5, Name: "Top", MinKarma: 1e6, MaxKarma: math.Inf(1)})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Nil(t, out["max_karma"])
	assert.Equal(t, 5.0, out["tier"])
	assert.Equal(t, "Top", out["name"])

	b, err = json.Marshal(TierInfo{MaxKarma: 1000})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"max_karma":1000`)
}

func TestState_Clone(t *testing.T) {
	s := &State{
		Subreddits: []Subreddit{{ID: "a", Level: 1}},
		Upgrades:   []Upgrade{{ID: "u"}},
		Posts:      []Post{{ID: "p"}},
		Events:     []Event{{ID: "e"}},
		History:    []Candle{{Bucket: 1}},
		Action:     &ActiveAction{Remaining: 3},
		Candle:     &Candle{Bucket: 2},
	}
	c := s.Clone()
	c.Subreddits[0].Level = 9
	c.Upgrades[0].Level = 9
	c.Posts[0].ID = "x"
	c.Events[0].ID = "x"
	c.History[0].Bucket = 9
	c.Action.Remaining = 0
	c.Candle.Bucket = 9

	assert.Equal(t, 1, s.Subreddits[0].Level)
	assert.Equal(t, 0, s.Upgrades[0].Level)
	assert.Equal(t, "p", s.Posts[0].ID)
	assert.Equal(t, "e", s.Events[0].ID)
	assert.Equal(t, int64(1), s.History[0].Bucket)
	assert.Equal(t, 3.0, s.Action.Remaining)
	assert.Equal(t, int64(2), s.Candle.Bucket)
}

func TestState_Lookups(t *testing.T) {
	s := &State{
		Subreddits: []Subreddit{{ID: "a"}, {ID: "b"}},
		Posts:      []Post{{SubredditID: "b"}, {SubredditID: "b"}, {SubredditID: "a"}},
	}
	require.NotNil(t, s.Subreddit("b"))
	assert.Nil(t, s.Subreddit("c"))
	assert.Nil(t, s.Upgrade("c"))
	assert.Equal(t, 2, s.PostsIn("b"))
}
