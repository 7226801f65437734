// Package content models posts: short-lived income units whose rate follows
// a gamma-shaped impulse response
//
//	rate(t) = peak · (t/peakTime)^k · exp(k·(1 − t/peakTime))
//
// The curve is 0 at t = 0, equals peak exactly at t = peakTime and decays
// afterwards. Posts are dropped at t ≥ duration regardless of the residual rate.
package content

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"karma-tycoon/internal/model"
)

// Post generation constants.
const (
	FatiguePerPost = 0.1
	MaxFatigue     = 0.8
	MaxQuality     = 3.0

	minPeakTime   = 10.0
	peakTimeRange = 20.0
	minDuration   = 60.0
	durationRange = 120.0
	minK          = 1.5
	kRange        = 1.0
	minJitter     = 0.8
	jitterRange   = 0.7

	qualityPeakStretch     = 1.5
	qualityDurationStretch = 2.0
)

// Rate returns the income rate of a post t seconds after creation.
func Rate(p model.Post, t float64) float64 {
	if t <= 0 || p.PeakTime <= 0 || p.PeakKPS <= 0 {
		return 0
	}
	x := t / p.PeakTime
	return p.PeakKPS * math.Pow(x, p.K) * math.Exp(p.K*(1-x))
}

// Age returns seconds since the post was created.
func Age(p model.Post, now time.Time) float64 {
	return now.Sub(p.CreatedAt).Seconds()
}

// RateAt returns the income rate of a post at wall time now.
func RateAt(p model.Post, now time.Time) float64 {
	return Rate(p, Age(p, now))
}

// Expired reports whether the post has reached its hard cutoff.
func Expired(p model.Post, now time.Time) bool {
	return Age(p, now) >= p.Duration
}

// Params are the deterministic inputs to a post's peak amplitude.
type Params struct {
	SubredditID   string
	BaseKPS       float64
	Level         int
	Multiplier    float64 // subreddit milestone multiplier
	ContentMul    float64 // product of active content upgrades
	LocalEventMul float64
	FatigueMul    float64
	Seasonal      float64
	HealthMul     float64
	TierPower     float64
	Quality       float64
}

// NormalizeQuality maps a requested quality onto (0, MaxQuality].
func NormalizeQuality(q float64) float64 {
	if q <= 0 || math.IsNaN(q) {
		return 1
	}
	return math.Min(q, MaxQuality)
}

// Amplitude is the peak rate before random jitter.
func (p Params) Amplitude() float64 {
	level := p.Level
	if level < 1 {
		level = 1
	}
	return p.BaseKPS * float64(level) * p.Multiplier * p.ContentMul * p.LocalEventMul *
		p.FatigueMul * p.Seasonal * p.HealthMul * NormalizeQuality(p.Quality) * p.TierPower
}

// New creates a post at now. Higher quality stretches both time-to-peak and
// total duration.
func New(p Params, rng *rand.Rand, now time.Time) model.Post {
	quality := NormalizeQuality(p.Quality)
	jitter := minJitter + rng.Float64()*jitterRange
	peakTime := minPeakTime + rng.Float64()*peakTimeRange
	duration := minDuration + rng.Float64()*durationRange
	if quality > 1 {
		peakTime *= qualityPeakStretch
		duration *= qualityDurationStretch
	}
	return model.Post{
		ID:          "post-" + uuid.NewString(),
		SubredditID: p.SubredditID,
		CreatedAt:   now,
		PeakKPS:     p.Amplitude() * jitter,
		PeakTime:    peakTime,
		Duration:    duration,
		K:           minK + rng.Float64()*kRange,
	}
}

// AddFatigue returns fatigue after one more post, capped at MaxFatigue.
func AddFatigue(f float64) float64 {
	return math.Min(MaxFatigue, f+FatiguePerPost)
}
