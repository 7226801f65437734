package catalog

import (
	"math"

	"karma-tycoon/internal/model"
)

// Subreddit categories drive synergy grouping.
const (
	CategoryEntertainment = "Entertainment"
	CategoryGaming        = "Gaming"
	CategoryEducation     = "Education"
	CategoryNews          = "News"
	CategoryTech          = "Tech"
	CategorySocial        = "Social"
	CategoryFinance       = "Finance"
)

// upgradeDurations is the effect duration in seconds by tier gate.
var upgradeDurations = map[int]float64{
	1: 120,
	2: 180,
	3: 240,
	4: 300,
	5: 600,
}

// UpgradeDuration returns the default effect duration for a tier gate.
func UpgradeDuration(tier int) float64 {
	if d, ok := upgradeDurations[tier]; ok {
		return d
	}
	return upgradeDurations[1]
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Tiers:      defaultTiers(),
		Subreddits: defaultSubreddits(),
		Upgrades:   defaultUpgrades(),
		Crises:     defaultCrises(),
	}
}

func defaultTiers() []model.TierInfo {
	return []model.TierInfo{
		{Level: 1, Name: "The Basics", MinKarma: 0, MaxKarma: 1e3, MaxPosts: 3, MaxEnergy: 50, RechargeRate: 1, ContentPower: 1, EnergyScale: 1},
		{Level: 2, Name: "Community Management", MinKarma: 1e3, MaxKarma: 1e4, MaxPosts: 5, MaxEnergy: 30, RechargeRate: 10, ContentPower: 15, EnergyScale: 0.6},
		{Level: 3, Name: "Viral Growth", MinKarma: 1e4, MaxKarma: 1e5, MaxPosts: 10, MaxEnergy: 15, RechargeRate: 60, ContentPower: 200, EnergyScale: 0.3},
		{Level: 4, Name: "Platform Dominance", MinKarma: 1e5, MaxKarma: 1e6, MaxPosts: 20, MaxEnergy: 5, RechargeRate: 300, ContentPower: 3000, EnergyScale: 0.1},
		{Level: 5, Name: "The Front Page", MinKarma: 1e6, MaxKarma: math.Inf(1), MaxPosts: 50, MaxEnergy: 1, RechargeRate: 1200, ContentPower: 50000, EnergyScale: 0.02},
	}
}

func sub(id, category string, tier int, kps, cost, period, phase float64) model.Subreddit {
	return model.Subreddit{
		ID:             id,
		Name:           "r/" + id[2:],
		Category:       category,
		Tier:           tier,
		BaseKPS:        kps,
		BaseCost:       cost,
		Multiplier:     1,
		ActivityPeriod: period,
		ActivityPhase:  phase,
		Health:         100,
	}
}

func defaultSubreddits() []model.Subreddit {
	subs := []model.Subreddit{
		sub("r-funny", CategoryEntertainment, 1, 1, 10, 3600, 0),
		sub("r-pics", CategoryEntertainment, 1, 5, 100, 7200, math.Pi/4),
		sub("r-gaming", CategoryGaming, 1, 20, 500, 14400, math.Pi/2),

		sub("r-aww", CategoryEntertainment, 2, 75, 2000, 3600, math.Pi),
		sub("r-science", CategoryEducation, 2, 150, 5000, 28800, 0),
		sub("r-worldnews", CategoryNews, 2, 300, 10000, 1800, math.Pi/3),

		sub("r-movies", CategoryEntertainment, 3, 800, 25000, 21600, math.Pi/6),
		sub("r-music", CategoryEntertainment, 3, 1500, 50000, 10800, math.Pi/8),
		sub("r-technology", CategoryTech, 3, 3000, 1e5, 43200, 0),

		sub("r-todayilearned", CategoryEducation, 4, 8000, 2.5e5, 86400, math.Pi/2),
		sub("r-askreddit", CategorySocial, 4, 15000, 5e5, 3600, 0),
		sub("r-showerthoughts", CategorySocial, 4, 30000, 1e6, 7200, math.Pi/4),

		sub("r-wallstreetbets", CategoryFinance, 5, 80000, 2.5e6, 14400, math.Pi/2),
		sub("r-cryptocurrency", CategoryFinance, 5, 150000, 5e6, 28800, 0),
		sub("r-announcements", CategorySocial, 5, 500000, 1e7, 86400, 0),
	}
	// The starter subreddit is open from the beginning at level 0.
	subs[0].Unlocked = true
	return subs
}

func upg(id, name, desc string, tier int, cost float64, kind model.EffectKind, mag float64) model.Upgrade {
	return model.Upgrade{
		ID:          id,
		Name:        name,
		Description: desc,
		Tier:        tier,
		BaseCost:    cost,
		Effect:      model.UpgradeEffect{Kind: kind, Magnitude: mag},
		Duration:    UpgradeDuration(tier),
	}
}

func defaultUpgrades() []model.Upgrade {
	return []model.Upgrade{
		upg("automod", "Automod", "Reduces spam and increases efficiency. +10% KPS", 1, 50, model.EffectPassive, 1.1),
		upg("meme-factory", "Meme Factory", "Industrial grade memes. 2x content power", 1, 100, model.EffectContent, 2),
		upg("influencer-partnership", "Influencer Partnership", "Big names are talking about your subs. +20% KPS", 1, 250, model.EffectPassive, 1.2),
		upg("better-titles", "Better Titles", "Catchier titles lead to more clicks. +15% KPS", 1, 500, model.EffectPassive, 1.15),
		upg("clickbait-mastery", "Clickbait Mastery", "You won't believe how much karma you'll get! 3x content power", 1, 750, model.EffectContent, 3),

		upg("dedicated-mods", "Dedicated Mods", "24/7 moderation for your communities. +25% KPS", 2, 1500, model.EffectPassive, 1.25),
		upg("caffeine-drip", "Caffeine Drip", "Mods run on coffee. +50% energy recharge", 2, 2000, model.EffectEnergyRecharge, 1.5),
		upg("subreddit-wiki", "Subreddit Wiki", "Better organization for new users. +30% KPS", 2, 3000, model.EffectPassive, 1.3),
		upg("discord-server", "Discord Server", "Build a community outside of Reddit. +40% KPS", 2, 5000, model.EffectPassive, 1.4),
		upg("bot-network", "Bot Network", "Automated engagement (the good kind). +50% KPS", 2, 8000, model.EffectPassive, 1.5),

		upg("trending-tab", "Trending Tab", "Get featured on the trending tab more often. +50% viral duration", 3, 15000, model.EffectEventDuration, 1.5),
		upg("front-page-feature", "Front Page Feature", "A guaranteed spot on the front page. 2x viral multiplier", 3, 30000, model.EffectEventPower, 2),
		upg("cross-posting", "Cross-posting Strategy", "Share your content across multiple subs. +100% KPS", 3, 60000, model.EffectPassive, 2),
		upg("viral-loop", "Viral Loop", "One viral post leads to another. 2x viral frequency", 3, 90000, model.EffectEventFrequency, 2),

		upg("algo-optimization", "Algorithm Optimization", "You know exactly what the algorithm wants. +150% KPS", 4, 150000, model.EffectPassive, 2.5),
		upg("verified-status", "Verified Status", "Blue checkmarks for everyone! +200% KPS", 4, 300000, model.EffectPassive, 3),
		upg("media-empire", "Media Empire", "You own the news cycle. 5x content power", 4, 600000, model.EffectContent, 5),
		upg("global-reach", "Global Reach", "Your content is translated into every language. +300% KPS", 4, 900000, model.EffectPassive, 4),

		upg("internet-sensation", "Internet Sensation", "Everyone knows your name. +500% KPS", 5, 1.5e6, model.EffectPassive, 6),
		upg("cultural-phenomenon", "Cultural Phenomenon", "You are the zeitgeist. 5x viral multiplier", 5, 3e6, model.EffectEventPower, 5),
		upg("mainstream-media", "Mainstream Media", "TV, radio and newspapers are talking. +1000% KPS", 5, 6e6, model.EffectPassive, 11),
		upg("front-page-internet", "Front Page of the Internet", "You ARE Reddit. 10x content power", 5, 1e7, model.EffectContent, 10),
	}
}

func defaultCrises() []CrisisDef {
	return []CrisisDef{
		{ID: "mod-drama", Name: "Mod Drama", Scope: model.ScopeLocal, Multiplier: 0.8, Duration: 45, HealthPenalty: 25},
		{ID: "shadowban", Name: "Shadowban", Scope: model.ScopeLocal, Multiplier: 0.1, Duration: 30},
		{ID: "site-outage", Name: "Site Outage", Scope: model.ScopeGlobal, Multiplier: 0.5, Duration: 20},
	}
}
