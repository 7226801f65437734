package catalog

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"karma-tycoon/internal/model"
)

// document is the on-disk catalog format. Sections left out fall back to the
// built-in defaults.
type document struct {
	Tiers      []tierDoc      `yaml:"tiers"`
	Subreddits []subredditDoc `yaml:"subreddits"`
	Upgrades   []upgradeDoc   `yaml:"upgrades"`
	Crises     []crisisDoc    `yaml:"crises"`
}

type tierDoc struct {
	Tier         int     `yaml:"tier"`
	Name         string  `yaml:"name"`
	MinKarma     float64 `yaml:"min_karma"`
	MaxKarma     float64 `yaml:"max_karma"` // 0 on the last tier means open-ended
	MaxPosts     int     `yaml:"max_posts"`
	MaxEnergy    float64 `yaml:"max_energy"`
	RechargeRate float64 `yaml:"recharge_rate"`
	ContentPower float64 `yaml:"content_power"`
	EnergyScale  float64 `yaml:"energy_scale"`
}

type subredditDoc struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Tier     int     `yaml:"tier"`
	KPS      float64 `yaml:"kps"`
	Cost     float64 `yaml:"cost"`
	Period   float64 `yaml:"period"`
	Phase    float64 `yaml:"phase"`
	Unlocked bool    `yaml:"unlocked"`
}

type upgradeDoc struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Tier        int     `yaml:"tier"`
	Cost        float64 `yaml:"cost"`
	Kind        string  `yaml:"kind"`
	Magnitude   float64 `yaml:"magnitude"`
	Duration    float64 `yaml:"duration"`
}

type crisisDoc struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Scope         string  `yaml:"scope"`
	Multiplier    float64 `yaml:"multiplier"`
	Duration      float64 `yaml:"duration"`
	HealthPenalty float64 `yaml:"health_penalty"`
}

// LoadYAML decodes a catalog from r and validates it.
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	cat := Default()
	if len(doc.Tiers) > 0 {
		cat.Tiers = make([]model.TierInfo, 0, len(doc.Tiers))
		for i, t := range doc.Tiers {
			maxKarma := t.MaxKarma
			if i == len(doc.Tiers)-1 && maxKarma == 0 {
				maxKarma = math.Inf(1)
			}
			scale := t.EnergyScale
			if scale == 0 {
				scale = 1
			}
			cat.Tiers = append(cat.Tiers, model.TierInfo{
				Level:        t.Tier,
				Name:         t.Name,
				MinKarma:     t.MinKarma,
				MaxKarma:     maxKarma,
				MaxPosts:     t.MaxPosts,
				MaxEnergy:    t.MaxEnergy,
				RechargeRate: t.RechargeRate,
				ContentPower: t.ContentPower,
				EnergyScale:  scale,
			})
		}
	}
	if len(doc.Subreddits) > 0 {
		cat.Subreddits = make([]model.Subreddit, 0, len(doc.Subreddits))
		for _, s := range doc.Subreddits {
			m := model.Subreddit{
				ID:             s.ID,
				Name:           s.Name,
				Category:       s.Category,
				Tier:           s.Tier,
				BaseKPS:        s.KPS,
				BaseCost:       s.Cost,
				Multiplier:     1,
				Unlocked:       s.Unlocked,
				ActivityPeriod: s.Period,
				ActivityPhase:  s.Phase,
				Health:         100,
			}
			if m.Name == "" {
				m.Name = s.ID
			}
			cat.Subreddits = append(cat.Subreddits, m)
		}
	}
	if len(doc.Upgrades) > 0 {
		cat.Upgrades = make([]model.Upgrade, 0, len(doc.Upgrades))
		for _, u := range doc.Upgrades {
			m := upg(u.ID, u.Name, u.Description, u.Tier, u.Cost, model.EffectKind(u.Kind), u.Magnitude)
			if u.Duration > 0 {
				m.Duration = u.Duration
			}
			cat.Upgrades = append(cat.Upgrades, m)
		}
	}
	if len(doc.Crises) > 0 {
		cat.Crises = make([]CrisisDef, 0, len(doc.Crises))
		for _, c := range doc.Crises {
			cat.Crises = append(cat.Crises, CrisisDef{
				ID:            c.ID,
				Name:          c.Name,
				Scope:         model.Scope(c.Scope),
				Multiplier:    c.Multiplier,
				Duration:      c.Duration,
				HealthPenalty: c.HealthPenalty,
			})
		}
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// LoadFile reads a YAML catalog from path. An empty path yields Default.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}
