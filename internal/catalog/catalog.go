// Package catalog provides the static definitions of the karma tycoon game:
// subreddits, global upgrades, tier brackets and the crisis table.
//
// A Catalog is immutable once built. Mutable progress lives in model.State and
// is reconciled against the catalog on load.
package catalog

import (
	"errors"
	"fmt"
	"math"

	"karma-tycoon/internal/model"
)

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// CostGrowth is the per-level cost growth factor for level-ups and upgrades.
const CostGrowth = 1.15

// CrisisDef is an entry in the crisis table.
type CrisisDef struct {
	ID            string
	Name          string
	Scope         model.Scope
	Multiplier    float64
	Duration      float64 // seconds
	HealthPenalty float64 // one-shot, local crises only
}

// Catalog holds the canonical entity definitions. Subreddits and Upgrades
// are stored with their default (fresh game) progress values.
type Catalog struct {
	Tiers      []model.TierInfo
	Subreddits []model.Subreddit
	Upgrades   []model.Upgrade
	Crises     []CrisisDef
}

// Subreddit returns the catalog definition for id.
func (c *Catalog) Subreddit(id string) (model.Subreddit, bool) {
	for _, s := range c.Subreddits {
		if s.ID == id {
			return s, true
		}
	}
	return model.Subreddit{}, false
}

// Upgrade returns the catalog definition for id.
func (c *Catalog) Upgrade(id string) (model.Upgrade, bool) {
	for _, u := range c.Upgrades {
		if u.ID == id {
			return u, true
		}
	}
	return model.Upgrade{}, false
}

// TierFor returns the bracket containing lifetime karma. Negative values map
// to the first bracket and anything past the last bound to the last one.
func (c *Catalog) TierFor(lifetime float64) model.TierInfo {
	if len(c.Tiers) == 0 {
		return model.TierInfo{}
	}
	for _, t := range c.Tiers {
		if t.Contains(lifetime) {
			return t
		}
	}
	if lifetime < c.Tiers[0].MinKarma {
		return c.Tiers[0]
	}
	return c.Tiers[len(c.Tiers)-1]
}

// Tier returns the bracket with the given level, falling back to the first.
func (c *Catalog) Tier(level int) model.TierInfo {
	for _, t := range c.Tiers {
		if t.Level == level {
			return t
		}
	}
	if len(c.Tiers) == 0 {
		return model.TierInfo{}
	}
	return c.Tiers[0]
}

// MaxTier returns the highest tier level.
func (c *Catalog) MaxTier() int {
	if len(c.Tiers) == 0 {
		return 0
	}
	return c.Tiers[len(c.Tiers)-1].Level
}

// NewState returns a fresh game state built from the catalog defaults.
func (c *Catalog) NewState() *model.State {
	first := c.TierFor(0)
	return &model.State{
		Energy:         first.MaxEnergy,
		Tier:           first.Level,
		ChartTimeframe: DefaultTimeframe,
		Subreddits:     append([]model.Subreddit(nil), c.Subreddits...),
		Upgrades:       append([]model.Upgrade(nil), c.Upgrades...),
	}
}

// LevelUpCost is the price of the next level of a subreddit.
func LevelUpCost(s model.Subreddit) float64 {
	return s.BaseCost * math.Pow(CostGrowth, float64(s.Level))
}

// UpgradeCost is the price of the next purchase of an upgrade.
func UpgradeCost(u model.Upgrade) float64 {
	return math.Floor(u.BaseCost * math.Pow(CostGrowth, float64(u.Level)))
}

// Validate checks that tiers are contiguous and exhaustive and that every
// entity is well formed.
func (c *Catalog) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidCatalog)
	}
	if c.Tiers[0].MinKarma != 0 {
		return fmt.Errorf("%w: first tier must start at 0", ErrInvalidCatalog)
	}
	for i, t := range c.Tiers {
		if t.MaxKarma <= t.MinKarma {
			return fmt.Errorf("%w: tier %d has empty range", ErrInvalidCatalog, t.Level)
		}
		if i > 0 && c.Tiers[i-1].MaxKarma != t.MinKarma {
			return fmt.Errorf("%w: gap or overlap between tier %d and %d", ErrInvalidCatalog, c.Tiers[i-1].Level, t.Level)
		}
		if i > 0 && c.Tiers[i-1].Level >= t.Level {
			return fmt.Errorf("%w: tier levels must increase", ErrInvalidCatalog)
		}
		if t.MaxPosts <= 0 || t.MaxEnergy <= 0 || t.RechargeRate <= 0 {
			return fmt.Errorf("%w: tier %d has non-positive caps", ErrInvalidCatalog, t.Level)
		}
		if t.ContentPower <= 0 || t.EnergyScale <= 0 {
			return fmt.Errorf("%w: tier %d has non-positive content power or energy scale", ErrInvalidCatalog, t.Level)
		}
	}
	if !math.IsInf(c.Tiers[len(c.Tiers)-1].MaxKarma, 1) {
		return fmt.Errorf("%w: last tier must be open-ended", ErrInvalidCatalog)
	}

	seen := make(map[string]bool)
	for _, s := range c.Subreddits {
		if s.ID == "" || seen[s.ID] {
			return fmt.Errorf("%w: duplicate or empty subreddit id %q", ErrInvalidCatalog, s.ID)
		}
		seen[s.ID] = true
		if s.ActivityPeriod <= 0 {
			return fmt.Errorf("%w: subreddit %s has non-positive activity period", ErrInvalidCatalog, s.ID)
		}
		if s.BaseKPS < 0 || s.BaseCost <= 0 {
			return fmt.Errorf("%w: subreddit %s has invalid rate or cost", ErrInvalidCatalog, s.ID)
		}
		if !s.Unlocked && s.Level != 0 {
			return fmt.Errorf("%w: locked subreddit %s has a level", ErrInvalidCatalog, s.ID)
		}
	}

	seen = make(map[string]bool)
	for _, u := range c.Upgrades {
		if u.ID == "" || seen[u.ID] {
			return fmt.Errorf("%w: duplicate or empty upgrade id %q", ErrInvalidCatalog, u.ID)
		}
		seen[u.ID] = true
		if !u.Effect.Kind.Valid() {
			return fmt.Errorf("%w: upgrade %s has unknown effect %q", ErrInvalidCatalog, u.ID, u.Effect.Kind)
		}
		if u.Effect.Magnitude <= 0 || u.Duration <= 0 || u.BaseCost <= 0 {
			return fmt.Errorf("%w: upgrade %s has non-positive magnitude, duration or cost", ErrInvalidCatalog, u.ID)
		}
	}

	for _, cr := range c.Crises {
		if cr.Scope != model.ScopeLocal && cr.Scope != model.ScopeGlobal {
			return fmt.Errorf("%w: crisis %s has unknown scope %q", ErrInvalidCatalog, cr.ID, cr.Scope)
		}
		if cr.Multiplier < 0 || cr.Duration <= 0 {
			return fmt.Errorf("%w: crisis %s has invalid multiplier or duration", ErrInvalidCatalog, cr.ID)
		}
	}
	return nil
}

// ChartTimeframes are the selectable candle widths in seconds.
var ChartTimeframes = []int{10, 30, 60, 300}

// DefaultTimeframe is the candle width available from the start.
const DefaultTimeframe = 10

// ValidTimeframe reports whether sec is a selectable candle width.
func ValidTimeframe(sec int) bool {
	for _, tf := range ChartTimeframes {
		if tf == sec {
			return true
		}
	}
	return false
}
