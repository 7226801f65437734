package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"karma-tycoon/internal/catalog"
	"karma-tycoon/internal/config"
	"karma-tycoon/internal/format"
	"karma-tycoon/internal/game/engine"
	"karma-tycoon/internal/handler"
	"karma-tycoon/internal/model"
	"karma-tycoon/internal/repository"
	"karma-tycoon/internal/service"
)

const commandTimeout = 30 * time.Second

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

// leaderboard is implemented by stores that can rank slots server side.
type leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]repository.SlotInfo, error)
}

// withStore loads config and opens the store for a maintenance command.
func withStore(cmd *cobra.Command, configDir string, fn func(ctx context.Context, cfg *config.Config, store repository.Store) error) error {
	cfg, err := setup(configDir)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	opened, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer opened.close()
	if opened.health != nil {
		if err := opened.health(ctx); err != nil {
			return fmt.Errorf("store is unreachable: %w", err)
		}
	}
	return fn(ctx, cfg, opened.Store)
}

func slotFlag(cmd *cobra.Command, fallback string) string {
	if s, _ := cmd.Flags().GetString("slot"); s != "" {
		return s
	}
	return fallback
}

func newStatusCmd(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved state of a slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *configDir, func(ctx context.Context, cfg *config.Config, store repository.Store) error {
				slot := slotFlag(cmd, cfg.Storage.Slot)
				if _, err := store.Load(ctx, slot); errors.Is(err, repository.ErrSlotNotFound) {
					warn.Printf("Slot %q has no save yet\n", slot)
					return nil
				}
				cat, err := loadCatalog(cfg)
				if err != nil {
					return err
				}
				state := service.LoadState(ctx, store, cat, slot, time.Now())
				v := engine.New(cat, engine.DefaultConfig(), engine.WithState(state)).View()
				printStatus(slot, v)
				return nil
			})
		},
	}
	cmd.Flags().String("slot", "", "save slot (defaults to storage.slot)")
	return cmd
}

func printStatus(slot string, v *engine.View) {
	accent.Printf("Slot %s\n", slot)
	fmt.Print(handler.RenderStatus(v))
	if v.State.GameOver {
		danger.Println("Game over")
	} else {
		success.Printf("Earning %s\n", format.KPS(v.TotalKPS))
	}
}

func newSlotsCmd(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List save slots, ranked by lifetime karma when the store supports it",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withStore(cmd, *configDir, func(ctx context.Context, _ *config.Config, store repository.Store) error {
				var (
					slots []repository.SlotInfo
					err   error
				)
				if lb, ok := store.(leaderboard); ok {
					slots, err = lb.Leaderboard(ctx, limit)
				} else {
					slots, err = store.List(ctx)
				}
				if err != nil {
					return err
				}
				if len(slots) == 0 {
					warn.Println("No saves")
					return nil
				}
				accent.Printf("%-24s %12s  %-20s %s\n", "SLOT", "LIFETIME", "SAVED", "VERSION")
				for _, s := range slots {
					neutral.Printf("%-24s %12s  %-20s v%d\n",
						s.Slot, format.Karma(s.LifetimeKarma), s.SavedAt.Local().Format("2006-01-02 15:04:05"), s.Version)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 20, "maximum rows for ranked listings")
	return cmd
}

func newResetCmd(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete a save slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return withStore(cmd, *configDir, func(ctx context.Context, cfg *config.Config, store repository.Store) error {
				slot := slotFlag(cmd, cfg.Storage.Slot)
				if !yes {
					warn.Printf("This deletes slot %q. Re-run with --yes to confirm.\n", slot)
					return nil
				}
				if err := store.Delete(ctx, slot); err != nil {
					return err
				}
				success.Printf("Slot %q deleted. A running server will write it again on its next save.\n", slot)
				return nil
			})
		},
	}
	cmd.Flags().String("slot", "", "save slot (defaults to storage.slot)")
	cmd.Flags().Bool("yes", false, "confirm deletion")
	return cmd
}

func newCatalogCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print tiers, subreddits, upgrades and crises",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configDir)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			printCatalog(cat)
			return nil
		},
	}
}

func printCatalog(cat *catalog.Catalog) {
	accent.Println("Tiers")
	for _, t := range cat.Tiers {
		upper := "∞"
		if !math.IsInf(t.MaxKarma, 1) {
			upper = format.Karma(t.MaxKarma)
		}
		neutral.Printf("  %d %-22s %8s – %-6s posts %-3d energy %-3s\n",
			t.Level, t.Name, format.Karma(t.MinKarma), upper, t.MaxPosts, format.Karma(t.MaxEnergy))
	}

	accent.Println("Subreddits")
	for _, s := range cat.Subreddits {
		neutral.Printf("  T%d %-20s %-14s %10s  cost %s\n",
			s.Tier, s.Name, s.Category, format.KPS(s.BaseKPS), format.Karma(s.BaseCost))
	}

	accent.Println("Upgrades")
	for _, u := range cat.Upgrades {
		neutral.Printf("  T%d %-24s %-16s ×%-5.2f %6s  %s\n",
			u.Tier, u.Name, u.Effect.Kind, u.Effect.Magnitude, format.Karma(u.BaseCost), format.Seconds(u.Duration))
	}

	accent.Println("Crises")
	for _, c := range cat.Crises {
		scope := danger.Sprint(c.Scope)
		if c.Scope == model.ScopeLocal {
			scope = warn.Sprint(c.Scope)
		}
		neutral.Printf("  %-14s %-12s ×%-5.2f %s\n", c.ID, c.Name, c.Multiplier, format.Seconds(c.Duration))
		fmt.Printf("    scope %s\n", scope)
	}
}
