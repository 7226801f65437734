// Package repository provides snapshot storage backends. A game is saved in a
// named slot; loading a missing slot returns ErrSlotNotFound.
package repository

import (
	"context"
	"errors"
	"time"

	"karma-tycoon/internal/model"
	"karma-tycoon/internal/persist"
)

// Common errors for repository operations.
var (
	ErrSlotNotFound = errors.New("save slot not found")
	ErrInvalidSlot  = errors.New("invalid save slot name")
)

// SlotInfo summarizes a saved slot.
type SlotInfo struct {
	Slot          string
	Version       int
	SavedAt       time.Time
	LifetimeKarma float64
}

// Store persists snapshots by slot.
type Store interface {
	Save(ctx context.Context, slot string, snap *persist.Snapshot) error
	Load(ctx context.Context, slot string) (*persist.Snapshot, error)
	Delete(ctx context.Context, slot string) error
	List(ctx context.Context) ([]SlotInfo, error)
	Close() error
}

// CandleArchive keeps sealed candles beyond the in-game history window.
type CandleArchive interface {
	ArchiveCandles(ctx context.Context, slot string, timeframe int, candles []model.Candle) error
	Candles(ctx context.Context, slot string, timeframe, limit int) ([]model.Candle, error)
}

// ValidSlot reports whether name is usable as a slot (and as a file name).
func ValidSlot(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func infoOf(slot string, snap *persist.Snapshot) SlotInfo {
	return SlotInfo{
		Slot:          slot,
		Version:       snap.Version,
		SavedAt:       snap.SavedAt,
		LifetimeKarma: snap.LifetimeKarma,
	}
}
