package repository

import (
	"context"

	"karma-tycoon/internal/persist"
)

// NoopStore discards saves. Every game starts fresh.
type NoopStore struct{}

// Save does nothing.
func (NoopStore) Save(context.Context, string, *persist.Snapshot) error { return nil }

// Load always reports a missing slot.
func (NoopStore) Load(context.Context, string) (*persist.Snapshot, error) {
	return nil, ErrSlotNotFound
}

// Delete does nothing.
func (NoopStore) Delete(context.Context, string) error { return nil }

// List returns no slots.
func (NoopStore) List(context.Context) ([]SlotInfo, error) { return nil, nil }

// Close does nothing.
func (NoopStore) Close() error { return nil }
