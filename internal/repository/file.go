package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"karma-tycoon/internal/persist"
	"karma-tycoon/internal/pkg/lock"
)

// FileStore keeps one JSON file per slot in a directory. Writes go to a
// temporary file that is renamed into place.
type FileStore struct {
	dir   string
	locks *lock.SlotLock
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStore{dir: dir, locks: lock.NewSlotLock()}, nil
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+".json")
}

// Save writes the snapshot for slot.
func (s *FileStore) Save(ctx context.Context, slot string, snap *persist.Snapshot) error {
	if !ValidSlot(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return s.locks.WithLockContext(ctx, slot, func() error {
		tmp, err := os.CreateTemp(s.dir, slot+"-*.tmp")
		if err != nil {
			return fmt.Errorf("failed to create temp file: %w", err)
		}
		defer os.Remove(tmp.Name())

		if err := persist.Encode(tmp, snap); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to close snapshot: %w", err)
		}
		if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
			return fmt.Errorf("failed to replace snapshot: %w", err)
		}
		log.Debug().Str("slot", slot).Msg("Snapshot written")
		return nil
	})
}

// Load reads the snapshot for slot.
func (s *FileStore) Load(ctx context.Context, slot string) (*persist.Snapshot, error) {
	if !ValidSlot(slot) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	var snap *persist.Snapshot
	err := s.locks.WithLockContext(ctx, slot, func() error {
		data, err := os.ReadFile(s.path(slot))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return ErrSlotNotFound
			}
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		snap, err = persist.Unmarshal(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes the slot's file. Deleting a missing slot is not an error.
func (s *FileStore) Delete(ctx context.Context, slot string) error {
	if !ValidSlot(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return s.locks.WithLockContext(ctx, slot, func() error {
		if err := os.Remove(s.path(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
		return nil
	})
}

// List returns every readable slot, sorted by name.
func (s *FileStore) List(ctx context.Context) ([]SlotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list save directory: %w", err)
	}
	var out []SlotInfo
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || !ValidSlot(name) {
			continue
		}
		snap, err := s.Load(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("slot", name).Msg("Skipping unreadable save")
			continue
		}
		out = append(out, infoOf(name, snap))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

// Close does nothing.
func (s *FileStore) Close() error { return nil }
