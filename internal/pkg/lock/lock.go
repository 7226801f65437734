// Package lock provides per-slot locking for snapshot storage. Autosave and
// explicit saves may race on the same slot; the lock serializes them.
package lock

import (
	"context"
	"sync"
)

// slotMutex is a one-token semaphore, so acquisition can honour a context.
type slotMutex struct {
	ch chan struct{}
}

func newSlotMutex() *slotMutex {
	return &slotMutex{ch: make(chan struct{}, 1)}
}

// SlotLock provides per-slot locking.
type SlotLock struct {
	mu    sync.Mutex
	locks map[string]*slotMutex
}

// NewSlotLock creates a new SlotLock instance.
func NewSlotLock() *SlotLock {
	return &SlotLock{locks: make(map[string]*slotMutex)}
}

// getLock retrieves or creates the mutex for a slot.
func (sl *SlotLock) getLock(slot string) *slotMutex {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	m, ok := sl.locks[slot]
	if !ok {
		m = newSlotMutex()
		sl.locks[slot] = m
	}
	return m
}

// Unlock releases the lock for a slot. Unlocking an unlocked slot is a no-op.
func (sl *SlotLock) Unlock(slot string) {
	select {
	case <-sl.getLock(slot).ch:
	default:
	}
}

// LockContext acquires the lock or gives up when ctx is done.
func (sl *SlotLock) LockContext(ctx context.Context, slot string) error {
	select {
	case sl.getLock(slot).ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrLockTimeout
	}
}

// WithLockContext executes a function while holding the slot's lock, giving
// up if ctx ends first.
func (sl *SlotLock) WithLockContext(ctx context.Context, slot string, fn func() error) error {
	if err := sl.LockContext(ctx, slot); err != nil {
		return err
	}
	defer sl.Unlock(slot)
	return fn()
}
