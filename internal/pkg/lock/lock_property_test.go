package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// acquireTimeout bounds every acquisition in these tests so a broken lock
// fails instead of hanging.
const acquireTimeout = time.Second

func boundedCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), acquireTimeout)
}

// TestConcurrentWritesSerializedProperty checks that read-modify-write
// sections on one slot behave as if run one after another.
func TestConcurrentWritesSerializedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(2, 30).Draw(t, "numOps")
		slot := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "slot")

		sl := NewSlotLock()
		version := 0
		var failures atomic.Int32

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				err := sl.WithLockContext(context.Background(), slot, func() error {
					current := version
					version = current + 1
					return nil
				})
				if err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		if failures.Load() != 0 {
			t.Fatalf("%d acquisitions failed without a deadline", failures.Load())
		}
		if version != numOps {
			t.Fatalf("expected %d serialized writes, got %d", numOps, version)
		}
	})
}

// TestSlotsIndependentProperty checks that different slots do not share a lock.
func TestSlotsIndependentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numSlots := rapid.IntRange(2, 10).Draw(t, "numSlots")
		sl := NewSlotLock()
		ctx, cancel := boundedCtx()
		defer cancel()

		for i := 0; i < numSlots; i++ {
			if err := sl.LockContext(ctx, fmt.Sprintf("slot-%d", i)); err != nil {
				t.Fatalf("slot-%d should be free while others are held: %v", i, err)
			}
		}
		for i := 0; i < numSlots; i++ {
			sl.Unlock(fmt.Sprintf("slot-%d", i))
		}
	})
}

// TestExclusiveProperty checks that at most one goroutine runs inside a
// slot's critical section at any moment.
func TestExclusiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")
		sl := NewSlotLock()

		var holders, maxHolders, successes atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		startCh := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-startCh
				_ = sl.WithLockContext(context.Background(), "default", func() error {
					successes.Add(1)
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					return nil
				})
			}()
		}
		close(startCh)
		wg.Wait()

		if int(successes.Load()) != numAttempts {
			t.Fatalf("expected %d holders over time, got %d", numAttempts, successes.Load())
		}
		if maxHolders.Load() > 1 {
			t.Fatalf("slot held by %d goroutines at once", maxHolders.Load())
		}
	})
}

// TestLockUnlockSymmetryProperty checks that balanced cycles leave the slot free.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")
		sl := NewSlotLock()
		ctx, cancel := boundedCtx()
		defer cancel()

		for i := 0; i < numCycles; i++ {
			if err := sl.LockContext(ctx, "default"); err != nil {
				t.Fatalf("cycle %d: %v", i, err)
			}
			sl.Unlock("default")
		}

		if err := sl.LockContext(ctx, "default"); err != nil {
			t.Fatal("slot should be free after symmetric lock/unlock cycles")
		}
		sl.Unlock("default")
	})
}

func TestWithLockContext_Timeout(t *testing.T) {
	sl := NewSlotLock()
	ctx, cancel := boundedCtx()
	defer cancel()
	require.NoError(t, sl.LockContext(ctx, "default"))
	defer sl.Unlock("default")

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()

	called := false
	err := sl.WithLockContext(short, "default", func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)
}

func TestWithLockContext_ReleasesOnError(t *testing.T) {
	sl := NewSlotLock()
	ctx, cancel := boundedCtx()
	defer cancel()

	boom := fmt.Errorf("write failed")
	err := sl.WithLockContext(ctx, "default", func() error { return boom })
	require.ErrorIs(t, err, boom)

	require.NoError(t, sl.LockContext(ctx, "default"), "lock must be released after fn fails")
	sl.Unlock("default")
}

func TestUnlockUnheldIsNoop(t *testing.T) {
	sl := NewSlotLock()
	sl.Unlock("default")

	ctx, cancel := boundedCtx()
	defer cancel()
	require.NoError(t, sl.LockContext(ctx, "default"))

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, sl.LockContext(short, "default"), ErrLockTimeout, "a single unlock must not leave a spare token")
	sl.Unlock("default")
}
