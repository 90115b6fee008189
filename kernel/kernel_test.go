package kernel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepTicksBlocksUntilWakeAtTick(t *testing.T) {
	k := newTestKernel(t, WithPolicy(RoundRobin), WithQuantum(4))
	pid := spawnReady(t, k, "sleeper", 1)
	k.Tick() // dispatch sleeper so it's the running PCB

	var wg sync.WaitGroup
	var sleepErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		sleepErr = k.SleepTicks(pid, 3)
	}()

	time.Sleep(10 * time.Millisecond)
	pcb, ok := k.Lookup(pid)
	require.True(t, ok)
	assert.Equal(t, StateBlocked, pcb.State)

	for i := 0; i < 5; i++ {
		k.Tick()
	}
	wg.Wait()
	require.NoError(t, sleepErr)
}

func TestSleepTicksZeroIsBadArgs(t *testing.T) {
	k := newTestKernel(t)
	pid := spawnReady(t, k, "a", 1)
	err := k.SleepTicks(pid, 0)
	assert.ErrorIs(t, err, ErrBadArgs)
}

func TestForceBlockAndForceUnblock(t *testing.T) {
	k := newTestKernel(t)
	pid := spawnReady(t, k, "a", 1)

	require.NoError(t, k.ForceBlock(pid))
	pcb, ok := k.Lookup(pid)
	require.True(t, ok)
	assert.Equal(t, StateBlocked, pcb.State)

	require.NoError(t, k.ForceUnblock(pid))
	pcb, ok = k.Lookup(pid)
	require.True(t, ok)
	assert.Equal(t, StateReady, pcb.State)
}

func TestForceBlockRejectsAlreadyBlocked(t *testing.T) {
	k := newTestKernel(t)
	pid := spawnReady(t, k, "a", 1)
	require.NoError(t, k.ForceBlock(pid))
	err := k.ForceBlock(pid)
	assert.ErrorIs(t, err, ErrBadArgs)
}

func TestKillWhileBlockedUnlinksFromWaiterQueue(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MutexCreate("m")
	require.NoError(t, err)
	owner := spawnReady(t, k, "owner", 1)
	waiter := spawnReady(t, k, "waiter", 1)
	require.NoError(t, k.MutexTryLock(id, owner))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		k.MutexLock(id, waiter)
	}()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, k.Kill(waiter))

	// Unlocking must not find the killed PCB in the waiter queue (it must
	// not be woken as the new owner).
	require.NoError(t, k.MutexUnlock(id, owner))
	stats := k.MutexList()
	require.Len(t, stats, 1)
	assert.False(t, stats[0].Locked)

	// The waiter goroutine is now stuck parked on its wake channel since it
	// was unlinked rather than woken; that's fine for this test, which only
	// checks table-side bookkeeping. Waiting on it here would hang the test,
	// so the goroutine is left parked.
	_ = wg
}

func TestMetricsTracksDispatches(t *testing.T) {
	k := newTestKernel(t, WithPolicy(RoundRobin), WithQuantum(1))
	spawnReady(t, k, "a", 1)
	spawnReady(t, k, "b", 1)

	for i := 0; i < 6; i++ {
		k.Tick()
	}
	snap := k.Metrics()
	assert.Greater(t, snap.Dispatches, uint64(0))
}

func TestSetStrictTogglesInvariantPanicBehavior(t *testing.T) {
	k := newTestKernel(t)
	k.SetStrict(false)
	err := k.checkInvariant(false, "I-test", "manufactured for test")
	require.Error(t, err)
	var invErr *InvariantError
	assert.ErrorAs(t, err, &invErr)

	k.SetStrict(true)
	assert.Panics(t, func() {
		_ = k.checkInvariant(false, "I-test", "manufactured for test")
	})
}
