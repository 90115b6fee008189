package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInvariantI3WaiterQueueMembershipMatchesBlockCause checks I3 directly:
// a PCB sits in a primitive's waiter queue iff state = Blocked(cause) and
// cause names that primitive.
func TestInvariantI3WaiterQueueMembershipMatchesBlockCause(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MutexCreate("m")
	require.NoError(t, err)
	owner := spawnReady(t, k, "owner", 1)
	waiter := spawnReady(t, k, "waiter", 1)
	require.NoError(t, k.MutexTryLock(id, owner))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = k.MutexLock(id, waiter)
	}()
	time.Sleep(20 * time.Millisecond)

	pcb, ok := k.Lookup(waiter)
	require.True(t, ok)
	assert.Equal(t, StateBlocked, pcb.State)
	assert.Equal(t, BlockMutex, pcb.Block.kind)
	assert.Equal(t, id, pcb.Block.resourceID)

	func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		m := k.mutexes[id]
		require.Len(t, m.waiters, 1)
		assert.Same(t, pcb, m.waiters[0], "the blocked PCB must be exactly the mutex's waiter")
	}()

	require.NoError(t, k.MutexUnlock(id, owner))
	<-done
	require.NoError(t, k.MutexUnlock(id, waiter))
}

// TestInvariantI4RemainingSliceNeverExceedsTimeSlice exercises I4 across a
// run of RoundRobin ticks: remaining_slice must always sit in [0, time_slice].
func TestInvariantI4RemainingSliceNeverExceedsTimeSlice(t *testing.T) {
	const quantum = 3
	k := newTestKernel(t, WithPolicy(RoundRobin), WithQuantum(quantum))
	spawnReady(t, k, "a", 1)
	spawnReady(t, k, "b", 1)

	for i := 0; i < 30; i++ {
		k.Tick()
		k.mu.Lock()
		if r := k.sched.running; r != nil {
			assert.GreaterOrEqual(t, r.RemainingSlice, 0, "I4 lower bound")
			assert.LessOrEqual(t, r.RemainingSlice, r.TimeSlice, "I4 upper bound")
		}
		k.mu.Unlock()
	}
}

// TestInvariantI7MailboxCountBoundsAndBlockConditions checks I7: count stays
// within [0, capacity], senders block exactly when full, receivers block
// exactly when empty.
func TestInvariantI7MailboxCountBoundsAndBlockConditions(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("m", 2, 16)
	require.NoError(t, err)
	sender := spawnReady(t, k, "sender", 1)
	receiver := spawnReady(t, k, "receiver", 1)

	stats, err := k.MboxStats(id)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)

	// Receiver blocks when count = 0.
	_, err = k.MboxRecv(id, receiver)
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, k.MboxSend(id, sender, []byte("a")))
	require.NoError(t, k.MboxSend(id, sender, []byte("b")))
	stats, err = k.MboxStats(id)
	require.NoError(t, err)
	assert.Equal(t, stats.Capacity, stats.Count)

	// Sender blocks exactly when count = capacity.
	err = k.MboxSend(id, sender, []byte("c"))
	assert.ErrorIs(t, err, ErrFull)

	_, err = k.MboxRecv(id, receiver)
	require.NoError(t, err)
	stats, err = k.MboxStats(id)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.LessOrEqual(t, stats.Count, stats.Capacity)
	assert.GreaterOrEqual(t, stats.Count, 0)
}

// TestInvariantI8MutexLockedIffOwnerIsLivePID checks I8: locked is true iff
// owner_pid names a live PID, before locking, while held, and after unlock.
func TestInvariantI8MutexLockedIffOwnerIsLivePID(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MutexCreate("m")
	require.NoError(t, err)
	owner := spawnReady(t, k, "owner", 1)

	stats := k.MutexList()[0]
	assert.False(t, stats.Locked)

	require.NoError(t, k.MutexTryLock(id, owner))
	stats = k.MutexList()[0]
	assert.True(t, stats.Locked)
	_, ok := k.Lookup(stats.OwnerPID)
	assert.True(t, ok, "I8: locked implies owner_pid names a live PID")

	require.NoError(t, k.MutexUnlock(id, owner))
	stats = k.MutexList()[0]
	assert.False(t, stats.Locked)
	assert.Zero(t, stats.OwnerPID)
}

// TestInvariantI8MutexHandoffSurvivesOwnerKill checks I8 across a kill: if
// the lock holder is killed while a waiter is queued, ownership must hand
// off to the waiter rather than leaving owner_pid pointing at a dead PID.
func TestInvariantI8MutexHandoffSurvivesOwnerKill(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MutexCreate("m")
	require.NoError(t, err)
	owner := spawnReady(t, k, "owner", 1)
	waiter := spawnReady(t, k, "waiter", 1)
	require.NoError(t, k.MutexTryLock(id, owner))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = k.MutexLock(id, waiter)
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, k.Kill(owner))
	<-done

	stats := k.MutexList()[0]
	assert.True(t, stats.Locked, "I8: waiter must inherit the lock, not leave it unlocked")
	assert.Equal(t, waiter, stats.OwnerPID)
	_, ok := k.Lookup(stats.OwnerPID)
	assert.True(t, ok, "I8: locked implies owner_pid names a live PID")

	require.NoError(t, k.MutexUnlock(id, waiter))
}

// TestInvariantI8MutexFreedOnOwnerKillWithNoWaiters checks I8 when the killed
// owner had no waiters: the mutex must become unlocked, not stay locked
// against a dead PID.
func TestInvariantI8MutexFreedOnOwnerKillWithNoWaiters(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MutexCreate("m")
	require.NoError(t, err)
	owner := spawnReady(t, k, "owner", 1)
	require.NoError(t, k.MutexTryLock(id, owner))

	require.NoError(t, k.Kill(owner))

	stats := k.MutexList()[0]
	assert.False(t, stats.Locked, "I8: no waiters means kill must free the mutex")
	assert.Zero(t, stats.OwnerPID)
}
