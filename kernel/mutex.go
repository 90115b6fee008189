package kernel

import "strconv"

// Mutex is a non-reentrant lock with direct-handoff unlock semantics: the
// head of the waiter queue becomes the new owner atomically with the
// previous owner's unlock, rather than the lock going briefly unowned and
// being raced for (spec.md §3/§4.5.2, law L5).
type Mutex struct {
	ID      int
	Name    string
	locked  bool
	ownerPID PID

	waiters []*PCB

	lockCount       uint64
	contentionCount uint64
}

// MutexCreate creates a new, initially-unlocked mutex.
func (k *Kernel) MutexCreate(name string) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.nextMtxID++
	id := k.nextMtxID
	k.mutexes[id] = &Mutex{ID: id, Name: name}
	return id, nil
}

// MutexFind looks up a mutex id by name.
func (k *Kernel) MutexFind(name string) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for id, m := range k.mutexes {
		if m.Name == name {
			return id, nil
		}
	}
	return 0, ErrNotFound
}

// MutexStats is a read-only snapshot for diagnostics.
type MutexStats struct {
	ID              int
	Name            string
	Locked          bool
	OwnerPID        PID
	LockCount       uint64
	ContentionCount uint64
}

// MutexList returns stats for every mutex.
func (k *Kernel) MutexList() []MutexStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]MutexStats, 0, len(k.mutexes))
	for _, m := range k.mutexes {
		out = append(out, m.statsLocked())
	}
	return out
}

func (m *Mutex) statsLocked() MutexStats {
	return MutexStats{ID: m.ID, Name: m.Name, Locked: m.locked, OwnerPID: m.ownerPID, LockCount: m.lockCount, ContentionCount: m.contentionCount}
}

// MutexTryLock acquires the mutex only if it is currently unlocked.
func (k *Kernel) MutexTryLock(id int, callerPID PID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.mutexes[id]
	if !ok {
		return ErrNotFound
	}
	if m.locked {
		return ErrBusy
	}
	m.locked = true
	m.ownerPID = callerPID
	m.lockCount++
	return nil
}

// MutexLock acquires the mutex, blocking the caller if it is already
// held. A blocked call returns only once this PID has become the owner,
// via the direct-handoff path in MutexUnlock.
func (k *Kernel) MutexLock(id int, callerPID PID) error {
	k.mu.Lock()
	m, ok := k.mutexes[id]
	if !ok {
		k.mu.Unlock()
		return ErrNotFound
	}
	if !m.locked {
		m.locked = true
		m.ownerPID = callerPID
		m.lockCount++
		k.mu.Unlock()
		return nil
	}

	m.contentionCount++
	pcb, ok := k.table.procs[callerPID]
	if !ok {
		k.mu.Unlock()
		return ErrNotFound
	}
	m.waiters = append(m.waiters, pcb)
	k.sched.block(pcb, blockCause{kind: BlockMutex, resourceID: id})
	k.logContention(mutexCategory(id), LevelDebug, "mutex", id, callerPID)
	k.mu.Unlock()

	<-pcb.wake
	return nil
}

// MutexUnlock releases the mutex. If waiters exist, ownership is handed
// directly to the head of the queue (it never becomes unowned in
// between); otherwise it becomes unlocked.
func (k *Kernel) MutexUnlock(id int, callerPID PID) error {
	k.mu.Lock()
	m, ok := k.mutexes[id]
	if !ok {
		k.mu.Unlock()
		return ErrNotFound
	}
	if !m.locked {
		k.mu.Unlock()
		return ErrNotLocked
	}
	if m.ownerPID != callerPID {
		k.mu.Unlock()
		return ErrNotOwner
	}

	var woke *PCB
	if len(m.waiters) > 0 {
		woke = m.waiters[0]
		m.waiters = m.waiters[1:]
		m.ownerPID = woke.PID
		k.sched.unblock(woke)
	} else {
		m.locked = false
		m.ownerPID = 0
	}
	k.mu.Unlock()
	if woke != nil {
		notify(woke)
	}
	return nil
}

func mutexCategory(id int) string {
	return "mutex:" + strconv.Itoa(id)
}
