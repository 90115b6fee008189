package kernel

import "strconv"

// Semaphore is a counted semaphore (spec.md §3/§4.5.3).
type Semaphore struct {
	ID    int
	Name  string
	value int32

	waiters []*PCB

	waits uint64
	posts uint64
}

// SemCreate creates a new semaphore with the given initial value.
func (k *Kernel) SemCreate(name string, initial int32) (int, error) {
	if initial < 0 {
		return 0, ErrBadArgs
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.nextSemID++
	id := k.nextSemID
	k.sems[id] = &Semaphore{ID: id, Name: name, value: initial}
	return id, nil
}

// SemFind looks up a semaphore id by name.
func (k *Kernel) SemFind(name string) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for id, s := range k.sems {
		if s.Name == name {
			return id, nil
		}
	}
	return 0, ErrNotFound
}

// SemaphoreStats is a read-only snapshot for diagnostics.
type SemaphoreStats struct {
	ID    int
	Name  string
	Value int32
	Waits uint64
	Posts uint64
}

// SemList returns stats for every semaphore.
func (k *Kernel) SemList() []SemaphoreStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]SemaphoreStats, 0, len(k.sems))
	for _, s := range k.sems {
		out = append(out, s.statsLocked())
	}
	return out
}

func (s *Semaphore) statsLocked() SemaphoreStats {
	return SemaphoreStats{ID: s.ID, Name: s.Name, Value: s.value, Waits: s.waits, Posts: s.posts}
}

// SemValue reads the semaphore's current value without consuming a
// permit.
func (k *Kernel) SemValue(id int) (int32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.sems[id]
	if !ok {
		return 0, ErrNotFound
	}
	return s.value, nil
}

// SemTryWait consumes a permit only if one is immediately available.
func (k *Kernel) SemTryWait(id int, callerPID PID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.sems[id]
	if !ok {
		return ErrNotFound
	}
	if s.value <= 0 {
		return ErrWouldBlock
	}
	s.value--
	s.waits++
	return nil
}

// SemWait consumes a permit, blocking the caller if none is available.
func (k *Kernel) SemWait(id int, callerPID PID) error {
	k.mu.Lock()
	s, ok := k.sems[id]
	if !ok {
		k.mu.Unlock()
		return ErrNotFound
	}
	if s.value > 0 {
		s.value--
		s.waits++
		k.mu.Unlock()
		return nil
	}

	pcb, ok := k.table.procs[callerPID]
	if !ok {
		k.mu.Unlock()
		return ErrNotFound
	}
	s.waiters = append(s.waiters, pcb)
	s.waits++
	k.sched.block(pcb, blockCause{kind: BlockSem, resourceID: id})
	k.logContention(semCategory(id), LevelDebug, "semaphore", id, callerPID)
	k.mu.Unlock()

	<-pcb.wake
	return nil
}

// SemPost releases a permit: if a waiter is queued, it is unblocked (the
// permit is consumed directly by that waiter, value is unchanged);
// otherwise value is incremented.
func (k *Kernel) SemPost(id int) error {
	k.mu.Lock()
	s, ok := k.sems[id]
	if !ok {
		k.mu.Unlock()
		return ErrNotFound
	}
	s.posts++
	var woke *PCB
	if len(s.waiters) > 0 {
		woke = s.waiters[0]
		s.waiters = s.waiters[1:]
		k.sched.unblock(woke)
	} else {
		s.value++
	}
	k.mu.Unlock()
	if woke != nil {
		notify(woke)
	}
	return nil
}

func semCategory(id int) string {
	return "sem:" + strconv.Itoa(id)
}
