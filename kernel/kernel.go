package kernel

import (
	"sync"

	"github.com/joeycumines/go-catrate"
)

// Kernel is the single coordinating object spec.md's design notes call
// for ("avoid hidden statics; explicitly constructed kernel object"). It
// owns the process table, the scheduler, every mailbox/mutex/semaphore,
// the tick source, and the lock that renders "interrupts disabled" on a
// host where true IRQ masking isn't available.
//
// Every exported method that reads or changes kernel state does so under
// mu — spec.md §5's "All core operations run with interrupts disabled"
// becomes, in Go, "every Kernel state update happens with mu held".
// Blocking verbs (MutexLock, SemWait, SleepTicks, the blocking mailbox
// calls) release mu before parking on the PCB's wake channel, and wakeups
// are signalled after mu is released. Now, Tick and Simulate go through
// the TickSource's own lock; each scheduler tick they trigger takes mu.
// This is documented once, here, rather than re-justified per method.
type Kernel struct {
	mu sync.Mutex

	table *table
	sched *Scheduler
	ticks *TickSource

	mailboxes  map[int]*Mailbox
	nextMboxID int
	mutexes    map[int]*Mutex
	nextMtxID  int
	sems       map[int]*Semaphore
	nextSemID  int

	logger  Logger
	limiter *catrate.Limiter
	strict  bool

	defaultStackBytes int
	mailboxSlots      int
}

// New constructs a Kernel from the given options. Unset options take the
// defaults spec.md names (32-slot table, policy FCFS, strict invariant
// checking, a manual tick source, a no-op logger, and a contention rate
// limiter built from defaultContentionRates).
func New(opts ...Option) *Kernel {
	cfg := resolveOptions(opts)

	k := &Kernel{
		mailboxes:         make(map[int]*Mailbox),
		mutexes:           make(map[int]*Mutex),
		sems:              make(map[int]*Semaphore),
		logger:            cfg.logger,
		limiter:           cfg.limiter,
		strict:            cfg.strict,
		defaultStackBytes: cfg.stackBytes,
		mailboxSlots:      cfg.mailboxSlots,
	}
	k.table = newTable(cfg.tableCapacity, cfg.allocator)
	metrics := newMetrics()
	k.sched = newScheduler(cfg.scheduler, metrics)
	k.ticks = cfg.clock
	if k.ticks == nil {
		k.ticks = NewManualClock()
	}
	k.ticks.onTick = k.onTick
	return k
}

// Policy returns the scheduler's active discipline.
func (k *Kernel) Policy() Policy {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.policy
}

// SetPolicy switches the scheduler's discipline at runtime, rebuilding the
// ready structure's shape (single FIFO vs. per-level MLFQ array) and
// migrating every currently-ready PCB into it. A PCB entering MLFQ for the
// first time starts at level 0 with a fresh quantum; one leaving MLFQ keeps
// whatever time_slice it already had.
func (k *Kernel) SetPolicy(p Policy) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !p.valid() {
		return ErrBadArgs
	}
	if p == k.sched.policy {
		return nil
	}
	pending := k.sched.ready.all()
	k.sched.ready = newReadySet(p, k.sched.levels)
	for _, pcb := range pending {
		if p == MLFQ {
			pcb.MLFQLevel = 0
			pcb.MLFQAllotment = k.sched.allotment
			pcb.TimeSlice = k.sched.quanta[0]
		}
		k.sched.ready.enqueue(pcb)
	}
	k.sched.policy = p
	return nil
}

// Current returns the PID of the currently running PCB, if any.
func (k *Kernel) Current() (PID, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.sched.running == nil {
		return 0, false
	}
	return k.sched.running.PID, true
}

// Now returns the tick source's current monotone tick count.
func (k *Kernel) Now() uint64 {
	return k.ticks.Now()
}

// Metrics returns a snapshot of the kernel's runtime counters.
func (k *Kernel) Metrics() MetricsSnapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.metrics.snapshot()
}

// onTick is the TickSource callback: it takes the kernel lock and runs
// exactly one scheduler tick.
func (k *Kernel) onTick(now uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sched.Tick(now)
}

// Tick advances the tick source by exactly one tick.
func (k *Kernel) Tick() uint64 {
	return k.ticks.Tick()
}

// Simulate drives n ticks and returns the execution log snapshot
// afterwards, per spec.md §4.3.4's simulate(ticks) contract.
func (k *Kernel) Simulate(n int) []LogEntry {
	for i := 0; i < n; i++ {
		k.ticks.Tick()
	}
	return k.Log()
}

// Log returns a snapshot of the bounded execution log.
func (k *Kernel) Log() []LogEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sched.log.snapshot()
}

// Create validates name/priority, allocates a stack region, and inserts a
// new PCB in State=New. parent is the creator's PID, or 0 for a
// parentless process (what the shell's spawn command always creates).
func (k *Kernel) Create(name string, entry func(), priority int, parent PID) (PID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.table.validateCreate(name, priority); err != nil {
		return 0, err
	}
	pcb, err := k.table.insert(name, entry, priority, parent, k.defaultStackBytes)
	if err != nil {
		return 0, err
	}
	pcb.ArrivalTick = k.ticks.Now()
	pcb.TimeSlice = k.sched.defaultTimeSlice()
	pcb.MLFQAllotment = k.sched.allotment
	if k.sched.policy == MLFQ {
		pcb.TimeSlice = k.sched.quanta[0]
	}
	return pcb.PID, nil
}

// Publish moves a State=New PCB to Ready and enqueues it. Publishing
// anything else is a bad-args error.
func (k *Kernel) Publish(pid PID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	pcb, ok := k.table.procs[pid]
	if !ok || pcb.State != StateNew {
		return ErrBadArgs
	}
	if pcb.ArrivalTick == 0 {
		pcb.ArrivalTick = k.ticks.Now()
	}
	k.sched.enqueueNew(pcb)
	return nil
}

// Lookup returns the PCB named by pid, including one still in the zombie
// grace window.
func (k *Kernel) Lookup(pid PID) (*PCB, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table.lookup(pid)
}

// List returns every live (non-zombie) PCB, in creation order.
func (k *Kernel) List() []*PCB {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table.list()
}

// Reap drops a zombie's row and frees its stack region.
func (k *Kernel) Reap(pid PID) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table.reap(pid)
}

// Zombies returns every PCB currently sitting in the grace window between
// termination and Reap, in no particular order.
func (k *Kernel) Zombies() []*PCB {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table.zombieList()
}

// unlinkWaiterLocked removes pcb from whichever waiter structure its
// Block cause names. Callers must hold k.mu.
func (k *Kernel) unlinkWaiterLocked(pcb *PCB) {
	switch pcb.Block.kind {
	case BlockSleep:
		k.sched.removeSleeper(pcb)
	case BlockMboxFull:
		if mb, ok := k.mailboxes[pcb.Block.resourceID]; ok {
			removePCB(&mb.senderWaiters, pcb)
		}
	case BlockMboxEmpty:
		if mb, ok := k.mailboxes[pcb.Block.resourceID]; ok {
			removePCB(&mb.receiverWaiters, pcb)
		}
	case BlockMutex:
		if m, ok := k.mutexes[pcb.Block.resourceID]; ok {
			removePCB(&m.waiters, pcb)
		}
	case BlockSem:
		if s, ok := k.sems[pcb.Block.resourceID]; ok {
			removePCB(&s.waiters, pcb)
		}
	}
}

// Kill terminates pid unconditionally: it is unlinked from whichever
// structure holds it (ready, running, or a waiter queue) and moved to the
// zombie table with exit_code = -1. Idempotent for an already-terminated
// PID; ErrNotFound for a PID that never existed.
func (k *Kernel) Kill(pid PID) error {
	return k.terminate(pid, -1)
}

// Exit is Kill's voluntary counterpart: a PCB calls this on itself with
// its own exit status.
func (k *Kernel) Exit(pid PID, code int) error {
	return k.terminate(pid, code)
}

func (k *Kernel) terminate(pid PID, code int) error {
	k.mu.Lock()

	pcb, ok := k.table.procs[pid]
	if !ok {
		if _, zombie := k.table.zombies[pid]; zombie {
			k.mu.Unlock()
			return nil
		}
		k.mu.Unlock()
		return ErrNotFound
	}

	switch pcb.State {
	case StateReady:
		k.sched.ready.remove(pcb)
	case StateRunning:
		if k.sched.running == pcb {
			k.sched.running = nil
		}
	case StateBlocked:
		k.unlinkWaiterLocked(pcb)
	}

	woken := k.releaseOwnedResourcesLocked(pid)
	k.table.terminate(pid, code)
	k.mu.Unlock()

	for _, p := range woken {
		notify(p)
	}
	return nil
}

// releaseOwnedResourcesLocked scans every mutex for ownership held by pid and
// releases it exactly as MutexUnlock would: direct handoff to the head
// waiter if one exists, otherwise the mutex becomes free. Without this,
// killing a PCB mid-critical-section would leave owner_pid pointing at a
// dead PID forever (invariant I8) and no other PCB could ever lock the
// mutex again.
//
// Semaphores carry no per-holder ownership in this model: a permit taken by
// SemWait/SemTryWait isn't attributed to the taking PCB, any PCB may
// SemPost, so there is nothing for a kill to release or hand back — the
// counter and waiter queue stay consistent regardless of which PCB dies.
//
// Callers must hold k.mu and notify the returned PCBs only after releasing it.
func (k *Kernel) releaseOwnedResourcesLocked(pid PID) []*PCB {
	var woken []*PCB
	for _, m := range k.mutexes {
		if !m.locked || m.ownerPID != pid {
			continue
		}
		if len(m.waiters) > 0 {
			next := m.waiters[0]
			m.waiters = m.waiters[1:]
			m.ownerPID = next.PID
			k.sched.unblock(next)
			woken = append(woken, next)
		} else {
			m.locked = false
			m.ownerPID = 0
		}
	}
	return woken
}

// SleepTicks blocks the calling PCB (pid) for n ticks, returning once a
// scheduler tick observes the wake-at-tick has arrived. n == 0 is a
// bad-args error (sleeping for zero ticks is not "no-op", it's malformed:
// spec.md requires n > 0).
func (k *Kernel) SleepTicks(pid PID, n uint64) error {
	if n == 0 {
		return ErrBadArgs
	}
	k.mu.Lock()
	pcb, ok := k.table.procs[pid]
	if !ok {
		k.mu.Unlock()
		return ErrNotFound
	}
	wakeAt := k.ticks.Now() + n
	k.sched.sleep(pcb, wakeAt)
	k.mu.Unlock()

	<-pcb.wake
	return nil
}

// ForceBlock and ForceUnblock implement the shell's diagnostic `block`/
// `unblock` commands: manual suspension outside the normal resource
// wakeup protocol, rendered as BlockSleep with no wake-at-tick so only an
// explicit ForceUnblock (or Kill) ends it.
func (k *Kernel) ForceBlock(pid PID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	pcb, ok := k.table.procs[pid]
	if !ok || pcb.State == StateBlocked || pcb.State == StateTerminated {
		return ErrBadArgs
	}
	k.sched.block(pcb, blockCause{kind: BlockSleep})
	return nil
}

func (k *Kernel) ForceUnblock(pid PID) error {
	k.mu.Lock()
	pcb, ok := k.table.procs[pid]
	if !ok || pcb.State != StateBlocked {
		k.mu.Unlock()
		return ErrBadArgs
	}
	k.sched.removeSleeper(pcb)
	k.sched.unblock(pcb)
	k.mu.Unlock()
	notify(pcb)
	return nil
}

// SetStrict toggles whether invariant violations panic (true, default) or
// are logged and returned as an *InvariantError (false).
func (k *Kernel) SetStrict(strict bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.strict = strict
}

func (k *Kernel) checkInvariant(ok bool, invariant, detail string) error {
	if ok {
		return nil
	}
	if k.strict {
		panic(newInvariantError(invariant, detail))
	}
	err := newInvariantError(invariant, detail)
	if k.logger != nil {
		k.logger.Log(LogRecord{Level: LevelWarn, Message: err.Error()})
	}
	return err
}

// removePCB splices pcb out of a waiter slice, preserving order.
func removePCB(q *[]*PCB, pcb *PCB) {
	s := *q
	for i, p := range s {
		if p == pcb {
			*q = append(s[:i], s[i+1:]...)
			return
		}
	}
}

// notify signals pcb.wake without blocking; it is safe to call whether or
// not anything is currently waiting on the channel.
func notify(pcb *PCB) {
	select {
	case pcb.wake <- struct{}{}:
	default:
	}
}
