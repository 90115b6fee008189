package kernel

const (
	defaultTableCapacity = 32
	maxNameLength         = 31
	maxPriority           = 31
)

// table is the process table (spec.md §4.1): create/publish/lookup/kill/
// list, plus the zombie grace window SPEC_FULL.md adds on top. Every
// method here assumes the caller already holds Kernel's lock; table does
// no locking of its own, by design (see kernel.go).
type table struct {
	capacity int
	procs    map[PID]*PCB
	zombies  map[PID]*PCB
	order    []PID // insertion order of live PIDs, for list()
	nextPID  PID
	alloc    StackAllocator
}

func newTable(capacity int, alloc StackAllocator) *table {
	if capacity <= 0 {
		capacity = defaultTableCapacity
	}
	return &table{
		capacity: capacity,
		procs:    make(map[PID]*PCB, capacity),
		zombies:  make(map[PID]*PCB),
		alloc:    alloc,
	}
}

func (t *table) validateCreate(name string, priority int) error {
	if name == "" || len(name) > maxNameLength {
		return ErrBadArgs
	}
	if priority < 0 || priority > maxPriority {
		return ErrBadArgs
	}
	if len(t.procs) >= t.capacity {
		return ErrTableFull
	}
	return nil
}

// insert allocates a PID and a stack region, stores the PCB as State=New,
// and returns it. Callers must have already validated name/priority via
// validateCreate.
func (t *table) insert(name string, entry func(), priority int, parent PID, stackBytes int) (*PCB, error) {
	region, ok := t.alloc.Alloc(stackBytes)
	if !ok {
		return nil, ErrTableFull
	}
	t.nextPID++
	pid := t.nextPID
	pcb := &PCB{
		PID:         pid,
		Name:        name,
		State:       StateNew,
		Priority:    priority,
		ParentPID:   parent,
		EntryPoint:  entry,
		StackRegion: region,
		wake:        make(chan struct{}, 1),
	}
	t.procs[pid] = pcb
	t.order = append(t.order, pid)
	return pcb, nil
}

// lookup finds a PCB by PID, checking live processes first and then the
// zombie grace window.
func (t *table) lookup(pid PID) (*PCB, bool) {
	if p, ok := t.procs[pid]; ok {
		return p, true
	}
	if p, ok := t.zombies[pid]; ok {
		return p, true
	}
	return nil, false
}

// list returns live (non-zombie) PCBs in creation order.
func (t *table) list() []*PCB {
	out := make([]*PCB, 0, len(t.order))
	for _, pid := range t.order {
		if p, ok := t.procs[pid]; ok {
			out = append(out, p)
		}
	}
	return out
}

// terminate moves a live PCB into the zombie map. Idempotent: terminating
// an already-zombie or unknown PID is a no-op and reports ok=false.
func (t *table) terminate(pid PID, exitCode int) (*PCB, bool) {
	p, ok := t.procs[pid]
	if !ok {
		return nil, false
	}
	p.State = StateTerminated
	p.ExitCode = exitCode
	delete(t.procs, pid)
	for i, x := range t.order {
		if x == pid {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.zombies[pid] = p
	return p, true
}

// zombies returns every PCB currently in the grace window, in no particular
// order (the zombie map carries no ordering of its own).
func (t *table) zombieList() []*PCB {
	out := make([]*PCB, 0, len(t.zombies))
	for _, p := range t.zombies {
		out = append(out, p)
	}
	return out
}

// reap drops a zombie's row entirely and releases its stack region. It is
// a no-op (returns false) if pid does not name a zombie.
func (t *table) reap(pid PID) bool {
	p, ok := t.zombies[pid]
	if !ok {
		return false
	}
	t.alloc.Free(p.StackRegion)
	delete(t.zombies, pid)
	return true
}
