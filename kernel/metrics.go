package kernel

import "sync"

// Metrics tracks runtime counters for a Scheduler: dispatch and unblock
// counts, boosts, and per-PID dispatch counts, the way the teacher's
// Metrics tracked latency/TPS/queue-depth for the event loop. These back
// the Kernel.Metrics() snapshot, without requiring a caller to re-derive
// them from the raw execution log.
//
// All methods are called only under Kernel's lock, so no internal
// synchronization is needed beyond what's required for a snapshot to be
// handed out as an independent copy.
type Metrics struct {
	mu          sync.Mutex
	dispatches  uint64
	unblocks    uint64
	boosts      uint64
	perPID      map[PID]uint64
}

func newMetrics() *Metrics {
	return &Metrics{perPID: make(map[PID]uint64)}
}

func (m *Metrics) recordDispatch(pid PID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches++
	m.perPID[pid]++
}

func (m *Metrics) recordUnblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unblocks++
}

func (m *Metrics) recordBoost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boosts++
}

// MetricsSnapshot is an immutable copy of a Metrics at one instant.
type MetricsSnapshot struct {
	Dispatches    uint64
	Unblocks      uint64
	Boosts        uint64
	DispatchesPID map[PID]uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[PID]uint64, len(m.perPID))
	for k, v := range m.perPID {
		cp[k] = v
	}
	return MetricsSnapshot{
		Dispatches:    m.dispatches,
		Unblocks:      m.unblocks,
		Boosts:        m.boosts,
		DispatchesPID: cp,
	}
}
