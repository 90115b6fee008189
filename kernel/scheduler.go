package kernel

// defaultQuantum is the time slice, in ticks, given to RoundRobin and
// Priority dispatches. FCFS/SJF/SRTF never preempt on quantum exhaustion,
// so they get a quantum large enough that RemainingSlice never reaches
// zero under any reasonable simulate(n).
const (
	defaultQuantum      = 4
	nonPreemptingQuanta = 1 << 30
	defaultMLFQLevels   = 3
	defaultAllotment    = 8
	defaultBoostEvery   = uint64(64)
)

// SchedulerConfig configures a Scheduler at construction (functional
// options live in options.go; this is the plain-data settled form).
type SchedulerConfig struct {
	Policy        Policy
	Quantum       int   // RoundRobin / Priority
	MLFQLevels    int   // MLFQ
	MLFQQuanta    []int // MLFQ, strictly increasing, length MLFQLevels
	MLFQAllotment int   // MLFQ
	BoostInterval uint64
	LogCapacity   int
}

func (c *SchedulerConfig) setDefaults() {
	if c.Quantum <= 0 {
		c.Quantum = defaultQuantum
	}
	if c.MLFQLevels <= 0 {
		c.MLFQLevels = defaultMLFQLevels
	}
	if len(c.MLFQQuanta) == 0 {
		c.MLFQQuanta = make([]int, c.MLFQLevels)
		for i := range c.MLFQQuanta {
			c.MLFQQuanta[i] = defaultQuantum << i
		}
	}
	if c.MLFQAllotment <= 0 {
		c.MLFQAllotment = defaultAllotment
	}
	if c.BoostInterval == 0 {
		c.BoostInterval = defaultBoostEvery
	}
}

// Scheduler implements the per-tick algorithm of spec.md §4.3 for exactly
// one Policy. It holds no lock of its own: every method assumes the
// caller (Kernel) already holds the kernel-wide mutex.
type Scheduler struct {
	policy        Policy
	quantum       int
	levels        int
	quanta        []int
	allotment     int
	boostInterval uint64
	lastBoostTick uint64

	running  *PCB
	ready    *readySet
	sleepers []*PCB

	log     *executionLog
	metrics *Metrics
}

func newScheduler(cfg SchedulerConfig, m *Metrics) *Scheduler {
	cfg.setDefaults()
	if !validateQuanta(cfg.MLFQQuanta) {
		panic(newInvariantError("I5", "MLFQ quantum vector must be strictly increasing"))
	}
	return &Scheduler{
		policy:        cfg.Policy,
		quantum:       cfg.Quantum,
		levels:        cfg.MLFQLevels,
		quanta:        cfg.MLFQQuanta,
		allotment:     cfg.MLFQAllotment,
		boostInterval: cfg.BoostInterval,
		ready:         newReadySet(cfg.Policy, cfg.MLFQLevels),
		log:           newExecutionLog(cfg.LogCapacity),
		metrics:       m,
	}
}

// defaultTimeSlice is the quantum a freshly created PCB is given before
// its first dispatch.
func (s *Scheduler) defaultTimeSlice() int {
	switch s.policy {
	case RoundRobin, Priority:
		return s.quantum
	case MLFQ:
		return s.quanta[0]
	default:
		return nonPreemptingQuanta
	}
}

// enqueueNew places a freshly published PCB into the ready structure.
func (s *Scheduler) enqueueNew(p *PCB) {
	p.State = StateReady
	s.ready.enqueue(p)
}

// selectNext removes and returns the PCB the policy's selection rule
// prefers, or nil if the ready structure is empty.
func (s *Scheduler) selectNext() *PCB {
	switch s.policy {
	case FCFS, RoundRobin:
		return s.ready.dequeueHead()
	case Priority:
		p := selectBest(s.ready.all(), comparePriority)
		if p != nil {
			s.ready.remove(p)
		}
		return p
	case SJF:
		p := selectBest(s.ready.all(), compareBurst)
		if p != nil {
			s.ready.remove(p)
		}
		return p
	case SRTF:
		p := selectBest(s.ready.all(), compareRemaining)
		if p != nil {
			s.ready.remove(p)
		}
		return p
	case MLFQ:
		return s.ready.dequeueMLFQHead()
	default:
		return nil
	}
}

// shouldSwitch implements step 4 of spec.md §4.3.1's per-tick algorithm:
// does the currently running PCB give way this tick?
func (s *Scheduler) shouldSwitch() bool {
	r := s.running
	switch s.policy {
	case FCFS, SJF:
		return false
	case RoundRobin, MLFQ:
		return r.RemainingSlice <= 0
	case Priority:
		if r.RemainingSlice <= 0 {
			return true
		}
		return existsHigherPriority(s.ready.all(), r)
	case SRTF:
		return existsSmallerRemaining(s.ready.all(), r)
	default:
		return false
	}
}

func (s *Scheduler) dispatch(p *PCB, now uint64) {
	p.State = StateRunning
	if s.policy == MLFQ {
		p.TimeSlice = s.quanta[p.MLFQLevel]
	}
	p.RemainingSlice = p.TimeSlice
	if !p.dispatched {
		p.FirstDispatchTick = now
		p.dispatched = true
	}
	p.LastDispatchTick = now
	p.dispatchStart = now
	s.running = p
	if s.metrics != nil {
		s.metrics.recordDispatch(p.PID)
	}
}

func (s *Scheduler) endDispatch(p *PCB, now uint64) {
	s.log.append(LogEntry{
		PID:       p.PID,
		Name:      p.Name,
		StartTick: p.dispatchStart,
		EndTick:   now,
		Duration:  now - p.dispatchStart,
	})
}

// boost implements MLFQ's periodic anti-starvation rule: every PCB above
// level 0 is moved to level 0 with a fresh allotment and quantum. This
// includes the currently running PCB (a CPU-bound process that never
// leaves Running between dispatches would otherwise never be reachable by
// a boost that only scans the ready structure).
func (s *Scheduler) boost() {
	for lvl := 1; lvl < s.levels; lvl++ {
		for {
			p := s.ready.levels[lvl].dequeueFront()
			if p == nil {
				break
			}
			s.boostOne(p)
			s.ready.enqueueAtLevel(p, 0)
		}
	}
	if s.running != nil && s.running.MLFQLevel > 0 {
		s.boostOne(s.running)
		s.running.RemainingSlice = s.running.TimeSlice
	}
}

func (s *Scheduler) boostOne(p *PCB) {
	p.MLFQLevel = 0
	p.MLFQAllotment = s.allotment
	p.TimeSlice = s.quanta[0]
	if s.metrics != nil {
		s.metrics.recordBoost()
	}
}

// wakeSleepers unblocks every PCB whose recorded wake-at-tick has
// arrived. This is the housekeeping step SPEC_FULL.md inserts before
// step 1 of the per-tick algorithm. Woken PCBs are notified on their
// wake channel after the slice is rebuilt, the same handoff every other
// blocking primitive (mailbox/mutex/semaphore) uses to release a
// parked goroutine.
func (s *Scheduler) wakeSleepers(now uint64) {
	if len(s.sleepers) == 0 {
		return
	}
	var woken []*PCB
	remaining := s.sleepers[:0]
	for _, p := range s.sleepers {
		if p.WakeAtTick <= now {
			s.unblock(p)
			woken = append(woken, p)
		} else {
			remaining = append(remaining, p)
		}
	}
	s.sleepers = remaining
	for _, p := range woken {
		notify(p)
	}
}

// Tick runs exactly one iteration of the per-tick algorithm.
func (s *Scheduler) Tick(now uint64) {
	s.wakeSleepers(now)

	if s.policy == MLFQ && now-s.lastBoostTick >= s.boostInterval {
		s.boost()
		s.lastBoostTick = now
	}

	if s.running == nil {
		if next := s.selectNext(); next != nil {
			s.dispatch(next, now)
		}
		return
	}

	s.running.TotalTicks++
	s.running.RemainingSlice--
	if s.policy == SRTF && s.running.RemainingWork > 0 {
		s.running.RemainingWork--
	}
	if s.policy == MLFQ && s.running.MLFQAllotment > 0 {
		s.running.MLFQAllotment--
	}

	if !s.shouldSwitch() {
		return
	}

	outgoing := s.running
	s.endDispatch(outgoing, now)
	outgoing.State = StateReady
	if s.policy == MLFQ && outgoing.MLFQAllotment == 0 && outgoing.MLFQLevel < s.levels-1 {
		outgoing.MLFQLevel++
		outgoing.MLFQAllotment = s.allotment
		outgoing.TimeSlice = s.quanta[outgoing.MLFQLevel]
	}
	s.ready.enqueue(outgoing)
	s.running = nil

	if next := s.selectNext(); next != nil {
		s.dispatch(next, now)
	}
}

// block removes p from wherever it currently sits (ready structure or the
// running slot) and marks it Blocked under cause. The caller is
// responsible for linking p into the appropriate waiter queue first.
func (s *Scheduler) block(p *PCB, cause blockCause) {
	if p.State == StateReady {
		s.ready.remove(p)
	}
	if s.running == p {
		s.running = nil
	}
	p.State = StateBlocked
	p.Block = cause
}

// sleep is block specialised for the tick source's sleep_ticks verb: it
// also registers p in the sleepers list so wakeSleepers finds it.
func (s *Scheduler) sleep(p *PCB, wakeAtTick uint64) {
	p.WakeAtTick = wakeAtTick
	s.block(p, blockCause{kind: BlockSleep})
	s.sleepers = append(s.sleepers, p)
}

// removeSleeper unlinks p from the sleepers list without unblocking it,
// used when p is killed while asleep.
func (s *Scheduler) removeSleeper(p *PCB) {
	for i, x := range s.sleepers {
		if x == p {
			s.sleepers = append(s.sleepers[:i], s.sleepers[i+1:]...)
			return
		}
	}
}

// unblock restores p to Ready, per the Open Question 1 decision recorded
// in DESIGN.md: no slice refill here, only the next dispatch resets
// RemainingSlice.
func (s *Scheduler) unblock(p *PCB) {
	p.Block = blockCause{}
	p.State = StateReady
	s.ready.enqueue(p)
	if s.metrics != nil {
		s.metrics.recordUnblock()
	}
}
