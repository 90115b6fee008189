package kernel

import (
	"sync"
	"time"
)

// TickSource implements spec.md §4.4's contract: configure/start/stop/
// enable_scheduler/disable_scheduler/now (sleep_ticks lives on the kernel,
// as Kernel.SleepTicks). A single type
// serves both the simulated clock tests drive directly (via Tick) and the
// real-clock backend (via Start, which drives Tick from a time.Ticker
// goroutine) — the contract is identical either way, only who calls Tick
// differs.
type TickSource struct {
	mu               sync.Mutex
	hz               int
	now              uint64
	schedulerEnabled bool
	onTick           func(now uint64)

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	uptime time.Time
}

// NewManualClock returns a TickSource meant to be driven only by explicit
// calls to Tick (or Kernel.Simulate), never by Start. This is what every
// test in this repository uses.
func NewManualClock() *TickSource {
	return &TickSource{schedulerEnabled: true}
}

// NewRealClock returns a TickSource configured to free-run at hz ticks
// per second once Start is called.
func NewRealClock(hz int) *TickSource {
	t := &TickSource{schedulerEnabled: true}
	_ = t.Configure(hz)
	return t
}

// Configure sets the real-clock tick rate. It is a no-op error for
// simulated use; callers driving Tick manually never need it.
func (t *TickSource) Configure(hz int) error {
	if hz <= 0 {
		return ErrBadArgs
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hz = hz
	return nil
}

// Start begins free-running at the configured rate, calling Tick once per
// period from a background goroutine. Starting an already-started source
// is a no-op.
func (t *TickSource) Start() {
	t.mu.Lock()
	if t.ticker != nil || t.hz <= 0 {
		t.mu.Unlock()
		return
	}
	period := time.Second / time.Duration(t.hz)
	t.ticker = time.NewTicker(period)
	t.stopCh = make(chan struct{})
	t.uptime = monotonicNow()
	ticker, stop := t.ticker, t.stopCh
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ticker.C:
				t.Tick()
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the background free-run goroutine, if any. The tick counter
// and scheduler-enabled flag are left as they are; Tick may still be
// called manually afterwards.
func (t *TickSource) Stop() {
	t.mu.Lock()
	if t.ticker == nil {
		t.mu.Unlock()
		return
	}
	t.ticker.Stop()
	close(t.stopCh)
	t.ticker = nil
	t.mu.Unlock()
	t.wg.Wait()
}

// EnableScheduler and DisableScheduler gate whether Tick invokes the
// scheduler callback. The counter itself always advances regardless.
func (t *TickSource) EnableScheduler() {
	t.mu.Lock()
	t.schedulerEnabled = true
	t.mu.Unlock()
}

func (t *TickSource) DisableScheduler() {
	t.mu.Lock()
	t.schedulerEnabled = false
	t.mu.Unlock()
}

// Now returns the current tick counter.
func (t *TickSource) Now() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

// Tick advances the counter by exactly one and, if the scheduler is
// enabled, invokes the registered callback with the new value. The
// callback runs after the source's own lock is released, so it is free to
// take the kernel lock without risking lock-order inversion.
func (t *TickSource) Tick() uint64 {
	t.mu.Lock()
	t.now++
	now := t.now
	enabled := t.schedulerEnabled
	cb := t.onTick
	t.mu.Unlock()

	if enabled && cb != nil {
		cb(now)
	}
	return now
}
