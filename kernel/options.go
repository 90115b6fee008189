package kernel

import "github.com/joeycumines/go-catrate"

// resolvedConfig is the settled, plain-data form every Option contributes
// to, the way the teacher's loopOptions is built up from LoopOption
// values.
type resolvedConfig struct {
	tableCapacity int
	stackBytes    int
	allocator     StackAllocator
	scheduler     SchedulerConfig
	clock         *TickSource
	logger        Logger
	limiter       *catrate.Limiter
	strict        bool
	mailboxSlots  int
}

// Option configures a Kernel instance.
type Option interface {
	apply(*resolvedConfig)
}

type optionFunc func(*resolvedConfig)

func (f optionFunc) apply(c *resolvedConfig) { f(c) }

// WithTableCapacity sets the process table's fixed capacity (default 32).
func WithTableCapacity(n int) Option {
	return optionFunc(func(c *resolvedConfig) { c.tableCapacity = n })
}

// WithStackBytes sets the per-process stack region size requested from
// the allocator at create time (default 3 frames' worth).
func WithStackBytes(n int) Option {
	return optionFunc(func(c *resolvedConfig) { c.stackBytes = n })
}

// WithAllocator overrides the stack allocator (default: a BitmapPool
// sized for tableCapacity processes).
func WithAllocator(a StackAllocator) Option {
	return optionFunc(func(c *resolvedConfig) { c.allocator = a })
}

// WithPolicy sets the scheduling discipline (default FCFS).
func WithPolicy(p Policy) Option {
	return optionFunc(func(c *resolvedConfig) { c.scheduler.Policy = p })
}

// WithQuantum sets the RoundRobin/Priority quantum, in ticks (default 4).
func WithQuantum(ticks int) Option {
	return optionFunc(func(c *resolvedConfig) { c.scheduler.Quantum = ticks })
}

// WithMLFQLevels sets the number of MLFQ levels (default 3).
func WithMLFQLevels(levels int) Option {
	return optionFunc(func(c *resolvedConfig) { c.scheduler.MLFQLevels = levels })
}

// WithMLFQQuanta sets the per-level MLFQ quantum vector; it must be
// strictly increasing, one entry per level, or scheduler construction
// panics (a constructor-time programmer error, not a runtime one).
func WithMLFQQuanta(quanta ...int) Option {
	return optionFunc(func(c *resolvedConfig) { c.scheduler.MLFQQuanta = quanta })
}

// WithMLFQAllotment sets the ticks a PCB may spend at a level before
// forced demotion (default 8).
func WithMLFQAllotment(ticks int) Option {
	return optionFunc(func(c *resolvedConfig) { c.scheduler.MLFQAllotment = ticks })
}

// WithBoostInterval sets the MLFQ periodic-boost interval, in ticks
// (default 64).
func WithBoostInterval(ticks uint64) Option {
	return optionFunc(func(c *resolvedConfig) { c.scheduler.BoostInterval = ticks })
}

// WithLogCapacity sets the execution log's ring-buffer capacity (default
// 100).
func WithLogCapacity(n int) Option {
	return optionFunc(func(c *resolvedConfig) { c.scheduler.LogCapacity = n })
}

// WithClock overrides the tick source (default: NewManualClock()).
func WithClock(t *TickSource) Option {
	return optionFunc(func(c *resolvedConfig) { c.clock = t })
}

// WithLogger sets the diagnostic sink (default: a no-op logger). Pass
// NewDefaultLogger or NewLogifaceLogger for a real one.
func WithLogger(l Logger) Option {
	return optionFunc(func(c *resolvedConfig) { c.logger = l })
}

// WithContentionRateLimit overrides the rate limiter used to throttle
// contention/full/empty diagnostic log lines (default: a limiter built
// from defaultContentionRates).
func WithContentionRateLimit(l *catrate.Limiter) Option {
	return optionFunc(func(c *resolvedConfig) { c.limiter = l })
}

// WithStrict sets whether invariant violations panic (true, the default)
// or are logged and returned as *InvariantError (false) — see errors.go.
func WithStrict(strict bool) Option {
	return optionFunc(func(c *resolvedConfig) { c.strict = strict })
}

// WithMailboxSlots sets the maximum number of simultaneously-live mailboxes
// (default 32, matching the process table's default capacity). MboxCreate
// beyond this returns ErrOutOfSlots.
func WithMailboxSlots(n int) Option {
	return optionFunc(func(c *resolvedConfig) { c.mailboxSlots = n })
}

func resolveOptions(opts []Option) *resolvedConfig {
	cfg := &resolvedConfig{
		tableCapacity: defaultTableCapacity,
		stackBytes:    3 * defaultFrameSize,
		strict:        true,
		mailboxSlots:  defaultTableCapacity,
	}
	for _, o := range opts {
		if o != nil {
			o.apply(cfg)
		}
	}
	if cfg.allocator == nil {
		cfg.allocator = NewBitmapPool(cfg.tableCapacity*4*defaultFrameSize, defaultFrameSize)
	}
	if cfg.logger == nil {
		cfg.logger = NewNoOpLogger()
	}
	if cfg.limiter == nil {
		cfg.limiter = newContentionLimiter()
	}
	return cfg
}
