package kernel

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// defaultContentionRates throttles diagnostic log lines for a single
// category (e.g. one mutex's id, one mailbox's id) to at most a handful
// per second and a few dozen per minute, the way a busy-looping waiter on
// a contended resource would otherwise flood the log.
func defaultContentionRates() map[time.Duration]int {
	return map[time.Duration]int{
		time.Second: 2,
		time.Minute: 30,
	}
}

func newContentionLimiter() *catrate.Limiter {
	return catrate.NewLimiter(defaultContentionRates())
}

// logContention emits a rate-limited diagnostic line for a resource a PCB
// just blocked on. category is typically "mutex:<id>", "sem:<id>" or
// "mbox:full:<id>".
func (k *Kernel) logContention(category any, level LogLevel, kind string, resourceID int, pid PID) {
	if k.logger == nil || k.limiter == nil {
		return
	}
	if _, allowed := k.limiter.Allow(category); !allowed {
		return
	}
	k.logger.Log(LogRecord{
		Level:    level,
		Category: kind,
		PID:      pid,
		Message:  "blocked on contended resource",
		Fields:   map[string]any{"resource_id": resourceID},
	})
}
