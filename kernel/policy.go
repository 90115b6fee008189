package kernel

import "golang.org/x/exp/slices"

// Policy selects the scheduling discipline (spec.md §4.2/§4.3).
type Policy int

const (
	FCFS Policy = iota
	RoundRobin
	Priority
	SJF
	SRTF
	MLFQ
)

func (p Policy) String() string {
	switch p {
	case FCFS:
		return "fcfs"
	case RoundRobin:
		return "round-robin"
	case Priority:
		return "priority"
	case SJF:
		return "sjf"
	case SRTF:
		return "srtf"
	case MLFQ:
		return "mlfq"
	default:
		return "unknown"
	}
}

func (p Policy) valid() bool {
	return p >= FCFS && p <= MLFQ
}

// ParsePolicy maps the shell's policy names onto Policy values.
func ParsePolicy(name string) (Policy, bool) {
	switch name {
	case "fcfs":
		return FCFS, true
	case "rr", "round-robin", "roundrobin":
		return RoundRobin, true
	case "priority":
		return Priority, true
	case "sjf":
		return SJF, true
	case "srtf":
		return SRTF, true
	case "mlfq":
		return MLFQ, true
	default:
		return 0, false
	}
}

// validateQuanta checks that an MLFQ quantum vector Q[0..L) is strictly
// increasing, the way catrate/rates.go validates a rate map's duration
// keys before trusting them: sort a copy, then walk it looking for any
// violation of the ordering the caller promised.
func validateQuanta(quanta []int) bool {
	if len(quanta) == 0 {
		return false
	}
	sorted := append([]int(nil), quanta...)
	slices.Sort(sorted)
	for i := range sorted {
		if sorted[i] != quanta[i] {
			return false // caller's vector wasn't already sorted ascending
		}
		if i > 0 && sorted[i] <= sorted[i-1] {
			return false // not strictly increasing
		}
	}
	return true
}

// comparePriority reports whether p should be preferred over best under
// the Priority policy's selection rule: higher priority first, then
// earlier arrival, then lower PID.
func comparePriority(p, best *PCB) bool {
	if p.Priority != best.Priority {
		return p.Priority > best.Priority
	}
	if p.ArrivalTick != best.ArrivalTick {
		return p.ArrivalTick < best.ArrivalTick
	}
	return p.PID < best.PID
}

// compareBurst reports whether p should be preferred over best under the
// SJF policy's selection rule: smaller burst estimate first, same
// tie-break tail as comparePriority.
func compareBurst(p, best *PCB) bool {
	if p.BurstEstimate != best.BurstEstimate {
		return p.BurstEstimate < best.BurstEstimate
	}
	if p.ArrivalTick != best.ArrivalTick {
		return p.ArrivalTick < best.ArrivalTick
	}
	return p.PID < best.PID
}

// compareRemaining reports whether p should be preferred over best under
// the SRTF policy's selection rule: smaller remaining work first, same
// tie-break tail.
func compareRemaining(p, best *PCB) bool {
	if p.RemainingWork != best.RemainingWork {
		return p.RemainingWork < best.RemainingWork
	}
	if p.ArrivalTick != best.ArrivalTick {
		return p.ArrivalTick < best.ArrivalTick
	}
	return p.PID < best.PID
}

func selectBest(cands []*PCB, better func(p, best *PCB) bool) *PCB {
	var best *PCB
	for _, p := range cands {
		if best == nil || better(p, best) {
			best = p
		}
	}
	return best
}

func existsHigherPriority(ready []*PCB, running *PCB) bool {
	for _, p := range ready {
		if p.Priority > running.Priority {
			return true
		}
	}
	return false
}

func existsSmallerRemaining(ready []*PCB, running *PCB) bool {
	for _, p := range ready {
		if p.RemainingWork < running.RemainingWork {
			return true
		}
	}
	return false
}
