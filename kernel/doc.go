// Package kernel implements a single-address-space, cooperative
// process-management core: a fixed-capacity process table, a pluggable
// tick-driven scheduler (FCFS, Round-Robin, Priority, SJF, SRTF, MLFQ),
// and the three blocking coordination primitives a cooperative kernel
// needs to be useful: mailboxes, mutexes, and counted semaphores.
//
// # Architecture
//
// Everything is coordinated through a single [Kernel] value, constructed
// with [New] and a set of [Option] values. Kernel owns one mutex that
// stands in for "interrupts disabled": every state update made by an
// exported method happens with it held (blocking methods release it while
// parked), so the scheduler, the process table, and every
// mailbox/mutex/semaphore never observe a torn update from one another.
//
// A [TickSource] drives the scheduler, either by hand (tests and
// [Kernel.Simulate]) or freely at a configured rate ([NewRealClock]).
// Each tick runs [Scheduler.Tick]'s fixed five-step algorithm: wake any
// sleepers whose time has come, periodically boost MLFQ's starved
// processes, account the running process's consumed tick, decide whether
// to preempt, and dispatch the next process the active [Policy] prefers.
//
// Blocking primitives ([Kernel.MboxSendBlocking], [Kernel.MutexLock],
// [Kernel.SemWait]) park the calling goroutine on the blocked [PCB]'s
// private wake channel and resume it, under the kernel lock, exactly once
// the resource state changes in its favor — one process per goroutine,
// the kernel lock standing in for "interrupts disabled", and a
// single-slot channel standing in for a hardware wakeup line.
package kernel
