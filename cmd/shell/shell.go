// Package shell implements the diagnostic command dispatcher: a minimal
// line-oriented interface onto a *kernel.Kernel, talking to it only through
// its exported verbs. It never touches ready structures or waiter queues
// directly.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/EdmondCharles1/myos-i686/kernel"
)

// Shell dispatches command lines against one Kernel, writing output to out.
type Shell struct {
	k   *kernel.Kernel
	out io.Writer

	seenZombies map[kernel.PID]bool
}

// New wraps k with a command dispatcher that writes to out.
func New(k *kernel.Kernel, out io.Writer) *Shell {
	return &Shell{k: k, out: out, seenZombies: make(map[kernel.PID]bool)}
}

// Run reads and dispatches one command per line from in until EOF.
func (s *Shell) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.Dispatch(line)
	}
	return scanner.Err()
}

// Dispatch executes a single command line. Every command either succeeds
// silently or prints a single descriptive error line, per spec.
func (s *Shell) Dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "ps":
		err = s.ps()
	case "kill":
		err = s.kill(args)
	case "spawn":
		err = s.spawn(args)
	case "sched":
		err = s.sched(args)
	case "queue":
		err = s.queue()
	case "log":
		err = s.log()
	case "simulate":
		err = s.simulate(args)
	case "block":
		err = s.block(args)
	case "unblock":
		err = s.unblock(args)
	case "mbox":
		err = s.mbox(args)
	case "mutex":
		err = s.mutex(args)
	case "sem":
		err = s.sem(args)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

// ps lists every live PCB plus any zombie still in its grace window. A
// zombie printed once is remembered; printing it a second time reaps it,
// bounding how long a terminated PCB's row survives.
func (s *Shell) ps() error {
	for _, pcb := range s.k.List() {
		fmt.Fprintf(s.out, "%d\t%-16s %-10s prio=%-2d mlfq=%d total_ticks=%d\n",
			pcb.PID, pcb.Name, pcb.State, pcb.Priority, pcb.MLFQLevel, pcb.TotalTicks)
	}
	for _, pcb := range s.k.Zombies() {
		fmt.Fprintf(s.out, "%d\t%-16s %-10s exit_code=%d\n",
			pcb.PID, pcb.Name, pcb.State, pcb.ExitCode)
		if s.seenZombies[pcb.PID] {
			s.k.Reap(pcb.PID)
			delete(s.seenZombies, pcb.PID)
		} else {
			s.seenZombies[pcb.PID] = true
		}
	}
	return nil
}

func (s *Shell) kill(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: kill <pid>")
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	return s.k.Kill(pid)
}

// spawn [n] [burst] creates n processes (default 1) with the given burst
// estimate (default 1) at default priority, publishing each one.
func (s *Shell) spawn(args []string) error {
	n, burst := 1, 1
	var err error
	if len(args) >= 1 {
		if n, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("usage: spawn [n] [burst]: %w", err)
		}
	}
	if len(args) >= 2 {
		if burst, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("usage: spawn [n] [burst]: %w", err)
		}
	}
	for i := 0; i < n; i++ {
		pid, err := s.k.Create(fmt.Sprintf("spawn%d", i), nil, 16, 0)
		if err != nil {
			return err
		}
		if pcb, ok := s.k.Lookup(pid); ok {
			pcb.BurstEstimate = burst
			pcb.RemainingWork = burst
		}
		if err := s.k.Publish(pid); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) sched(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sched <fcfs|rr|priority|sjf|srtf|mlfq>")
	}
	p, ok := kernel.ParsePolicy(args[0])
	if !ok {
		return fmt.Errorf("unknown policy %q", args[0])
	}
	return s.k.SetPolicy(p)
}

func (s *Shell) queue() error {
	fmt.Fprintf(s.out, "policy=%s\n", s.k.Policy())
	if pid, ok := s.k.Current(); ok {
		fmt.Fprintf(s.out, "running=%d\n", pid)
	} else {
		fmt.Fprintln(s.out, "running=none")
	}
	for _, pcb := range s.k.List() {
		if pcb.State == kernel.StateReady {
			fmt.Fprintf(s.out, "ready\t%d\t%s\n", pcb.PID, pcb.Name)
		}
	}
	return nil
}

func (s *Shell) log() error {
	for _, e := range s.k.Log() {
		fmt.Fprintf(s.out, "%d\t%s\t[%d,%d)\tdur=%d\n", e.PID, e.Name, e.StartTick, e.EndTick, e.Duration)
	}
	return nil
}

func (s *Shell) simulate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: simulate <ticks>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("usage: simulate <ticks>: bad tick count")
	}
	s.k.Simulate(n)
	return nil
}

func (s *Shell) block(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: block <pid>")
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	return s.k.ForceBlock(pid)
}

func (s *Shell) unblock(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: unblock <pid>")
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	return s.k.ForceUnblock(pid)
}

func (s *Shell) mbox(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: mbox create|send|recv|destroy|list ...")
	}
	switch args[0] {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: mbox create <name> [capacity] [maxsize]")
		}
		capacity, maxSize := 0, 0
		if len(args) >= 3 {
			capacity, _ = strconv.Atoi(args[2])
		}
		if len(args) >= 4 {
			maxSize, _ = strconv.Atoi(args[3])
		}
		id, err := s.k.MboxCreate(args[1], capacity, maxSize)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "mbox %d\n", id)
		return nil
	case "send":
		if len(args) < 4 {
			return fmt.Errorf("usage: mbox send <id> <pid> <payload>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		pid, err := parsePID(args[2])
		if err != nil {
			return err
		}
		return s.k.MboxSend(id, pid, []byte(strings.Join(args[3:], " ")))
	case "recv":
		if len(args) < 3 {
			return fmt.Errorf("usage: mbox recv <id> <pid>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		pid, err := parsePID(args[2])
		if err != nil {
			return err
		}
		m, err := s.k.MboxRecv(id, pid)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "from=%d payload=%q\n", m.SenderPID, m.Payload)
		return nil
	case "destroy":
		if len(args) < 2 {
			return fmt.Errorf("usage: mbox destroy <id>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return s.k.MboxDestroy(id)
	case "list":
		for _, st := range s.k.MboxList() {
			fmt.Fprintf(s.out, "%d\t%-12s count=%d/%d sent=%d recv=%d\n", st.ID, st.Name, st.Count, st.Capacity, st.Sent, st.Received)
		}
		return nil
	default:
		return fmt.Errorf("unknown mbox subcommand %q", args[0])
	}
}

func (s *Shell) mutex(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: mutex create|lock|trylock|unlock|list ...")
	}
	switch args[0] {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: mutex create <name>")
		}
		id, err := s.k.MutexCreate(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "mutex %d\n", id)
		return nil
	case "lock":
		id, pid, err := parseIDPID(args)
		if err != nil {
			return err
		}
		return s.k.MutexLock(id, pid)
	case "trylock":
		id, pid, err := parseIDPID(args)
		if err != nil {
			return err
		}
		return s.k.MutexTryLock(id, pid)
	case "unlock":
		id, pid, err := parseIDPID(args)
		if err != nil {
			return err
		}
		return s.k.MutexUnlock(id, pid)
	case "list":
		for _, st := range s.k.MutexList() {
			fmt.Fprintf(s.out, "%d\t%-12s locked=%v owner=%d contention=%d\n", st.ID, st.Name, st.Locked, st.OwnerPID, st.ContentionCount)
		}
		return nil
	default:
		return fmt.Errorf("unknown mutex subcommand %q", args[0])
	}
}

func (s *Shell) sem(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: sem create|wait|post|trywait|list ...")
	}
	switch args[0] {
	case "create":
		if len(args) < 3 {
			return fmt.Errorf("usage: sem create <name> <initial>")
		}
		initial, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		id, err := s.k.SemCreate(args[1], int32(initial))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "sem %d\n", id)
		return nil
	case "wait":
		id, pid, err := parseIDPID(args)
		if err != nil {
			return err
		}
		return s.k.SemWait(id, pid)
	case "trywait":
		id, pid, err := parseIDPID(args)
		if err != nil {
			return err
		}
		return s.k.SemTryWait(id, pid)
	case "post":
		if len(args) < 2 {
			return fmt.Errorf("usage: sem post <id>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return s.k.SemPost(id)
	case "list":
		for _, st := range s.k.SemList() {
			fmt.Fprintf(s.out, "%d\t%-12s value=%d waits=%d posts=%d\n", st.ID, st.Name, st.Value, st.Waits, st.Posts)
		}
		return nil
	default:
		return fmt.Errorf("unknown sem subcommand %q", args[0])
	}
}

func parsePID(s string) (kernel.PID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad pid %q: %w", s, err)
	}
	return kernel.PID(n), nil
}

// parseIDPID parses "<cmd> <id> <pid>" into (id, pid).
func parseIDPID(args []string) (int, kernel.PID, error) {
	if len(args) < 3 {
		return 0, 0, fmt.Errorf("usage: %s <id> <pid>", args[0])
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}
	pid, err := parsePID(args[2])
	if err != nil {
		return 0, 0, err
	}
	return id, pid, nil
}
