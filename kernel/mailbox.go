package kernel

import "strconv"

// Message is one payload queued in a Mailbox, tagged with its sender.
type Message struct {
	SenderPID PID
	Payload   []byte
}

// Mailbox is a bounded FIFO message queue with separate sender/receiver
// waiter queues (spec.md §3/§4.5.1).
type Mailbox struct {
	ID         int
	Name       string
	capacity   int
	maxMsgSize int

	buf   []Message
	head  int
	count int

	senderWaiters   []*PCB
	receiverWaiters []*PCB

	sent      uint64
	received  uint64
	destroyed bool
}

// MailboxStats is a read-only snapshot for diagnostics (SPEC_FULL.md
// §4.5's Stats() supplement, grounded on original_source's ipc.c mailbox
// query).
type MailboxStats struct {
	ID       int
	Name     string
	Capacity int
	Count    int
	Sent     uint64
	Received uint64
}

const (
	defaultMailboxCapacity = 8
	defaultMaxMessageSize  = 256
)

func (mb *Mailbox) pushLocked(sender PID, payload []byte) {
	idx := (mb.head + mb.count) % mb.capacity
	// copy payload: the caller's slice must not alias kernel-owned state
	cp := append([]byte(nil), payload...)
	mb.buf[idx] = Message{SenderPID: sender, Payload: cp}
	mb.count++
}

func (mb *Mailbox) popLocked() Message {
	m := mb.buf[mb.head]
	mb.buf[mb.head] = Message{}
	mb.head = (mb.head + 1) % mb.capacity
	mb.count--
	return m
}

// MboxCreate creates a new mailbox with the given capacity and maximum
// per-message size (both default when <= 0). ErrNameExists if a live
// mailbox already uses name; ErrOutOfSlots if the kernel is already hosting
// its configured maximum number of mailboxes.
func (k *Kernel) MboxCreate(name string, capacity, maxMsgSize int) (int, error) {
	if name == "" {
		return 0, ErrBadArgs
	}
	if capacity <= 0 {
		capacity = defaultMailboxCapacity
	}
	if maxMsgSize <= 0 {
		maxMsgSize = defaultMaxMessageSize
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, mb := range k.mailboxes {
		if !mb.destroyed && mb.Name == name {
			return 0, ErrNameExists
		}
	}
	if len(k.mailboxes) >= k.mailboxSlots {
		return 0, ErrOutOfSlots
	}
	k.nextMboxID++
	id := k.nextMboxID
	k.mailboxes[id] = &Mailbox{
		ID:         id,
		Name:       name,
		capacity:   capacity,
		maxMsgSize: maxMsgSize,
		buf:        make([]Message, capacity),
	}
	return id, nil
}

// MboxFind looks up a mailbox id by name.
func (k *Kernel) MboxFind(name string) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for id, mb := range k.mailboxes {
		if !mb.destroyed && mb.Name == name {
			return id, nil
		}
	}
	return 0, ErrNotFound
}

// MboxList returns stats for every live mailbox.
func (k *Kernel) MboxList() []MailboxStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]MailboxStats, 0, len(k.mailboxes))
	for _, mb := range k.mailboxes {
		if mb.destroyed {
			continue
		}
		out = append(out, mb.statsLocked())
	}
	return out
}

// MboxStats returns a single mailbox's stats.
func (k *Kernel) MboxStats(id int) (MailboxStats, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	mb, ok := k.mailboxes[id]
	if !ok || mb.destroyed {
		return MailboxStats{}, ErrNotFound
	}
	return mb.statsLocked(), nil
}

func (mb *Mailbox) statsLocked() MailboxStats {
	return MailboxStats{ID: mb.ID, Name: mb.Name, Capacity: mb.capacity, Count: mb.count, Sent: mb.sent, Received: mb.received}
}

// MboxDestroy destroys a mailbox, unblocking every waiter with
// ErrNotFound (they retry their operation and observe the mailbox is
// gone).
func (k *Kernel) MboxDestroy(id int) error {
	k.mu.Lock()
	mb, ok := k.mailboxes[id]
	if !ok || mb.destroyed {
		k.mu.Unlock()
		return ErrNotFound
	}
	mb.destroyed = true
	waiters := append(append([]*PCB(nil), mb.senderWaiters...), mb.receiverWaiters...)
	mb.senderWaiters = nil
	mb.receiverWaiters = nil
	for _, p := range waiters {
		k.sched.unblock(p)
	}
	delete(k.mailboxes, id)
	k.mu.Unlock()
	for _, p := range waiters {
		notify(p)
	}
	return nil
}

// mboxTrySend is the non-blocking fast path shared by MboxSend and the
// retry-after-wake step of MboxSendBlocking.
func (k *Kernel) mboxTrySend(id int, callerPID PID, payload []byte) error {
	k.mu.Lock()
	mb, ok := k.mailboxes[id]
	if !ok || mb.destroyed {
		k.mu.Unlock()
		return ErrNotFound
	}
	if len(payload) > mb.maxMsgSize {
		k.mu.Unlock()
		return ErrBadArgs
	}
	if mb.count == mb.capacity {
		k.mu.Unlock()
		return ErrFull
	}
	mb.pushLocked(callerPID, payload)
	mb.sent++
	var woke *PCB
	if len(mb.receiverWaiters) > 0 {
		woke = mb.receiverWaiters[0]
		mb.receiverWaiters = mb.receiverWaiters[1:]
		k.sched.unblock(woke)
	}
	k.mu.Unlock()
	if woke != nil {
		notify(woke)
	}
	return nil
}

// MboxSend is the non-blocking send: ErrFull if there's no room.
func (k *Kernel) MboxSend(id int, callerPID PID, payload []byte) error {
	return k.mboxTrySend(id, callerPID, payload)
}

// MboxSendBlocking blocks the caller until there is room, destruction, or
// a bad argument. On wake it retries the send exactly once and returns
// whatever that attempt yields.
func (k *Kernel) MboxSendBlocking(id int, callerPID PID, payload []byte) error {
	err := k.mboxTrySend(id, callerPID, payload)
	if err != ErrFull {
		return err
	}

	k.mu.Lock()
	mb, ok := k.mailboxes[id]
	if !ok || mb.destroyed {
		k.mu.Unlock()
		return ErrNotFound
	}
	pcb, ok := k.table.procs[callerPID]
	if !ok {
		k.mu.Unlock()
		return ErrNotFound
	}
	mb.senderWaiters = append(mb.senderWaiters, pcb)
	k.sched.block(pcb, blockCause{kind: BlockMboxFull, resourceID: id})
	k.logContention(mboxCategory(id, "full"), LevelDebug, "mailbox", id, callerPID)
	k.mu.Unlock()

	<-pcb.wake

	return k.mboxTrySend(id, callerPID, payload)
}

// mboxTryRecv is the non-blocking fast path shared by MboxRecv and the
// retry-after-wake step of MboxRecvBlocking.
func (k *Kernel) mboxTryRecv(id int, callerPID PID) (Message, error) {
	k.mu.Lock()
	mb, ok := k.mailboxes[id]
	if !ok || mb.destroyed {
		k.mu.Unlock()
		return Message{}, ErrNotFound
	}
	if mb.count == 0 {
		k.mu.Unlock()
		return Message{}, ErrEmpty
	}
	m := mb.popLocked()
	mb.received++
	var woke *PCB
	if len(mb.senderWaiters) > 0 {
		woke = mb.senderWaiters[0]
		mb.senderWaiters = mb.senderWaiters[1:]
		k.sched.unblock(woke)
	}
	_ = callerPID
	k.mu.Unlock()
	if woke != nil {
		notify(woke)
	}
	return m, nil
}

// MboxRecv is the non-blocking receive: ErrEmpty if there's nothing
// pending.
func (k *Kernel) MboxRecv(id int, callerPID PID) (Message, error) {
	return k.mboxTryRecv(id, callerPID)
}

// MboxRecvBlocking blocks the caller until a message arrives,
// destruction, or not-found. On wake it retries the receive exactly once.
func (k *Kernel) MboxRecvBlocking(id int, callerPID PID) (Message, error) {
	m, err := k.mboxTryRecv(id, callerPID)
	if err != ErrEmpty {
		return m, err
	}

	k.mu.Lock()
	mb, ok := k.mailboxes[id]
	if !ok || mb.destroyed {
		k.mu.Unlock()
		return Message{}, ErrNotFound
	}
	pcb, ok := k.table.procs[callerPID]
	if !ok {
		k.mu.Unlock()
		return Message{}, ErrNotFound
	}
	mb.receiverWaiters = append(mb.receiverWaiters, pcb)
	k.sched.block(pcb, blockCause{kind: BlockMboxEmpty, resourceID: id})
	k.logContention(mboxCategory(id, "empty"), LevelDebug, "mailbox", id, callerPID)
	k.mu.Unlock()

	<-pcb.wake

	return k.mboxTryRecv(id, callerPID)
}

func mboxCategory(id int, kind string) string {
	return "mbox:" + kind + ":" + strconv.Itoa(id)
}
