package kernel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMboxSendRecvRoundTrip(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("m", 4, 64)
	require.NoError(t, err)

	sender := spawnReady(t, k, "sender", 1)
	receiver := spawnReady(t, k, "receiver", 1)

	require.NoError(t, k.MboxSend(id, sender, []byte("hello")))
	msg, err := k.MboxRecv(id, receiver)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), msg.Payload) // L1: round-trip verbatim
	assert.Equal(t, sender, msg.SenderPID)
}

func TestMboxRecvEmptyIsError(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("m", 4, 64)
	require.NoError(t, err)
	receiver := spawnReady(t, k, "receiver", 1)

	_, err = k.MboxRecv(id, receiver)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMboxSendFullIsError(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("m", 1, 64)
	require.NoError(t, err)
	sender := spawnReady(t, k, "sender", 1)

	require.NoError(t, k.MboxSend(id, sender, []byte("a")))
	err = k.MboxSend(id, sender, []byte("b"))
	assert.ErrorIs(t, err, ErrFull)
}

func TestMboxSendOversizeIsBadArgs(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("m", 4, 2)
	require.NoError(t, err)
	sender := spawnReady(t, k, "sender", 1)

	err = k.MboxSend(id, sender, []byte("too long"))
	assert.ErrorIs(t, err, ErrBadArgs)
}

// TestMboxBlockingProducerConsumer is end-to-end scenario 4: a blocked
// receiver wakes and retries exactly once when a sender fills the mailbox.
func TestMboxBlockingProducerConsumer(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("m", 1, 64)
	require.NoError(t, err)

	producer := spawnReady(t, k, "producer", 1)
	consumer := spawnReady(t, k, "consumer", 1)

	var wg sync.WaitGroup
	var got Message
	var recvErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, recvErr = k.MboxRecvBlocking(id, consumer)
	}()

	// Give the consumer goroutine a chance to block on an empty mailbox.
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, k.MboxSend(id, producer, []byte("payload")))
	wg.Wait()

	require.NoError(t, recvErr)
	assert.Equal(t, []byte("payload"), got.Payload)
	assert.Equal(t, producer, got.SenderPID)
}

// TestMboxBlockingSenderWakesOnRoom covers the sender side of the same law:
// a sender blocked on a full mailbox wakes once the receiver makes room.
func TestMboxBlockingSenderWakesOnRoom(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("m", 1, 64)
	require.NoError(t, err)

	sender := spawnReady(t, k, "sender", 1)
	receiver := spawnReady(t, k, "receiver", 1)

	require.NoError(t, k.MboxSend(id, sender, []byte("first")))

	var wg sync.WaitGroup
	var sendErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		sendErr = k.MboxSendBlocking(id, sender, []byte("second"))
	}()

	time.Sleep(20 * time.Millisecond)

	first, err := k.MboxRecv(id, receiver)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), first.Payload)

	wg.Wait()
	require.NoError(t, sendErr)

	second, err := k.MboxRecv(id, receiver)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), second.Payload) // strict FIFO within one mailbox
}

func TestMboxDestroyWakesWaitersWithNotFound(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("m", 1, 64)
	require.NoError(t, err)
	receiver := spawnReady(t, k, "receiver", 1)

	var wg sync.WaitGroup
	var recvErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, recvErr = k.MboxRecvBlocking(id, receiver)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, k.MboxDestroy(id))
	wg.Wait()

	assert.ErrorIs(t, recvErr, ErrNotFound)
}

func TestMboxCreateDuplicateNameIsNameExists(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.MboxCreate("dup", 2, 32)
	require.NoError(t, err)

	_, err = k.MboxCreate("dup", 2, 32)
	assert.ErrorIs(t, err, ErrNameExists)
}

func TestMboxCreateDestroyedNameIsReusable(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("dup", 2, 32)
	require.NoError(t, err)
	require.NoError(t, k.MboxDestroy(id))

	_, err = k.MboxCreate("dup", 2, 32)
	assert.NoError(t, err)
}

func TestMboxCreateOutOfSlots(t *testing.T) {
	k := newTestKernel(t, WithMailboxSlots(1))
	_, err := k.MboxCreate("a", 2, 32)
	require.NoError(t, err)

	_, err = k.MboxCreate("b", 2, 32)
	assert.ErrorIs(t, err, ErrOutOfSlots)
}

func TestMboxFindAndList(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.MboxCreate("named", 2, 32)
	require.NoError(t, err)

	found, err := k.MboxFind("named")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	list := k.MboxList()
	require.Len(t, list, 1)
	assert.Equal(t, "named", list[0].Name)
}
