package kernel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClockTickAdvancesAndCallsBack(t *testing.T) {
	clock := NewManualClock()
	var calls int64
	clock.onTick = func(now uint64) { atomic.AddInt64(&calls, 1) }

	assert.EqualValues(t, 0, clock.Now())
	n := clock.Tick()
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 1, clock.Now())
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestDisableSchedulerStillAdvancesCounter(t *testing.T) {
	clock := NewManualClock()
	var calls int64
	clock.onTick = func(now uint64) { atomic.AddInt64(&calls, 1) }

	clock.DisableScheduler()
	clock.Tick()
	clock.Tick()
	assert.EqualValues(t, 2, clock.Now())
	assert.EqualValues(t, 0, atomic.LoadInt64(&calls), "disabled scheduler must not invoke the callback")

	clock.EnableScheduler()
	clock.Tick()
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestRealClockStartStopDrivesTicks(t *testing.T) {
	clock := NewRealClock(200) // 5ms period
	var calls int64
	clock.onTick = func(now uint64) { atomic.AddInt64(&calls, 1) }

	clock.Start()
	time.Sleep(50 * time.Millisecond)
	clock.Stop()

	got := atomic.LoadInt64(&calls)
	assert.Greater(t, got, int64(0), "real clock must have ticked at least once in 50ms at 200Hz")

	// Stopping must halt the background goroutine: the counter should not
	// keep advancing afterwards.
	after := clock.Now()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, clock.Now())
}

func TestConfigureRejectsNonPositiveHz(t *testing.T) {
	clock := NewManualClock()
	err := clock.Configure(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadArgs)
}
