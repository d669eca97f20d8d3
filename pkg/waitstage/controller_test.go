package waitstage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SlowAfter:  30 * time.Millisecond,
		FailAfter:  80 * time.Millisecond,
		ResetAfter: 30 * time.Millisecond,
	}
}

type abortSpy struct {
	mu    sync.Mutex
	calls int
}

func (a *abortSpy) fn() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
}

func (a *abortSpy) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func TestStagesAdvanceOnWallClock(t *testing.T) {
	abort := &abortSpy{}
	c := NewController(testConfig(), abort.fn)

	c.Start()
	assert.Equal(t, StageConnecting, c.Stage())

	require.Eventually(t, func() bool { return c.Stage() == StagePeerSlow }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.Stage() == StageFailed }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return abort.count() == 1 }, time.Second, 5*time.Millisecond)

	// Failed auto-resets after the grace period.
	require.Eventually(t, func() bool { return c.Stage() == StageIdle }, time.Second, 5*time.Millisecond)
}

func TestConnectionSucceededCancelsPendingTimers(t *testing.T) {
	abort := &abortSpy{}
	c := NewController(testConfig(), abort.fn)

	c.Start()
	c.ConnectionSucceeded()
	assert.Equal(t, StageIdle, c.Stage())

	// Past the ceiling, nothing fires for a connected call.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, StageIdle, c.Stage())
	assert.Equal(t, 0, abort.count())
}

func TestConnectionFailedShowsGraceThenResets(t *testing.T) {
	abort := &abortSpy{}
	c := NewController(testConfig(), abort.fn)

	c.Start()
	c.ConnectionFailed()
	assert.Equal(t, StageFailed, c.Stage())
	// The handshake reported its own failure; no extra teardown.
	assert.Equal(t, 0, abort.count())

	require.Eventually(t, func() bool { return c.Stage() == StageIdle }, time.Second, 5*time.Millisecond)
}

func TestStopConnectionAbortsImmediately(t *testing.T) {
	abort := &abortSpy{}
	c := NewController(testConfig(), abort.fn)

	c.Start()
	c.StopConnection()
	assert.Equal(t, StageIdle, c.Stage())
	assert.Equal(t, 1, abort.count())

	// Idempotent: a second stop changes nothing.
	c.StopConnection()
	assert.Equal(t, 1, abort.count())
}

func TestTerminalSignalsWhileIdleAreNoops(t *testing.T) {
	abort := &abortSpy{}
	c := NewController(testConfig(), abort.fn)

	c.ConnectionSucceeded()
	c.ConnectionFailed()
	c.StopConnection()

	assert.Equal(t, StageIdle, c.Stage())
	assert.Equal(t, 0, abort.count())
}

func TestStartRestartsCleanly(t *testing.T) {
	abort := &abortSpy{}
	c := NewController(testConfig(), abort.fn)

	c.Start()
	require.Eventually(t, func() bool { return c.Stage() == StagePeerSlow }, time.Second, 5*time.Millisecond)

	c.Start()
	assert.Equal(t, StageConnecting, c.Stage())

	// The old ceiling timer must not fire into the new wait early; only the
	// new one, a full FailAfter later, may.
	time.Sleep(20 * time.Millisecond)
	assert.NotEqual(t, StageFailed, c.Stage())
}

func TestStageMessages(t *testing.T) {
	assert.Equal(t, "", StageIdle.Message())
	assert.Equal(t, "Connecting...", StageConnecting.Message())
	assert.Contains(t, StagePeerSlow.Message(), "slow connection")
	assert.Equal(t, "Could not connect.", StageFailed.Message())
}
