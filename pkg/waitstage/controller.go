package waitstage

import (
	"sync"
	"time"
)

// Stage is the user-facing wait feedback state. It advances on wall-clock
// timers only, never on handshake progress, so the displayed pacing is
// deterministic no matter how fast or slow the network is.
type Stage int

const (
	StageIdle Stage = iota
	StageConnecting
	StagePeerSlow
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageConnecting:
		return "connecting"
	case StagePeerSlow:
		return "peer_slow"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message is the display line shown for the stage.
func (s Stage) Message() string {
	switch s {
	case StageConnecting:
		return "Connecting..."
	case StagePeerSlow:
		return "Still connecting, your friend may have a slow connection..."
	case StageFailed:
		return "Could not connect."
	default:
		return ""
	}
}

// Config holds the stage thresholds. Injectable so tests run in
// milliseconds.
type Config struct {
	// SlowAfter promotes Connecting to PeerSlow.
	SlowAfter time.Duration
	// FailAfter is the hard ceiling: the wait is forced to Failed and the
	// abort callback fires, regardless of what the handshake is doing.
	FailAfter time.Duration
	// ResetAfter is the grace period a terminal Failed display stays on
	// screen before auto-resetting to Idle.
	ResetAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		SlowAfter:  5 * time.Second,
		FailAfter:  25 * time.Second,
		ResetAfter: 2 * time.Second,
	}
}

// Controller is the staged-wait state machine. All operations are
// idempotent: Start while running restarts cleanly, terminal signals while
// idle are no-ops. A generation counter invalidates every timer the moment
// any operation supersedes it, so a stale timer can never fire into a newer
// wait.
type Controller struct {
	cfg     Config
	onAbort func()

	mu     sync.Mutex
	gen    int
	stage  Stage
	timers []*time.Timer

	stages chan Stage
}

// NewController creates a controller. onAbort runs when the ceiling expires
// or the user cancels; wire it to the session teardown so the engine is
// never left joined. May be nil.
func NewController(cfg Config, onAbort func()) *Controller {
	return &Controller{
		cfg:     cfg,
		onAbort: onAbort,
		stage:   StageIdle,
		stages:  make(chan Stage, 8),
	}
}

// Stages delivers stage changes to observers. Sends never block.
func (c *Controller) Stages() <-chan Stage {
	return c.stages
}

func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Start begins (or restarts) the staged wait at Connecting.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	gen := c.gen
	c.stopTimersLocked()
	c.setStageLocked(StageConnecting)
	c.timers = append(c.timers,
		time.AfterFunc(c.cfg.SlowAfter, func() { c.advanceSlow(gen) }),
		time.AfterFunc(c.cfg.FailAfter, func() { c.forceFail(gen) }),
	)
}

// ConnectionSucceeded cancels all pending stage timers and resets to Idle.
// No Failed display is ever shown for a call that connected.
func (c *Controller) ConnectionSucceeded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage == StageIdle {
		return
	}
	c.gen++
	c.stopTimersLocked()
	c.setStageLocked(StageIdle)
}

// ConnectionFailed shows the terminal Failed display immediately and
// auto-resets after the grace period. The handshake already knows it
// failed, so no abort callback fires here.
func (c *Controller) ConnectionFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage == StageIdle {
		return
	}
	c.gen++
	gen := c.gen
	c.stopTimersLocked()
	c.setStageLocked(StageFailed)
	c.timers = append(c.timers,
		time.AfterFunc(c.cfg.ResetAfter, func() { c.resetIfCurrent(gen) }))
}

// StopConnection is the user-initiated cancel: the wait resets immediately
// and the abort callback tears the call down.
func (c *Controller) StopConnection() {
	c.mu.Lock()
	if c.stage == StageIdle {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stopTimersLocked()
	c.setStageLocked(StageIdle)
	abort := c.onAbort
	c.mu.Unlock()

	if abort != nil {
		abort()
	}
}

func (c *Controller) advanceSlow(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.stage != StageConnecting {
		return
	}
	c.setStageLocked(StagePeerSlow)
}

// forceFail is the hard-ceiling transition. It ends the underlying call via
// the abort callback so the engine is not left joined behind a dead wait.
func (c *Controller) forceFail(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	next := c.gen
	c.stopTimersLocked()
	c.setStageLocked(StageFailed)
	c.timers = append(c.timers,
		time.AfterFunc(c.cfg.ResetAfter, func() { c.resetIfCurrent(next) }))
	abort := c.onAbort
	c.mu.Unlock()

	if abort != nil {
		abort()
	}
}

func (c *Controller) resetIfCurrent(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.stage != StageFailed {
		return
	}
	c.setStageLocked(StageIdle)
}

func (c *Controller) stopTimersLocked() {
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = c.timers[:0]
}

func (c *Controller) setStageLocked(next Stage) {
	if c.stage == next {
		return
	}
	c.stage = next
	select {
	case c.stages <- next:
	default:
	}
}
