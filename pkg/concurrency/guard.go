package concurrency

import (
	"errors"
	"sync"
)

// ErrBusy is returned when a guarded task is rejected because another
// one is still running.
var ErrBusy = errors.New("another operation is already in progress")

// Guard serializes a single in-flight task. A second task submitted while
// one is running is dropped with ErrBusy, never queued.
type Guard struct {
	mu   sync.Mutex
	busy bool
}

func NewGuard() *Guard {
	return &Guard{}
}

// Execute runs task if no other task is in flight. The busy flag is
// released on every exit path, including a panic inside task.
func (g *Guard) Execute(task func() error) error {
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return ErrBusy
	}
	g.busy = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}()
	return task()
}

// Busy reports whether a task is currently in flight.
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
