package runcontrol

import (
	"context"
	"sync"
)

// Gate is a toggleable pause point. While paused, Wait blocks every
// caller; Resume releases them all at once. The zero value is running.
type Gate struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

// NewGate returns a gate in the running state.
func NewGate() *Gate {
	return &Gate{}
}

// Pause engages the gate. Workers already inside a chunk finish it and
// then block on the next Wait.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.resume = make(chan struct{})
	}
}

// Resume clears the gate and releases all blocked waiters.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.resume)
		g.resume = nil
	}
}

// Toggle flips the gate and reports whether it is now paused.
func (g *Gate) Toggle() bool {
	g.mu.Lock()
	paused := g.paused
	g.mu.Unlock()
	if paused {
		g.Resume()
		return false
	}
	g.Pause()
	return true
}

// Paused reports the current state.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait blocks while the gate is paused. It returns ctx.Err() so a
// single call doubles as the stop check: a nil gate or a running gate
// still observes cancellation.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	for {
		g.mu.Lock()
		ch := g.resume
		g.mu.Unlock()
		if ch == nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
