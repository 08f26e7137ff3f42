package planner

import (
	"context"
	"sync"
)

// Gate pauses a planning loop between iterations. Pause and Resume may be
// called from any goroutine; the loop calls Wait once per iteration.
// A nil Gate never blocks.
type Gate struct {
	mu     sync.Mutex
	resume chan struct{} // nil while running
}

func NewGate() *Gate { return &Gate{} }

// Pause makes subsequent Wait calls block until Resume.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume == nil {
		g.resume = make(chan struct{})
	}
}

// Resume releases every waiter.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume != nil {
		close(g.resume)
		g.resume = nil
	}
}

// Toggle flips between paused and running and reports whether the gate is now paused.
func (g *Gate) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume == nil {
		g.resume = make(chan struct{})
		return true
	}
	close(g.resume)
	g.resume = nil
	return false
}

// Paused reports whether the gate is currently closed.
func (g *Gate) Paused() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resume != nil
}

// Wait blocks while the gate is paused. It returns ctx.Err() if ctx ends first.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	g.mu.Lock()
	resume := g.resume
	g.mu.Unlock()
	if resume == nil {
		return ctx.Err()
	}

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
