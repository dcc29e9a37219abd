// Package modeltest provides an in-memory model.Engine for tests.
package modeltest

import (
	"sync"
)

// Engine returns fixed scores and records its inputs.
type Engine struct {
	mu     sync.Mutex
	Scores []float32
	Err    error
	// Block, when set, is received from before Run returns.
	Block     chan struct{}
	calls     int
	active    int
	maxActive int
	last      []float32
	closed    bool
}

// New returns an Engine that always answers scores.
func New(scores ...float32) *Engine {
	return &Engine{Scores: scores}
}

// Run implements model.Engine.
func (e *Engine) Run(input []float32) ([]float32, error) {
	e.mu.Lock()
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	e.mu.Unlock()

	if e.Block != nil {
		<-e.Block
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.active--
	e.calls++
	e.last = append([]float32(nil), input...)
	if e.Err != nil {
		return nil, e.Err
	}
	return append([]float32(nil), e.Scores...), nil
}

// Close implements model.Engine.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

// Calls is the number of Run invocations.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// LastInput is a copy of the last tensor passed to Run.
func (e *Engine) LastInput() []float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float32(nil), e.last...)
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Active is the number of Run calls in progress.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// MaxActive is the highest number of concurrent Run calls seen.
func (e *Engine) MaxActive() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}
