package screen

import (
	"context"
	"sync"
)

// Dispatcher posts work onto the context that owns the View.
type Dispatcher interface {
	Do(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

// Do implements Dispatcher.
func (f DispatcherFunc) Do(fn func()) { f(fn) }

// Inline runs work on the calling goroutine. Only for views that are safe
// to touch from any goroutine.
var Inline Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// Loop is a single-goroutine Dispatcher for hosts without their own UI
// thread. Posted functions run in order on the goroutine calling Run.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop returns a Loop with room for buffer pending tasks.
func NewLoop(buffer int) *Loop {
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Do queues fn. After the loop stops, fn is dropped.
func (l *Loop) Do(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Run executes queued tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.done) })
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sync blocks until every task queued before it has run, or the loop stops.
func (l *Loop) Sync() {
	ch := make(chan struct{})
	l.Do(func() { close(ch) })
	select {
	case <-ch:
	case <-l.done:
	}
}
