// Package loop serializes all client state mutation onto one goroutine.
//
// Network readers, timers and the control API never touch component state
// directly. They Post a closure and the loop runs closures one at a time in
// the order they were posted. Blocking work runs through Go, whose
// continuation is posted back once the work returns.
package loop

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"sync"
)

var ErrClosed = errors.New("loop closed")

type Loop struct {
	queue     chan func()
	closed    chan struct{}
	closeOnce sync.Once
}

func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		queue:  make(chan func(), buffer),
		closed: make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the queue is full and reports false
// once the loop has been closed.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.closed:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.closed:
		return false
	}
}

// Go runs work on its own goroutine. A non-nil continuation returned by
// work is posted back onto the loop.
func (l *Loop) Go(work func() func()) {
	go func() {
		next := work()
		if next == nil {
			return
		}
		if !l.Post(next) {
			log.Printf("loop continuation dropped reason=closed")
		}
	}()
}

// Call posts fn and waits until it has run.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted closures until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.closed:
			return nil
		case fn := <-l.queue:
			l.run(fn)
		}
	}
}

func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closed)
	})
}

func (l *Loop) Done() <-chan struct{} {
	return l.closed
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("loop task panic error=%v\n%s", r, debug.Stack())
		}
	}()
	fn()
}
