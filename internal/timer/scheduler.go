// Package timer provides the one-shot and countdown timers used by the
// player and quiz state machines. Every timer carries a generation counter
// so a callback that was already in flight when the timer was cancelled or
// re-armed does nothing.
package timer

import "time"

type Stopper interface {
	Stop() bool
}

// Scheduler runs fn once after d. Implementations used by the client must
// deliver fn on the event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Stopper
}

// LoopScheduler arms wall-clock timers whose callbacks are posted to the
// event loop instead of running on the timer goroutine.
type LoopScheduler struct {
	Post func(func()) bool
}

func (s LoopScheduler) AfterFunc(d time.Duration, fn func()) Stopper {
	return time.AfterFunc(d, func() {
		s.Post(fn)
	})
}
