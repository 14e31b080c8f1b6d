package timer

import "time"

// Once is a re-armable one-shot timer. Arming replaces any pending
// callback; a replaced or cancelled callback never runs.
type Once struct {
	sched   Scheduler
	gen     uint64
	pending Stopper
	armed   bool
}

func NewOnce(sched Scheduler) *Once {
	return &Once{sched: sched}
}

func (o *Once) Arm(d time.Duration, fn func()) {
	o.Cancel()
	o.armed = true
	gen := o.gen
	o.pending = o.sched.AfterFunc(d, func() {
		if gen != o.gen || !o.armed {
			return
		}
		o.armed = false
		o.pending = nil
		fn()
	})
}

// Cancel reports whether a callback was pending.
func (o *Once) Cancel() bool {
	wasArmed := o.armed
	o.gen++
	o.armed = false
	if o.pending != nil {
		o.pending.Stop()
		o.pending = nil
	}
	return wasArmed
}

func (o *Once) Armed() bool {
	return o.armed
}
