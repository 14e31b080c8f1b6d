package timer

import "time"

const DefaultResolution = 100

// Progress counts a displayed value down from 100 to 0 over a total
// duration in Resolution equal steps. Starting it again cancels the
// current countdown, so at most one terminal callback is ever pending.
type Progress struct {
	sched      Scheduler
	resolution int

	// OnTick observes every displayed value, including the initial 100.
	OnTick func(value int)

	gen       uint64
	value     int
	remaining int
	interval  time.Duration
	// rest is the division remainder, added to the last step so the
	// countdown takes exactly the requested total.
	rest      time.Duration
	running   bool
	pending   Stopper
	onZero    func()
}

func NewProgress(sched Scheduler, resolution int) *Progress {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Progress{sched: sched, resolution: resolution}
}

func (p *Progress) Start(total time.Duration, onZero func()) {
	p.Cancel()
	if total < 0 {
		total = 0
	}
	p.running = true
	p.value = 100
	p.remaining = p.resolution
	p.interval = total / time.Duration(p.resolution)
	p.rest = total - p.interval*time.Duration(p.resolution)
	p.onZero = onZero
	p.schedule(p.gen)
	p.notify()
}

// Cancel stops the countdown without firing the terminal callback and
// reports whether one was running.
func (p *Progress) Cancel() bool {
	wasRunning := p.running
	p.gen++
	p.running = false
	p.onZero = nil
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	return wasRunning
}

func (p *Progress) Running() bool {
	return p.running
}

func (p *Progress) Value() int {
	return p.value
}

func (p *Progress) schedule(gen uint64) {
	d := p.interval
	if p.remaining == 1 {
		d += p.rest
	}
	p.pending = p.sched.AfterFunc(d, func() {
		p.tick(gen)
	})
}

func (p *Progress) tick(gen uint64) {
	if gen != p.gen || !p.running {
		return
	}
	p.remaining--
	p.value = (p.remaining*100 + p.resolution - 1) / p.resolution
	if p.remaining > 0 {
		p.schedule(gen)
		p.notify()
		return
	}
	p.value = 0
	p.running = false
	p.pending = nil
	onZero := p.onZero
	p.onZero = nil
	p.gen++
	p.notify()
	if onZero != nil {
		onZero()
	}
}

func (p *Progress) notify() {
	if p.OnTick != nil {
		p.OnTick(p.value)
	}
}
