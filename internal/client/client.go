// Package client assembles the room mirror, the player machine and the quiz
// coordinator around one event loop and exposes them to the control API.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"office-quiz/internal/behavior"
	"office-quiz/internal/bus"
	"office-quiz/internal/db"
	"office-quiz/internal/events"
	"office-quiz/internal/loop"
	"office-quiz/internal/mirror"
	"office-quiz/internal/notice"
	"office-quiz/internal/notify"
	"office-quiz/internal/quiz"
	"office-quiz/internal/room"
	"office-quiz/internal/timer"
	"office-quiz/internal/world"
)

const (
	maxFrame  = 250 * time.Millisecond
	maxAlerts = 20
)

var (
	ErrUnknownStation = errors.New("unknown station")
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDisconnected   = errors.New("room disconnected")
)

// Sink receives every bus event, already on the loop goroutine. It must
// not block.
type Sink interface {
	Publish(topic string, event any)
}

// AlertSource delivers account notifications on the loop goroutine.
type AlertSource interface {
	OnAlert(fn func(notify.Alert)) func()
}

type Options struct {
	Printer     *notice.Printer
	Store       *db.Store
	Tokens      quiz.TokenSource
	Rewards     quiz.Submitter
	Stations    []*world.Station
	StationURLs map[world.StationKind]map[string]string
	Behavior    behavior.Options
	Quiz        quiz.Options
	Sink        Sink
	// Lobby and Alerts are optional.
	Lobby  room.Room
	Alerts AlertSource

	TickInterval time.Duration
	// Scheduler defaults to timers posted onto the loop.
	Scheduler timer.Scheduler
	Now       func() time.Time
}

type Client struct {
	loop    *loop.Loop
	room    room.Room
	bus     *bus.Bus
	mirror  *mirror.Mirror
	lobby   *mirror.Lobby
	machine *behavior.Machine
	quiz    *quiz.Coordinator
	printer *notice.Printer
	store   *db.Store
	sink    Sink

	alertSource  AlertSource
	alerts       []notify.Alert
	cancelAlerts func()

	tickEvery time.Duration
	now       func() time.Time

	held       held
	presses    presses
	nearby     *world.Station
	lastTick   time.Time
	connected  bool
	lastNotice string
	lastResult string
	attached   bool
	closed     bool
}

type held struct {
	left, right, up, down bool
}

type presses struct {
	interact, quiz, open bool
}

func New(l *loop.Loop, r room.Room, opts Options) *Client {
	if opts.Printer == nil {
		opts.Printer = notice.NewPrinter("en")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = timer.LoopScheduler{Post: l.Post}
	}
	b := bus.New()
	c := &Client{
		loop:      l,
		room:      r,
		bus:       b,
		printer:   opts.Printer,
		store:     opts.Store,
		sink:      opts.Sink,
		tickEvery: opts.TickInterval,
		now:       opts.Now,
		connected: true,

		alertSource: opts.Alerts,
	}
	if opts.Lobby != nil {
		c.lobby = mirror.NewLobby(opts.Lobby, b)
	}
	c.mirror = mirror.New(r, b, mirror.Options{StationURLs: opts.StationURLs})
	c.mirror.Seed(opts.Stations...)
	c.machine = behavior.New(r, b, sched, opts.Printer, opts.Behavior)

	var history quiz.Recorder
	if opts.Store.Enabled() {
		history = historyRecorder{store: opts.Store}
	}
	c.quiz = quiz.New(quiz.Deps{
		Room:      r,
		Bus:       b,
		Player:    c.machine,
		Scheduler: sched,
		Async:     l,
		Tokens:    opts.Tokens,
		Rewards:   opts.Rewards,
		Names:     c.mirror,
		History:   history,
		Printer:   opts.Printer,
		Now:       opts.Now,
	}, opts.Quiz)
	c.machine.SetRoster(c.quiz)
	return c
}

// Start attaches every component on the loop and announces the player.
func (c *Client) Start(ctx context.Context, name, texture string) error {
	return c.loop.Call(ctx, func() {
		c.attach()
		if texture != "" {
			c.machine.SetTexture(texture)
		}
		if name != "" {
			c.machine.SetName(name)
		}
		c.machine.ReadyToConnect()
	})
}

func (c *Client) attach() {
	if c.attached {
		return
	}
	c.attached = true
	c.bus.Subscribe(bus.All, c, func(e bus.Event) {
		if c.sink != nil {
			c.sink.Publish(string(e.Topic()), e)
		}
	})
	bus.On(c.bus, c, func(e events.QuizNotice) { c.lastNotice = e.Text })
	bus.On(c.bus, c, func(e events.QuizResult) { c.lastResult = e.Text })
	bus.On(c.bus, c, func(events.QuestionShown) { c.lastResult = "" })
	c.mirror.Attach()
	c.lobby.Attach()
	c.quiz.Attach()
	if c.alertSource != nil {
		c.cancelAlerts = c.alertSource.OnAlert(c.onAlert)
	}
}

func (c *Client) onAlert(alert notify.Alert) {
	if c.closed {
		return
	}
	c.alerts = append(c.alerts, alert)
	if len(c.alerts) > maxAlerts {
		c.alerts = c.alerts[len(c.alerts)-maxAlerts:]
	}
	c.bus.Publish(events.Notification{
		Type:      alert.Type,
		Nickname:  alert.Nickname,
		TaxAmount: alert.TaxAmount,
		At:        alert.At,
	})
}

// Run posts frame ticks until ctx ends or the room connection drops, then
// tears the components down.
func (c *Client) Run(ctx context.Context) error {
	var roomDone <-chan struct{}
	if d, ok := c.room.(interface{ Done() <-chan struct{} }); ok {
		roomDone = d.Done()
	}
	ticker := time.NewTicker(c.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.shutdown("client stopped")
			return ctx.Err()
		case <-roomDone:
			reason := "connection closed"
			if e, ok := c.room.(interface{ Err() error }); ok && e.Err() != nil {
				reason = e.Err().Error()
			}
			c.shutdown(reason)
			return fmt.Errorf("%w: %s", ErrDisconnected, reason)
		case <-ticker.C:
			c.loop.Post(func() { c.tick(c.now()) })
		}
	}
}

func (c *Client) shutdown(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.loop.Call(ctx, func() { c.teardown(reason) }); err != nil {
		log.Printf("client teardown skipped reason=%s error=%v", reason, err)
	}
}

func (c *Client) teardown(reason string) {
	if c.closed {
		return
	}
	c.connected = false
	c.bus.Publish(events.Disconnected{Reason: reason})
	c.quiz.Close()
	c.machine.Close()
	c.mirror.Detach()
	c.lobby.Detach()
	if c.cancelAlerts != nil {
		c.cancelAlerts()
		c.cancelAlerts = nil
	}
	c.bus.UnsubscribeOwner(c)
	c.closed = true
	log.Printf("client closed reason=%s", reason)
}

func (c *Client) tick(now time.Time) {
	if c.closed {
		return
	}
	dt := time.Duration(0)
	if !c.lastTick.IsZero() {
		dt = now.Sub(c.lastTick)
	}
	if dt < 0 {
		dt = 0
	}
	if dt > maxFrame {
		dt = maxFrame
	}
	c.lastTick = now
	in := behavior.Input{
		Left:     c.held.left,
		Right:    c.held.right,
		Up:       c.held.up,
		Down:     c.held.down,
		Interact: c.presses.interact,
		Quiz:     c.presses.quiz,
		Open:     c.presses.open,
		Nearby:   c.nearby,
	}
	c.presses = presses{}
	c.machine.Tick(dt, in)
}
