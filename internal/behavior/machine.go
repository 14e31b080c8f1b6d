// Package behavior drives the local avatar: movement, sitting on chairs,
// working at quiz terminals and opening shared stations. It owns the
// progress countdown shown while working.
package behavior

import (
	"log"
	"math"
	"strings"
	"time"

	"office-quiz/internal/bus"
	"office-quiz/internal/events"
	"office-quiz/internal/notice"
	"office-quiz/internal/room"
	"office-quiz/internal/timer"
	"office-quiz/internal/world"
)

// Roster answers whether a display name is enrolled in the quiz.
type Roster interface {
	IsParticipant(name string) bool
}

type Options struct {
	Texture       string
	SpawnX        float64
	SpawnY        float64
	WalkSpeed     float64
	WorkSpeed     float64
	WorkDuration  time.Duration
	ProgressTicks int
	Zone          world.AnswerZone

	// LeaveOutsideZone sends leave_quiz once a participant walks above the
	// quiz floor.
	LeaveOutsideZone bool
}

func DefaultOptions() Options {
	return Options{
		Texture:          world.DefaultTexture,
		SpawnX:           705,
		SpawnY:           500,
		WalkSpeed:        200,
		WorkSpeed:        400,
		WorkDuration:     90 * time.Second,
		ProgressTicks:    timer.DefaultResolution,
		Zone:             world.DefaultAnswerZone(),
		LeaveOutsideZone: true,
	}
}

// Input is one frame of player intent. Movement flags are held keys;
// Interact, Quiz and Open are presses that act once.
type Input struct {
	Left, Right, Up, Down bool

	Interact bool
	Quiz     bool
	Open     bool

	// Nearby is the station the avatar currently overlaps, if any.
	Nearby *world.Station
}

type sentState struct {
	x, y float64
	anim string
}

type Machine struct {
	room    room.Room
	bus     *bus.Bus
	roster  Roster
	printer *notice.Printer
	opts    Options

	behavior world.Behavior
	x, y     float64
	anim     string
	name     string

	seat     *world.Station
	terminal *world.Station
	opened   *world.Station
	hinted   *world.Station

	progress       *timer.Progress
	lastSent       *sentState
	leaveRequested bool
}

func New(r room.Room, b *bus.Bus, sched timer.Scheduler, printer *notice.Printer, opts Options) *Machine {
	if opts.Texture == "" {
		opts.Texture = world.DefaultTexture
	}
	if printer == nil {
		printer = notice.NewPrinter("en")
	}
	m := &Machine{
		room:     r,
		bus:      b,
		printer:  printer,
		opts:     opts,
		behavior: world.BehaviorIdle,
		x:        opts.SpawnX,
		y:        opts.SpawnY,
		anim:     world.Anim(opts.Texture, world.ActionIdle, "down"),
	}
	m.progress = timer.NewProgress(sched, opts.ProgressTicks)
	m.progress.OnTick = func(value int) {
		m.bus.Publish(events.ProgressChanged{Value: value, Visible: true})
	}
	return m
}

// SetRoster wires the quiz participant list used for the zone-exit check.
func (m *Machine) SetRoster(r Roster) {
	m.roster = r
}

func (m *Machine) Behavior() world.Behavior { return m.behavior }

func (m *Machine) Position() (float64, float64) { return m.x, m.y }

func (m *Machine) Anim() string { return m.anim }

func (m *Machine) Name() string { return m.name }

func (m *Machine) ProgressValue() (int, bool) {
	return m.progress.Value(), m.progress.Running()
}

func (m *Machine) OpenedStation() *world.Station { return m.opened }

// Tick advances the machine by one frame.
func (m *Machine) Tick(dt time.Duration, in Input) {
	m.checkQuizZone()
	m.updateHint(in.Nearby)
	if in.Open {
		m.toggleStation(in.Nearby)
	}

	switch m.behavior {
	case world.BehaviorIdle:
		if in.Interact && in.Nearby != nil && in.Nearby.Kind == world.KindChair {
			m.sit(in.Nearby)
			return
		}
		if in.Quiz && in.Nearby != nil && in.Nearby.Kind == world.KindTerminal {
			m.startWork(in.Nearby)
			return
		}
		m.move(dt, in, m.opts.WalkSpeed, true)
	case world.BehaviorSitting:
		if in.Interact {
			m.stand()
		}
	case world.BehaviorWorking:
		m.move(dt, in, m.opts.WorkSpeed, false)
		if in.Quiz {
			m.leaveWork(true)
		}
	}
}

// StartProgress re-arms the progress countdown. onZero runs once when it
// reaches zero and never runs if the countdown is replaced or cancelled.
func (m *Machine) StartProgress(d time.Duration, onZero func()) {
	m.progress.Start(d, func() {
		m.bus.Publish(events.ProgressChanged{Value: 0, Visible: false})
		if onZero != nil {
			onZero()
		}
	})
}

func (m *Machine) CancelProgress() {
	if m.progress.Cancel() {
		m.bus.Publish(events.ProgressChanged{Value: 0, Visible: false})
	}
}

// FinishWork ends any countdown and returns a working avatar to idle
// without telling the server.
func (m *Machine) FinishWork() {
	if m.behavior == world.BehaviorWorking {
		m.leaveWork(false)
		return
	}
	m.CancelProgress()
}

func (m *Machine) SetName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	m.name = name
	m.leaveRequested = false
	m.send(room.MsgUpdatePlayerName, room.NamePayload{Name: name})
	log.Printf("player name set name=%s", name)
	return true
}

func (m *Machine) SetTexture(texture string) {
	texture = strings.TrimSpace(texture)
	if texture == "" {
		return
	}
	m.opts.Texture = texture
	_, action, direction, ok := world.ParseAnim(m.anim)
	if !ok {
		action, direction = world.ActionIdle, "down"
	}
	m.anim = world.Anim(texture, action, direction)
	m.sync()
}

func (m *Machine) ReadyToConnect() {
	m.send(room.MsgReadyToConnect, nil)
}

func (m *Machine) Chat(content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	return m.send(room.MsgAddChatMessage, room.ChatPayload{Content: content})
}

// Close cancels the countdown. It is safe to call more than once.
func (m *Machine) Close() {
	m.progress.Cancel()
}

func (m *Machine) sit(chair *world.Station) {
	shift := world.SittingShift(chair.Direction)
	m.x = chair.X + shift.X
	m.y = chair.Y + shift.Y
	m.anim = world.Anim(m.opts.Texture, world.ActionSit, directionOr(chair.Direction, "down"))
	m.seat = chair
	m.setBehavior(world.BehaviorSitting)
	m.dialog(chair, m.printer.Sprintf(notice.DialogStand))
	m.sync()
}

func (m *Machine) stand() {
	m.anim = world.IdleOf(m.anim)
	if m.seat != nil {
		m.dialog(m.seat, "")
		m.seat = nil
	}
	m.setBehavior(world.BehaviorIdle)
	m.sync()
}

func (m *Machine) startWork(terminal *world.Station) {
	m.send(room.MsgRequestQuiz, nil)
	m.terminal = terminal
	m.anim = world.Anim(m.opts.Texture, world.ActionWork, "down")
	m.dialog(terminal, "")
	m.setBehavior(world.BehaviorWorking)
	m.StartProgress(m.opts.WorkDuration, m.workExpired)
	m.sync()
}

func (m *Machine) workExpired() {
	if m.behavior != world.BehaviorWorking {
		return
	}
	log.Printf("player work expired name=%s", m.name)
	m.leaveWork(true)
}

func (m *Machine) leaveWork(notify bool) {
	if notify {
		m.send(room.MsgLeaveQuiz, nil)
	}
	m.CancelProgress()
	m.anim = world.Anim(m.opts.Texture, world.ActionIdle, "down")
	m.terminal = nil
	m.setBehavior(world.BehaviorIdle)
	m.sync()
}

func (m *Machine) checkQuizZone() {
	if !m.opts.LeaveOutsideZone || m.roster == nil || m.name == "" || !m.roster.IsParticipant(m.name) {
		m.leaveRequested = false
		return
	}
	if m.opts.Zone.Contains(m.y) || m.leaveRequested {
		return
	}
	m.leaveRequested = true
	log.Printf("player left quiz zone name=%s y=%.0f", m.name, m.y)
	if m.behavior == world.BehaviorWorking {
		m.leaveWork(true)
		return
	}
	m.send(room.MsgLeaveQuiz, nil)
}

// toggleStation closes the open shared station, or opens nearby if none is
// open.
func (m *Machine) toggleStation(nearby *world.Station) {
	if m.opened != nil {
		station := m.opened
		m.opened = nil
		switch station.Kind {
		case world.KindComputer:
			m.send(room.MsgDisconnectFromComputer, room.ComputerPayload{ComputerID: station.ID})
		case world.KindWhiteboard:
			m.send(room.MsgDisconnectFromWhiteboard, room.WhiteboardPayload{WhiteboardID: station.ID})
		}
		m.bus.Publish(events.StationClosed{StationID: station.ID, Kind: station.Kind})
		return
	}
	if nearby == nil || !nearby.Kind.Shared() || m.behavior == world.BehaviorSitting {
		return
	}
	switch nearby.Kind {
	case world.KindComputer:
		m.send(room.MsgConnectToComputer, room.ComputerPayload{ComputerID: nearby.ID})
	case world.KindWhiteboard:
		m.send(room.MsgConnectToWhiteboard, room.WhiteboardPayload{WhiteboardID: nearby.ID})
	}
	m.opened = nearby
	m.bus.Publish(events.StationOpened{StationID: nearby.ID, Kind: nearby.Kind, URL: nearby.URL})
}

// updateHint shows the usage hint for the station under the avatar and
// clears it once the avatar moves away.
func (m *Machine) updateHint(nearby *world.Station) {
	if m.behavior != world.BehaviorIdle {
		return
	}
	if nearby == m.hinted {
		return
	}
	if m.hinted != nil {
		m.dialog(m.hinted, "")
	}
	m.hinted = nearby
	if nearby == nil {
		return
	}
	switch nearby.Kind {
	case world.KindChair:
		m.dialog(nearby, m.printer.Sprintf(notice.DialogSit))
	case world.KindTerminal:
		m.dialog(nearby, m.printer.Sprintf(notice.DialogQuiz))
	default:
		m.dialog(nearby, m.printer.Sprintf(notice.DialogUse))
	}
}

func (m *Machine) move(dt time.Duration, in Input, speed float64, animate bool) {
	vx, vy := 0.0, 0.0
	direction := ""
	if in.Left {
		vx -= 1
		direction = "left"
	} else if in.Right {
		vx += 1
		direction = "right"
	}
	if in.Up {
		vy -= 1
		direction = "up"
	} else if in.Down {
		vy += 1
		direction = "down"
	}
	if length := math.Hypot(vx, vy); length > 0 {
		step := speed * dt.Seconds() / length
		m.x += vx * step
		m.y += vy * step
	}
	if animate {
		if direction != "" {
			m.anim = world.Anim(m.opts.Texture, world.ActionRun, direction)
		} else {
			m.anim = world.IdleOf(m.anim)
		}
	}
	m.sync()
}

// sync sends the avatar position only when it differs from what the
// server last received.
func (m *Machine) sync() {
	current := sentState{x: m.x, y: m.y, anim: m.anim}
	if m.lastSent != nil && *m.lastSent == current {
		return
	}
	if m.send(room.MsgUpdatePlayer, room.UpdatePlayerPayload{X: m.x, Y: m.y, Anim: m.anim}) {
		m.lastSent = &current
	}
}

func (m *Machine) setBehavior(next world.Behavior) {
	if m.behavior == next {
		return
	}
	prev := m.behavior
	m.behavior = next
	m.hinted = nil
	m.bus.Publish(events.BehaviorChanged{From: prev, To: next})
}

func (m *Machine) dialog(station *world.Station, text string) {
	m.bus.Publish(events.StationDialog{StationID: station.ID, Kind: station.Kind, Text: text})
}

func (m *Machine) send(msgType string, payload any) bool {
	if m.room == nil {
		return false
	}
	if err := m.room.Send(msgType, payload); err != nil {
		log.Printf("player send failed type=%s error=%v", msgType, err)
		return false
	}
	return true
}

func directionOr(direction, fallback string) string {
	if direction == "" {
		return fallback
	}
	return direction
}
