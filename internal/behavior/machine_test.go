package behavior

import (
	"math"
	"testing"
	"time"

	"office-quiz/internal/bus"
	"office-quiz/internal/events"
	"office-quiz/internal/room"
	"office-quiz/internal/room/roomtest"
	"office-quiz/internal/timer"
	"office-quiz/internal/world"
)

type roster map[string]bool

func (r roster) IsParticipant(name string) bool { return r[name] }

type harness struct {
	machine *Machine
	room    *roomtest.Fake
	clock   *timer.ManualClock
	events  []bus.Event
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		room:  roomtest.New("self"),
		clock: timer.NewManualClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
	}
	b := bus.New()
	b.Subscribe(bus.All, h, func(e bus.Event) { h.events = append(h.events, e) })
	opts := DefaultOptions()
	opts.WorkDuration = 10 * time.Second
	opts.ProgressTicks = 10
	if mutate != nil {
		mutate(&opts)
	}
	h.machine = New(h.room, b, h.clock, nil, opts)
	return h
}

func (h *harness) count(topic bus.Topic) int {
	n := 0
	for _, e := range h.events {
		if e.Topic() == topic {
			n++
		}
	}
	return n
}

func (h *harness) lastUpdate(t *testing.T) room.UpdatePlayerPayload {
	t.Helper()
	sent := h.room.SentOfType(room.MsgUpdatePlayer)
	if len(sent) == 0 {
		t.Fatalf("expected an update_player message")
	}
	return sent[len(sent)-1].Payload.(room.UpdatePlayerPayload)
}

func TestSitAndStand(t *testing.T) {
	h := newHarness(t, nil)
	chair := world.NewStation("3", world.KindChair, 400, 300, "left")

	h.machine.Tick(16*time.Millisecond, Input{Interact: true, Nearby: chair})
	if h.machine.Behavior() != world.BehaviorSitting {
		t.Fatalf("expected sitting, got %s", h.machine.Behavior())
	}
	update := h.lastUpdate(t)
	if update.X != 400 || update.Y != 292 || update.Anim != "adam_sit_left" {
		t.Fatalf("unexpected sitting update: %+v", update)
	}

	h.machine.Tick(16*time.Millisecond, Input{Left: true})
	if x, _ := h.machine.Position(); x != 400 {
		t.Fatalf("expected no movement while sitting, got x=%v", x)
	}

	h.machine.Tick(16*time.Millisecond, Input{Interact: true, Nearby: chair})
	if h.machine.Behavior() != world.BehaviorIdle {
		t.Fatalf("expected idle after standing, got %s", h.machine.Behavior())
	}
	if got := h.lastUpdate(t).Anim; got != "adam_idle_left" {
		t.Fatalf("expected idle_left after standing, got %q", got)
	}
	if got := h.count(events.TopicBehaviorChanged); got != 2 {
		t.Fatalf("expected two behavior changes, got %d", got)
	}
}

func TestMovementSendsOnlyOnChange(t *testing.T) {
	h := newHarness(t, nil)

	h.machine.Tick(16*time.Millisecond, Input{})
	h.machine.Tick(16*time.Millisecond, Input{})
	if got := len(h.room.SentOfType(room.MsgUpdatePlayer)); got != 1 {
		t.Fatalf("expected a single initial update, got %d", got)
	}

	h.machine.Tick(500*time.Millisecond, Input{Left: true})
	update := h.lastUpdate(t)
	if update.X != 605 || update.Anim != "adam_run_left" {
		t.Fatalf("expected x=605 running left, got %+v", update)
	}

	h.machine.Tick(16*time.Millisecond, Input{})
	h.machine.Tick(16*time.Millisecond, Input{})
	if got := h.lastUpdate(t).Anim; got != "adam_idle_left" {
		t.Fatalf("expected idle_left after release, got %q", got)
	}
	if got := len(h.room.SentOfType(room.MsgUpdatePlayer)); got != 3 {
		t.Fatalf("expected 3 updates total, got %d", got)
	}
}

func TestDiagonalMovementIsNormalized(t *testing.T) {
	h := newHarness(t, nil)
	h.machine.Tick(time.Second, Input{Right: true, Down: true})
	x, y := h.machine.Position()
	if dist := math.Hypot(x-705, y-500); math.Abs(dist-200) > 1e-9 {
		t.Fatalf("expected 200px diagonal step, got %v", dist)
	}
	if got := h.machine.Anim(); got != "adam_run_down" {
		t.Fatalf("expected vertical direction to win, got %q", got)
	}
}

func TestTerminalWorkExpires(t *testing.T) {
	h := newHarness(t, nil)
	terminal := world.NewStation("1", world.KindTerminal, 700, 760, "")

	h.machine.Tick(16*time.Millisecond, Input{Quiz: true, Nearby: terminal})
	if h.machine.Behavior() != world.BehaviorWorking {
		t.Fatalf("expected working, got %s", h.machine.Behavior())
	}
	if got := len(h.room.SentOfType(room.MsgRequestQuiz)); got != 1 {
		t.Fatalf("expected one request_quiz, got %d", got)
	}
	if value, running := h.machine.ProgressValue(); value != 100 || !running {
		t.Fatalf("expected progress at 100, got %d running=%v", value, running)
	}
	if got := h.machine.Anim(); got != "adam_work_down" {
		t.Fatalf("expected work animation, got %q", got)
	}

	h.clock.Advance(9 * time.Second)
	if h.machine.Behavior() != world.BehaviorWorking {
		t.Fatalf("expected still working before the deadline")
	}
	h.clock.Advance(time.Second)
	if h.machine.Behavior() != world.BehaviorIdle {
		t.Fatalf("expected idle after work expired, got %s", h.machine.Behavior())
	}
	if got := len(h.room.SentOfType(room.MsgLeaveQuiz)); got != 1 {
		t.Fatalf("expected one leave_quiz, got %d", got)
	}
}

func TestWorkingQuitAndSpeed(t *testing.T) {
	h := newHarness(t, nil)
	terminal := world.NewStation("1", world.KindTerminal, 700, 760, "")
	h.machine.Tick(16*time.Millisecond, Input{Quiz: true, Nearby: terminal})

	h.machine.Tick(500*time.Millisecond, Input{Right: true})
	if x, _ := h.machine.Position(); x != 905 {
		t.Fatalf("expected working speed 400px/s, got x=%v", x)
	}
	if got := h.machine.Anim(); got != "adam_work_down" {
		t.Fatalf("expected animation to stay on work, got %q", got)
	}

	h.machine.Tick(16*time.Millisecond, Input{Quiz: true})
	if h.machine.Behavior() != world.BehaviorIdle {
		t.Fatalf("expected idle after quitting, got %s", h.machine.Behavior())
	}
	if got := len(h.room.SentOfType(room.MsgLeaveQuiz)); got != 1 {
		t.Fatalf("expected leave_quiz on quit, got %d", got)
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("expected countdown to be cancelled, got %d pending", h.clock.Pending())
	}
}

func TestStartProgressReplacesCountdown(t *testing.T) {
	h := newHarness(t, nil)
	var fired []string
	h.machine.StartProgress(10*time.Second, func() { fired = append(fired, "work") })
	h.clock.Advance(3 * time.Second)
	h.machine.StartProgress(5*time.Second, func() { fired = append(fired, "round") })
	h.clock.Advance(time.Minute)
	if len(fired) != 1 || fired[0] != "round" {
		t.Fatalf("expected only the replacing callback, got %v", fired)
	}
}

func TestFinishWorkDoesNotNotifyServer(t *testing.T) {
	h := newHarness(t, nil)
	terminal := world.NewStation("1", world.KindTerminal, 700, 760, "")
	h.machine.Tick(16*time.Millisecond, Input{Quiz: true, Nearby: terminal})

	h.machine.FinishWork()
	if h.machine.Behavior() != world.BehaviorIdle {
		t.Fatalf("expected idle, got %s", h.machine.Behavior())
	}
	if got := len(h.room.SentOfType(room.MsgLeaveQuiz)); got != 0 {
		t.Fatalf("expected no leave_quiz, got %d", got)
	}
	h.machine.FinishWork()
}

func TestLeavingQuizZoneSendsLeaveOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.machine.SetName("alice")
	h.machine.SetRoster(roster{"alice": true})

	for i := 0; i < 3; i++ {
		h.machine.Tick(16*time.Millisecond, Input{})
	}
	if got := len(h.room.SentOfType(room.MsgLeaveQuiz)); got != 1 {
		t.Fatalf("expected a single leave_quiz outside the zone, got %d", got)
	}
}

func TestInsideQuizZoneStays(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.SpawnY = 760 })
	h.machine.SetName("alice")
	h.machine.SetRoster(roster{"alice": true})
	h.machine.Tick(16*time.Millisecond, Input{})
	if got := len(h.room.SentOfType(room.MsgLeaveQuiz)); got != 0 {
		t.Fatalf("expected no leave inside the zone, got %d", got)
	}
}

func TestOpenAndCloseSharedStation(t *testing.T) {
	h := newHarness(t, nil)
	computer := world.NewStation("2", world.KindComputer, 705, 500, "")
	computer.URL = "https://meet.example/2"

	h.machine.Tick(16*time.Millisecond, Input{Open: true, Nearby: computer})
	sent := h.room.SentOfType(room.MsgConnectToComputer)
	if len(sent) != 1 || sent[0].Payload.(room.ComputerPayload).ComputerID != "2" {
		t.Fatalf("unexpected connect messages: %+v", sent)
	}
	if h.machine.OpenedStation() != computer {
		t.Fatalf("expected computer to be open")
	}

	h.machine.Tick(16*time.Millisecond, Input{Open: true})
	if got := len(h.room.SentOfType(room.MsgDisconnectFromComputer)); got != 1 {
		t.Fatalf("expected disconnect, got %d", got)
	}
	if h.count(events.TopicStationOpened) != 1 || h.count(events.TopicStationClosed) != 1 {
		t.Fatalf("expected open and close events")
	}

	chair := world.NewStation("1", world.KindChair, 0, 0, "")
	h.machine.Tick(16*time.Millisecond, Input{Open: true, Nearby: chair})
	if h.machine.OpenedStation() != nil {
		t.Fatalf("expected chairs not to open")
	}
}

func TestStationHints(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.LeaveOutsideZone = false })
	chair := world.NewStation("1", world.KindChair, 0, 0, "down")
	h.machine.Tick(16*time.Millisecond, Input{Nearby: chair})
	h.machine.Tick(16*time.Millisecond, Input{Nearby: chair})
	h.machine.Tick(16*time.Millisecond, Input{})

	var texts []string
	for _, e := range h.events {
		if d, ok := e.(events.StationDialog); ok {
			texts = append(texts, d.Text)
		}
	}
	if len(texts) != 2 || texts[0] != "Press E to sit" || texts[1] != "" {
		t.Fatalf("unexpected dialog sequence: %q", texts)
	}
}

func TestNoRoomIsSafe(t *testing.T) {
	b := bus.New()
	clock := timer.NewManualClock(time.Now())
	m := New(nil, b, clock, nil, DefaultOptions())
	terminal := world.NewStation("1", world.KindTerminal, 700, 760, "")

	m.Tick(16*time.Millisecond, Input{Quiz: true, Nearby: terminal})
	if m.Behavior() != world.BehaviorWorking {
		t.Fatalf("expected local state to change without a room")
	}
	if m.Chat("hi") {
		t.Fatalf("expected chat to report not sent")
	}
	m.Close()
	m.Close()
}

func TestChatAndName(t *testing.T) {
	h := newHarness(t, nil)
	if h.machine.Chat("   ") {
		t.Fatalf("expected blank chat to be ignored")
	}
	if !h.machine.Chat(" hello ") {
		t.Fatalf("expected chat to be sent")
	}
	sent := h.room.SentOfType(room.MsgAddChatMessage)
	if len(sent) != 1 || sent[0].Payload.(room.ChatPayload).Content != "hello" {
		t.Fatalf("unexpected chat messages: %+v", sent)
	}
	if h.machine.SetName("") {
		t.Fatalf("expected blank name to be rejected")
	}
	h.machine.SetName("dana")
	if got := h.room.SentOfType(room.MsgUpdatePlayerName); len(got) != 1 {
		t.Fatalf("expected one name update, got %d", len(got))
	}
	h.machine.SetTexture("lucy")
	if got := h.machine.Anim(); got != "lucy_idle_down" {
		t.Fatalf("expected lucy texture, got %q", got)
	}
}
