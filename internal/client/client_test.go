package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"office-quiz/internal/behavior"
	"office-quiz/internal/loop"
	"office-quiz/internal/notify"
	"office-quiz/internal/quiz"
	"office-quiz/internal/reward"
	"office-quiz/internal/room"
	"office-quiz/internal/room/roomtest"
	"office-quiz/internal/timer"
	"office-quiz/internal/world"
)

type recordingSink struct {
	mu     sync.Mutex
	topics []string
}

func (s *recordingSink) Publish(topic string, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
}

func (s *recordingSink) has(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, got := range s.topics {
		if got == topic {
			return true
		}
	}
	return false
}

type staticTokens string

func (s staticTokens) Token() (string, error) { return string(s), nil }

type stubRewards struct {
	mu    sync.Mutex
	calls []reward.Submission
}

func (s *stubRewards) Submit(_ context.Context, _ string, sub reward.Submission) (reward.Result, json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sub)
	return reward.Result{IsCorrect: sub.IsCorrect, PrizeMoney: sub.PrizeMoney}, json.RawMessage(`{}`), nil
}

// closingRoom adds a connection lifetime to the in-memory room.
type closingRoom struct {
	*roomtest.Fake
	done chan struct{}
}

func (r closingRoom) Done() <-chan struct{} { return r.done }
func (r closingRoom) Err() error            { return errors.New("server went away") }

type harness struct {
	client  *Client
	room    *roomtest.Fake
	loop    *loop.Loop
	clock   *timer.ManualClock
	sink    *recordingSink
	rewards *stubRewards
}

func newHarness(t *testing.T, r room.Room, fake *roomtest.Fake) *harness {
	t.Helper()
	return newHarnessWith(t, r, fake, nil)
}

func newHarnessWith(t *testing.T, r room.Room, fake *roomtest.Fake, edit func(*Options)) *harness {
	t.Helper()
	l := loop.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)

	h := &harness{
		room:    fake,
		loop:    l,
		clock:   timer.NewManualClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
		sink:    &recordingSink{},
		rewards: &stubRewards{},
	}
	opts := Options{
		Tokens:  staticTokens("tok"),
		Rewards: h.rewards,
		Stations: []*world.Station{
			world.NewStation("c1", world.KindChair, 100, 100, "down"),
			world.NewStation("t1", world.KindTerminal, 600, 800, "up"),
		},
		Behavior:     behavior.DefaultOptions(),
		Quiz:         quiz.DefaultOptions(),
		Sink:         h.sink,
		TickInterval: 10 * time.Millisecond,
		Scheduler:    h.clock,
		Now:          h.clock.Now,
	}
	if edit != nil {
		edit(&opts)
	}
	h.client = New(l, r, opts)
	if err := h.client.Start(context.Background(), "alice", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	return h
}

func (h *harness) onLoop(t *testing.T, fn func()) {
	t.Helper()
	if err := h.loop.Call(context.Background(), fn); err != nil {
		t.Fatalf("loop call: %v", err)
	}
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	h.onLoop(t, func() { h.client.tick(h.clock.Now()) })
}

func TestStartAnnouncesPlayer(t *testing.T) {
	fake := roomtest.New("self")
	h := newHarness(t, fake, fake)

	names := h.room.SentOfType(room.MsgUpdatePlayerName)
	if len(names) != 1 {
		t.Fatalf("expected one name update, got %d", len(names))
	}
	if payload, ok := names[0].Payload.(room.NamePayload); !ok || payload.Name != "alice" {
		t.Fatalf("unexpected name payload: %#v", names[0].Payload)
	}
	if n := len(h.room.SentOfType(room.MsgReadyToConnect)); n != 1 {
		t.Fatalf("expected ready_to_connect, got %d", n)
	}

	status, err := h.client.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Name != "alice" || status.Behavior != "idle" || !status.Connected || status.SessionID != "self" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestInputSitsOnChair(t *testing.T) {
	fake := roomtest.New("self")
	h := newHarness(t, fake, fake)

	err := h.client.ApplyInput(context.Background(), Input{Press: "interact", StationKind: "chair", StationID: "c1"})
	if err != nil {
		t.Fatalf("apply input: %v", err)
	}
	h.tick(t)

	status, err := h.client.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Behavior != "sitting" {
		t.Fatalf("expected sitting, got %s", status.Behavior)
	}
	if !h.sink.has("player.behavior_changed") {
		t.Fatalf("expected behavior change to reach the sink")
	}

	// Presses are consumed by one frame.
	h.tick(t)
	status, _ = h.client.Status(context.Background())
	if status.Behavior != "sitting" {
		t.Fatalf("expected to stay seated, got %s", status.Behavior)
	}
}

func TestInputHeldMovement(t *testing.T) {
	fake := roomtest.New("self")
	h := newHarness(t, fake, fake)
	right := true

	if err := h.client.ApplyInput(context.Background(), Input{Right: &right}); err != nil {
		t.Fatalf("apply input: %v", err)
	}
	h.tick(t)
	h.clock.Advance(100 * time.Millisecond)
	h.tick(t)

	status, _ := h.client.Status(context.Background())
	if status.X != 725 {
		t.Fatalf("expected x=725 after 100ms at 200px/s, got %v", status.X)
	}
}

func TestInputErrors(t *testing.T) {
	fake := roomtest.New("self")
	h := newHarness(t, fake, fake)

	tests := []struct {
		name string
		in   Input
		want error
	}{
		{name: "unknown station", in: Input{StationKind: "chair", StationID: "nope"}, want: ErrUnknownStation},
		{name: "bad kind", in: Input{StationKind: "sofa", StationID: "c1"}, want: ErrInvalidInput},
		{name: "bad press", in: Input{Press: "jump"}, want: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.client.ApplyInput(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if err := h.client.SetName(context.Background(), "  ", ""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected invalid name, got %v", err)
	}
}

func TestQuizRoundReachesResult(t *testing.T) {
	fake := roomtest.New("self")
	h := newHarness(t, fake, fake)

	h.onLoop(t, func() {
		h.room.Deliver(room.MsgPlayerJoinQuiz, room.PlayerJoinQuizPayload{PlayerName: "alice", ParticipantsCount: 1})
		h.room.Deliver(room.MsgStartQuiz, room.StartQuizPayload{CurQuiz: 1, QuizTime: 5})
	})
	qs, err := h.client.QuizStatus(context.Background(), 0)
	if err != nil {
		t.Fatalf("quiz status: %v", err)
	}
	if qs.Phase != string(quiz.PhaseActive) || qs.Round == nil || qs.Round.Question != "The sun is bigger than the earth." {
		t.Fatalf("unexpected quiz status: %+v", qs)
	}

	h.onLoop(t, func() { h.clock.Advance(5 * time.Second) })

	deadline := time.Now().Add(2 * time.Second)
	for {
		qs, err = h.client.QuizStatus(context.Background(), 0)
		if err != nil {
			t.Fatalf("quiz status: %v", err)
		}
		if qs.LastResult != "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for quiz result")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// The avatar never walked onto the answer floor.
	if qs.LastResult != "Wrong answer!" || qs.Phase != string(quiz.PhaseNoRound) || qs.Round != nil {
		t.Fatalf("unexpected final quiz status: %+v", qs)
	}
	h.rewards.mu.Lock()
	defer h.rewards.mu.Unlock()
	if len(h.rewards.calls) != 1 || h.rewards.calls[0].IsCorrect {
		t.Fatalf("unexpected submissions: %+v", h.rewards.calls)
	}
}

func TestRunStopsWhenRoomCloses(t *testing.T) {
	fake := roomtest.New("self")
	r := closingRoom{Fake: fake, done: make(chan struct{})}
	h := newHarness(t, r, fake)

	errCh := make(chan error, 1)
	go func() { errCh <- h.client.Run(context.Background()) }()
	close(r.done)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrDisconnected) {
			t.Fatalf("expected disconnect error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return after disconnect")
	}
	if !h.sink.has("room.disconnected") {
		t.Fatalf("expected disconnect event to reach the sink")
	}
	if err := h.client.ApplyInput(context.Background(), Input{Press: "quiz"}); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected input to be rejected after disconnect, got %v", err)
	}
	status, _ := h.client.Status(context.Background())
	if status.Connected {
		t.Fatalf("expected disconnected status")
	}
}

type stubAlerts struct {
	handlers []func(notify.Alert)
	cancels  int
}

func (s *stubAlerts) OnAlert(fn func(notify.Alert)) func() {
	s.handlers = append(s.handlers, fn)
	return func() { s.cancels++ }
}

func TestStatusListsLobbyRoomsAndAlerts(t *testing.T) {
	fake := roomtest.New("self")
	lobby := roomtest.New("lobby")
	alerts := &stubAlerts{}
	h := newHarnessWith(t, fake, fake, func(o *Options) {
		o.Lobby = lobby
		o.Alerts = alerts
	})

	h.onLoop(t, func() {
		lobby.Deliver(room.MsgLobbyRooms, []room.AvailableRoomPayload{{
			RoomID:     "r1",
			Clients:    3,
			MaxClients: 16,
			Metadata:   room.RoomDataMetadata{Name: "Main office"},
		}})
		for i := 0; i < maxAlerts+2; i++ {
			for _, fn := range alerts.handlers {
				fn(notify.Alert{Type: notify.TypeTaxAlert, Nickname: "bob", TaxAmount: float64(i + 1), At: h.clock.Now()})
			}
		}
	})

	status, err := h.client.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status.Rooms) != 1 || status.Rooms[0].Name != "Main office" || status.Rooms[0].Clients != 3 {
		t.Fatalf("unexpected rooms: %+v", status.Rooms)
	}
	if len(status.Alerts) != maxAlerts {
		t.Fatalf("expected %d alerts, got %d", maxAlerts, len(status.Alerts))
	}
	if first := status.Alerts[0]; first.TaxAmount != 3 {
		t.Fatalf("expected oldest alerts trimmed, got %+v", first)
	}
	if !h.sink.has("notification.received") || !h.sink.has("lobby.rooms_changed") {
		t.Fatalf("expected lobby and notification events to reach the sink")
	}

	h.onLoop(t, func() { h.client.teardown("done") })
	if alerts.cancels != 1 {
		t.Fatalf("expected alert handler cancelled, got %d", alerts.cancels)
	}
	if n := lobby.Handlers(room.MsgLobbyRooms); n != 0 {
		t.Fatalf("expected lobby handlers removed, got %d", n)
	}
}
