package mirror

import (
	"encoding/json"
	"strings"
	"testing"

	"office-quiz/internal/bus"
	"office-quiz/internal/events"
	"office-quiz/internal/room"
	"office-quiz/internal/room/roomtest"
	"office-quiz/internal/world"
)

type recorder struct {
	events []bus.Event
}

func (r *recorder) of(topic bus.Topic) []bus.Event {
	var out []bus.Event
	for _, e := range r.events {
		if e.Topic() == topic {
			out = append(out, e)
		}
	}
	return out
}

func newMirror(t *testing.T, opts Options) (*Mirror, *roomtest.Fake, *recorder) {
	t.Helper()
	fake := roomtest.New("self")
	b := bus.New()
	rec := &recorder{}
	b.Subscribe(bus.All, rec, func(e bus.Event) { rec.events = append(rec.events, e) })
	m := New(fake, b, opts)
	m.Attach()
	return m, fake, rec
}

func TestPlayerJoinsWhenNameArrives(t *testing.T) {
	m, fake, rec := newMirror(t, Options{})

	fake.Add(room.CollectionPlayers, "p2", room.PlayerState{X: 705, Y: 500, Anim: "adam_idle_down"})
	if got := len(rec.of(events.TopicPlayerJoined)); got != 0 {
		t.Fatalf("expected no join before name, got %d", got)
	}

	fake.Change(room.CollectionPlayers, "p2", "name", "bob")
	joined := rec.of(events.TopicPlayerJoined)
	if len(joined) != 1 {
		t.Fatalf("expected one join, got %d", len(joined))
	}
	if e := joined[0].(events.PlayerJoined); e.ID != "p2" || e.Player.Name != "bob" {
		t.Fatalf("unexpected join event: %+v", e)
	}
	if got := len(rec.of(events.TopicPlayerUpdated)); got != 1 {
		t.Fatalf("expected the name update to be reported, got %d", got)
	}

	fake.Change(room.CollectionPlayers, "p2", "name", "robert")
	if got := len(rec.of(events.TopicPlayerJoined)); got != 1 {
		t.Fatalf("expected rename not to rejoin, got %d joins", got)
	}
	if m.NameOf("p2") != "robert" {
		t.Fatalf("expected name robert, got %q", m.NameOf("p2"))
	}
}

func TestExistingNamedPlayerJoinsOnAdd(t *testing.T) {
	_, fake, rec := newMirror(t, Options{})
	fake.Add(room.CollectionPlayers, "p3", room.PlayerState{Name: "carol"})
	if got := len(rec.of(events.TopicPlayerJoined)); got != 1 {
		t.Fatalf("expected join for named player, got %d", got)
	}
}

func TestSelfEchoIsMirroredSilently(t *testing.T) {
	m, fake, rec := newMirror(t, Options{})
	fake.Add(room.CollectionPlayers, "self", room.PlayerState{Name: "me", X: 1})
	fake.Change(room.CollectionPlayers, "self", "x", 42.0)
	fake.Change(room.CollectionPlayers, "self", "anim", "adam_run_left")

	echo, ok := m.Player("self")
	if !ok {
		t.Fatalf("expected the server echo of the local player")
	}
	if echo.X != 42 || echo.Name != "me" || echo.Anim != "adam_run_left" {
		t.Fatalf("unexpected echo: %+v", echo)
	}
	if len(rec.events) != 0 {
		t.Fatalf("expected no events for self, got %d", len(rec.events))
	}
	if len(m.Players()) != 0 {
		t.Fatalf("expected self to stay out of the remote list")
	}

	fake.Remove(room.CollectionPlayers, "self")
	if _, ok := m.Player("self"); ok {
		t.Fatalf("expected echo to be cleared on remove")
	}
	if len(rec.events) != 0 {
		t.Fatalf("expected no events for self removal, got %d", len(rec.events))
	}
}

func TestPositionAndUnknownFields(t *testing.T) {
	m, fake, rec := newMirror(t, Options{})
	fake.Add(room.CollectionPlayers, "p2", room.PlayerState{Name: "bob"})
	fake.Change(room.CollectionPlayers, "p2", "x", 40)
	fake.Change(room.CollectionPlayers, "p2", "hat", "red")
	fake.Change(room.CollectionPlayers, "p2", "y", "not a number")
	fake.Change(room.CollectionPlayers, "ghost", "x", 1)

	updates := rec.of(events.TopicPlayerUpdated)
	if len(updates) != 1 {
		t.Fatalf("expected one valid update, got %d", len(updates))
	}
	if e := updates[0].(events.PlayerUpdated); e.Field != "x" || e.Value.(float64) != 40 {
		t.Fatalf("unexpected update: %+v", e)
	}
	player, _ := m.Player("p2")
	if player.X != 40 {
		t.Fatalf("expected x=40, got %v", player.X)
	}
}

func TestPlayerLeftCarriesName(t *testing.T) {
	m, fake, rec := newMirror(t, Options{})
	fake.Add(room.CollectionComputers, "0", room.StationState{X: 1, Y: 2, ConnectedUser: []string{"p2"}})
	fake.Add(room.CollectionPlayers, "p2", room.PlayerState{Name: "bob"})
	fake.Remove(room.CollectionPlayers, "p2")

	left := rec.of(events.TopicPlayerLeft)
	if len(left) != 1 || left[0].(events.PlayerLeft).Name != "bob" {
		t.Fatalf("unexpected leave events: %+v", left)
	}
	station, _ := m.Station(world.KindComputer, "0")
	if station.HasUser("p2") {
		t.Fatalf("expected departed player to be cleared from stations")
	}
	fake.Remove(room.CollectionPlayers, "p2")
	if got := len(rec.of(events.TopicPlayerLeft)); got != 1 {
		t.Fatalf("expected duplicate remove to be dropped, got %d", got)
	}
}

func TestStationURLsAndConnectedUsers(t *testing.T) {
	opts := Options{StationURLs: map[world.StationKind]map[string]string{
		world.KindWhiteboard: {"1": "https://boards.example/1"},
	}}
	m, fake, rec := newMirror(t, opts)

	fake.Add(room.CollectionWhiteboards, "1", room.StationState{X: 300, Y: 200})
	fake.Add(room.CollectionWhiteboards, "7", room.StationState{X: 500, Y: 200})

	urls := rec.of(events.TopicStationURL)
	if len(urls) != 1 {
		t.Fatalf("expected one url registration, got %d", len(urls))
	}
	if e := urls[0].(events.StationURLRegistered); e.StationID != "1" || e.URL != "https://boards.example/1" {
		t.Fatalf("unexpected url event: %+v", e)
	}
	if _, ok := m.Station(world.KindWhiteboard, "7"); !ok {
		t.Fatalf("expected whiteboard without url to still be tracked")
	}

	fake.ChildAdd(room.CollectionWhiteboards, "1", room.FieldConnectedUser, "p2")
	fake.ChildAdd(room.CollectionWhiteboards, "1", room.FieldConnectedUser, "p2")
	if got := len(rec.of(events.TopicItemUserAdded)); got != 1 {
		t.Fatalf("expected one user added, got %d", got)
	}
	fake.ChildRemove(room.CollectionWhiteboards, "1", room.FieldConnectedUser, "p2")
	fake.ChildRemove(room.CollectionWhiteboards, "1", room.FieldConnectedUser, "p2")
	if got := len(rec.of(events.TopicItemUserRemoved)); got != 1 {
		t.Fatalf("expected one user removed, got %d", got)
	}
	fake.ChildAdd(room.CollectionWhiteboards, "1", "owner", "p2")
	if got := len(rec.of(events.TopicItemUserAdded)); got != 1 {
		t.Fatalf("expected unknown child field to be dropped, got %d", got)
	}
}

func TestSeedRegistersStaticStations(t *testing.T) {
	opts := Options{StationURLs: map[world.StationKind]map[string]string{
		world.KindComputer: {"0": "https://meet.example/0"},
	}}
	m, _, rec := newMirror(t, opts)
	m.Seed(
		world.NewStation("4", world.KindChair, 100, 100, "left"),
		world.NewStation("0", world.KindComputer, 200, 100, ""),
	)
	if len(m.Stations()) != 2 {
		t.Fatalf("expected two stations, got %d", len(m.Stations()))
	}
	if got := len(rec.of(events.TopicStationURL)); got != 1 {
		t.Fatalf("expected computer url registration, got %d", got)
	}
}

func TestChatAndDialogBubble(t *testing.T) {
	m, fake, rec := newMirror(t, Options{})
	fake.Add(room.CollectionChat, "0", room.ChatState{Author: "p2", Content: "hello", CreatedAt: 1700000000000})
	if got := len(rec.of(events.TopicChatMessage)); got != 1 {
		t.Fatalf("expected one chat event, got %d", got)
	}
	if len(m.Chat()) != 1 || m.Chat()[0].Content != "hello" {
		t.Fatalf("unexpected chat log: %+v", m.Chat())
	}

	long := strings.Repeat("가", 80)
	fake.Deliver(room.MsgAddChatMessage, room.ChatPayload{ClientID: "p2", Content: long})
	bubbles := rec.of(events.TopicDialogBubble)
	if len(bubbles) != 1 {
		t.Fatalf("expected one bubble, got %d", len(bubbles))
	}
	content := bubbles[0].(events.DialogBubble).Content
	if want := strings.Repeat("가", 70) + "..."; content != want {
		t.Fatalf("expected truncated bubble, got %q", content)
	}
}

func TestQuizMessagesForwarded(t *testing.T) {
	_, fake, rec := newMirror(t, Options{})
	fake.Deliver(room.MsgPlayerJoinQuiz, room.PlayerJoinQuizPayload{PlayerName: "bob", ParticipantsCount: 2, ExistingParticipants: []string{"alice"}})
	fake.Deliver(room.MsgWaitForNextQuiz, room.WaitForNextQuizPayload{TimeUntilNextQuiz: 12})
	fake.Deliver(room.MsgStartQuiz, room.StartQuizPayload{CurQuiz: 4, QuizTime: 10})
	fake.Deliver(room.MsgEndQuiz, nil)
	fake.Deliver(room.MsgLeftQuiz, nil)
	fake.Deliver(room.MsgPlayerLeftQuiz, room.PlayerLeftQuizPayload{PlayerName: "bob"})
	fake.Deliver(room.MsgStartQuiz, json.RawMessage(`{"curQuiz":"four"}`))

	join := rec.of(events.TopicQuizJoinReceived)
	if len(join) != 1 || join[0].(events.QuizJoinReceived).ParticipantCount != 2 {
		t.Fatalf("unexpected join: %+v", join)
	}
	start := rec.of(events.TopicQuizStartReceived)
	if len(start) != 1 || start[0].(events.QuizStartReceived).QuestionID != 4 {
		t.Fatalf("expected malformed start to be dropped, got %+v", start)
	}
	for _, topic := range []bus.Topic{events.TopicQuizWaitReceived, events.TopicQuizEndReceived, events.TopicQuizLeftReceived, events.TopicQuizPlayerLeft} {
		if got := len(rec.of(topic)); got != 1 {
			t.Fatalf("expected one %s, got %d", topic, got)
		}
	}
}

func TestRoomDataAndDetach(t *testing.T) {
	m, fake, rec := newMirror(t, Options{})
	fake.Deliver(room.MsgRoomData, room.RoomDataPayload{ID: "r1", Name: "Team", HasPassword: true})
	if data := m.RoomData(); data.Name != "Team" || !data.HasPassword {
		t.Fatalf("unexpected room data: %+v", data)
	}

	m.Detach()
	if fake.Observers(room.CollectionPlayers) != 0 || fake.Handlers(room.MsgStartQuiz) != 0 {
		t.Fatalf("expected detach to remove all registrations")
	}
	before := len(rec.events)
	fake.Add(room.CollectionPlayers, "p9", room.PlayerState{Name: "zed"})
	if len(rec.events) != before {
		t.Fatalf("expected no events after detach")
	}
}
