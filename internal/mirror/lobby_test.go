package mirror

import (
	"encoding/json"
	"testing"

	"office-quiz/internal/bus"
	"office-quiz/internal/events"
	"office-quiz/internal/room"
	"office-quiz/internal/room/roomtest"
)

func newLobby(t *testing.T) (*Lobby, *roomtest.Fake, *recorder) {
	t.Helper()
	fake := roomtest.New("lobby-1")
	b := bus.New()
	rec := &recorder{}
	b.Subscribe(bus.All, rec, func(e bus.Event) { rec.events = append(rec.events, e) })
	l := NewLobby(fake, b)
	l.Attach()
	return l, fake, rec
}

func listedRoom(id, name string, clients int) room.AvailableRoomPayload {
	return room.AvailableRoomPayload{
		RoomID:     id,
		Clients:    clients,
		MaxClients: 16,
		Metadata:   room.RoomDataMetadata{Name: name, Description: name + " room"},
	}
}

func TestLobbyListingUpdates(t *testing.T) {
	l, fake, rec := newLobby(t)

	fake.Deliver(room.MsgLobbyRooms, []room.AvailableRoomPayload{listedRoom("b", "Beta", 2), listedRoom("a", "Alpha", 1)})
	rooms := l.Rooms()
	if len(rooms) != 2 || rooms[0].ID != "a" || rooms[1].Name != "Beta" || rooms[1].Clients != 2 {
		t.Fatalf("unexpected listing: %+v", rooms)
	}

	added := listedRoom("", "Gamma", 0)
	added.Metadata.HasPassword = true
	fake.Deliver(room.MsgLobbyRoomAdded, []any{"c", added})
	fake.Deliver(room.MsgLobbyRoomAdded, []any{"a", listedRoom("a", "Alpha", 5)})
	rooms = l.Rooms()
	if len(rooms) != 3 || rooms[0].Clients != 5 || rooms[2].ID != "c" || !rooms[2].HasPassword {
		t.Fatalf("unexpected listing after add: %+v", rooms)
	}

	fake.Deliver(room.MsgLobbyRoomRemoved, "b")
	fake.Deliver(room.MsgLobbyRoomRemoved, "missing")
	rooms = l.Rooms()
	if len(rooms) != 2 || rooms[1].ID != "c" {
		t.Fatalf("unexpected listing after remove: %+v", rooms)
	}

	changes := rec.of(events.TopicLobbyRooms)
	if len(changes) != 4 {
		t.Fatalf("expected 4 listing events, got %d", len(changes))
	}
	if last := changes[3].(events.LobbyRoomsChanged); len(last.Rooms) != 2 {
		t.Fatalf("unexpected last listing: %+v", last)
	}
}

func TestLobbyDropsMalformedMessages(t *testing.T) {
	l, fake, rec := newLobby(t)

	fake.Deliver(room.MsgLobbyRooms, json.RawMessage(`{"not":"a list"}`))
	fake.Deliver(room.MsgLobbyRoomAdded, []any{"only-id"})
	fake.Deliver(room.MsgLobbyRoomAdded, json.RawMessage(`[7, {}]`))

	if len(l.Rooms()) != 0 {
		t.Fatalf("expected empty listing, got %+v", l.Rooms())
	}
	if len(rec.events) != 0 {
		t.Fatalf("expected no events, got %d", len(rec.events))
	}
}

func TestLobbyDetach(t *testing.T) {
	l, fake, _ := newLobby(t)
	l.Detach()
	if n := fake.Handlers(room.MsgLobbyRooms); n != 0 {
		t.Fatalf("expected handlers removed, got %d", n)
	}
	var nilLobby *Lobby
	nilLobby.Attach()
	nilLobby.Detach()
	if nilLobby.Rooms() != nil {
		t.Fatalf("expected nil lobby to list nothing")
	}
}
