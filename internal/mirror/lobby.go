package mirror

import (
	"encoding/json"
	"log"
	"sort"

	"office-quiz/internal/bus"
	"office-quiz/internal/events"
	"office-quiz/internal/room"
	"office-quiz/internal/world"
)

// Lobby tracks the room listing pushed by the lobby room: a full list on
// join, then single additions and removals.
type Lobby struct {
	room    room.Room
	bus     *bus.Bus
	rooms   map[string]world.AvailableRoom
	cancels []func()
}

func NewLobby(r room.Room, b *bus.Bus) *Lobby {
	return &Lobby{room: r, bus: b, rooms: make(map[string]world.AvailableRoom)}
}

func (l *Lobby) Attach() {
	if l == nil || l.room == nil || len(l.cancels) > 0 {
		return
	}
	l.cancels = []func(){
		l.room.OnMessage(room.MsgLobbyRooms, l.onRooms),
		l.room.OnMessage(room.MsgLobbyRoomAdded, l.onRoomAdded),
		l.room.OnMessage(room.MsgLobbyRoomRemoved, l.onRoomRemoved),
	}
}

func (l *Lobby) Detach() {
	if l == nil {
		return
	}
	for _, cancel := range l.cancels {
		cancel()
	}
	l.cancels = nil
}

// Rooms returns the listing sorted by room id.
func (l *Lobby) Rooms() []world.AvailableRoom {
	if l == nil {
		return nil
	}
	out := make([]world.AvailableRoom, 0, len(l.rooms))
	for _, r := range l.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (l *Lobby) onRooms(raw json.RawMessage) {
	var payload []room.AvailableRoomPayload
	if !decode(room.MsgLobbyRooms, raw, &payload) {
		return
	}
	l.rooms = make(map[string]world.AvailableRoom, len(payload))
	for _, entry := range payload {
		if entry.RoomID == "" {
			continue
		}
		l.rooms[entry.RoomID] = availableRoom(entry.RoomID, entry)
	}
	l.publish()
}

func (l *Lobby) onRoomAdded(raw json.RawMessage) {
	var pair []json.RawMessage
	if !decode(room.MsgLobbyRoomAdded, raw, &pair) {
		return
	}
	if len(pair) != 2 {
		log.Printf("lobby room add dropped reason=bad_pair len=%d", len(pair))
		return
	}
	var id string
	var entry room.AvailableRoomPayload
	if !decode(room.MsgLobbyRoomAdded, pair[0], &id) || !decode(room.MsgLobbyRoomAdded, pair[1], &entry) {
		return
	}
	if id == "" {
		id = entry.RoomID
	}
	if id == "" {
		log.Printf("lobby room add dropped reason=missing_id")
		return
	}
	l.rooms[id] = availableRoom(id, entry)
	l.publish()
}

func (l *Lobby) onRoomRemoved(raw json.RawMessage) {
	var id string
	if !decode(room.MsgLobbyRoomRemoved, raw, &id) {
		return
	}
	if _, ok := l.rooms[id]; !ok {
		return
	}
	delete(l.rooms, id)
	l.publish()
}

func (l *Lobby) publish() {
	l.bus.Publish(events.LobbyRoomsChanged{Rooms: l.Rooms()})
}

func availableRoom(id string, entry room.AvailableRoomPayload) world.AvailableRoom {
	return world.AvailableRoom{
		ID:          id,
		Name:        entry.Metadata.Name,
		Description: entry.Metadata.Description,
		HasPassword: entry.Metadata.HasPassword,
		Clients:     entry.Clients,
		MaxClients:  entry.MaxClients,
	}
}
