// Package mirror keeps a local copy of the shared room state and turns
// server patches into bus events.
package mirror

import (
	"encoding/json"
	"log"
	"sort"
	"time"
	"unicode/utf8"

	"office-quiz/internal/bus"
	"office-quiz/internal/events"
	"office-quiz/internal/room"
	"office-quiz/internal/world"
)

const (
	bubbleLimit  = 70
	chatCapacity = 100
)

type Options struct {
	// StationURLs holds the predefined embedded-page URL for each shared
	// station, keyed by kind and then station id.
	StationURLs map[world.StationKind]map[string]string
}

type Mirror struct {
	room room.Room
	bus  *bus.Bus
	opts Options

	players  map[string]*world.RemotePlayer
	// self is the server's copy of the local player. It is kept current
	// but never announced on the bus.
	self     *world.RemotePlayer
	stations map[world.StationKind]map[string]*world.Station
	chat     []world.ChatMessage
	roomData events.RoomData
	cancels  []func()
}

func New(r room.Room, b *bus.Bus, opts Options) *Mirror {
	m := &Mirror{
		room:     r,
		bus:      b,
		opts:     opts,
		players:  make(map[string]*world.RemotePlayer),
		stations: make(map[world.StationKind]map[string]*world.Station),
	}
	for _, kind := range []world.StationKind{world.KindChair, world.KindTerminal, world.KindComputer, world.KindWhiteboard} {
		m.stations[kind] = make(map[string]*world.Station)
	}
	return m
}

// Seed registers stations that come from the static map rather than the
// room state.
func (m *Mirror) Seed(stations ...*world.Station) {
	for _, station := range stations {
		if station == nil || !station.Kind.Valid() {
			continue
		}
		m.stations[station.Kind][station.ID] = station
		m.registerURL(station)
	}
}

// Attach registers observers for every synchronized collection and the
// server messages the mirror forwards. It is a no-op without a room.
func (m *Mirror) Attach() {
	if m.room == nil || len(m.cancels) > 0 {
		return
	}
	m.cancels = append(m.cancels,
		m.room.Observe(room.CollectionPlayers, room.Observer{
			Add:    m.onPlayerAdd,
			Change: m.onPlayerChange,
			Remove: m.onPlayerRemove,
		}),
		m.room.Observe(room.CollectionChat, room.Observer{
			Add: m.onChatAdd,
		}),
	)
	for _, kind := range []world.StationKind{world.KindChair, world.KindTerminal, world.KindComputer, world.KindWhiteboard} {
		m.cancels = append(m.cancels, m.room.Observe(kind.Collection(), room.Observer{
			Add:         func(key string, value json.RawMessage) { m.onStationAdd(kind, key, value) },
			Remove:      func(key string) { m.onStationRemove(kind, key) },
			ChildAdd:    func(key, field string, value json.RawMessage) { m.onStationUser(kind, key, field, value, true) },
			ChildRemove: func(key, field string, value json.RawMessage) { m.onStationUser(kind, key, field, value, false) },
		}))
	}
	m.cancels = append(m.cancels, m.registerMessages()...)
}

func (m *Mirror) Detach() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil
}

func (m *Mirror) SessionID() string {
	if m.room == nil {
		return ""
	}
	return m.room.SessionID()
}

func (m *Mirror) Players() []world.RemotePlayer {
	out := make([]world.RemotePlayer, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Player looks up a remote player, or the local player's server echo when
// id is the session id.
func (m *Mirror) Player(id string) (world.RemotePlayer, bool) {
	if m.isSelf(id) {
		if m.self == nil {
			return world.RemotePlayer{}, false
		}
		return *m.self, true
	}
	p, ok := m.players[id]
	if !ok {
		return world.RemotePlayer{}, false
	}
	return *p, true
}

// NameOf returns the display name last reported for id.
func (m *Mirror) NameOf(id string) string {
	if p, ok := m.players[id]; ok {
		return p.Name
	}
	return ""
}

func (m *Mirror) Station(kind world.StationKind, id string) (*world.Station, bool) {
	station, ok := m.stations[kind][id]
	return station, ok
}

func (m *Mirror) Stations() []*world.Station {
	var out []*world.Station
	for _, byID := range m.stations {
		for _, station := range byID {
			out = append(out, station)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Mirror) Chat() []world.ChatMessage {
	return append([]world.ChatMessage(nil), m.chat...)
}

func (m *Mirror) RoomData() events.RoomData {
	return m.roomData
}

func (m *Mirror) isSelf(id string) bool {
	return m.room != nil && id == m.room.SessionID()
}

func (m *Mirror) onPlayerAdd(id string, value json.RawMessage) {
	var state room.PlayerState
	if err := json.Unmarshal(value, &state); err != nil {
		log.Printf("mirror player add dropped id=%s error=%v", id, err)
		return
	}
	player := &world.RemotePlayer{
		ID:             id,
		Name:           state.Name,
		X:              state.X,
		Y:              state.Y,
		Anim:           state.Anim,
		ReadyToConnect: state.ReadyToConnect,
		Money:          state.Money,
		Score:          state.Score,
	}
	if m.isSelf(id) {
		m.self = player
		return
	}
	m.players[id] = player
	if player.Name != "" {
		m.bus.Publish(events.PlayerJoined{ID: id, Player: *player})
	}
}

func (m *Mirror) onPlayerChange(id string, changes []room.FieldChange) {
	if m.isSelf(id) {
		m.applySelf(changes)
		return
	}
	player, ok := m.players[id]
	if !ok {
		log.Printf("mirror player change dropped id=%s reason=unknown_player", id)
		return
	}
	for _, change := range changes {
		previousName := player.Name
		value, err := applyPlayerField(player, change)
		if err != nil {
			log.Printf("mirror player change dropped id=%s field=%s error=%v", id, change.Field, err)
			continue
		}
		m.bus.Publish(events.PlayerUpdated{ID: id, Field: change.Field, Value: value})
		if change.Field == "name" && previousName == "" && player.Name != "" {
			m.bus.Publish(events.PlayerJoined{ID: id, Player: *player})
		}
	}
}

func (m *Mirror) applySelf(changes []room.FieldChange) {
	if m.self == nil {
		log.Printf("mirror self change dropped reason=not_added")
		return
	}
	for _, change := range changes {
		if _, err := applyPlayerField(m.self, change); err != nil {
			log.Printf("mirror self change dropped field=%s error=%v", change.Field, err)
		}
	}
}

func (m *Mirror) onPlayerRemove(id string) {
	if m.isSelf(id) {
		m.self = nil
		return
	}
	player, ok := m.players[id]
	if !ok {
		log.Printf("mirror player remove dropped id=%s reason=unknown_player", id)
		return
	}
	delete(m.players, id)
	for _, byID := range m.stations {
		for _, station := range byID {
			if station.RemoveUser(id) {
				m.bus.Publish(events.ItemUserRemoved{PlayerID: id, StationID: station.ID, Kind: station.Kind})
			}
		}
	}
	m.bus.Publish(events.PlayerLeft{ID: id, Name: player.Name})
}

func (m *Mirror) onStationAdd(kind world.StationKind, id string, value json.RawMessage) {
	var state room.StationState
	if len(value) > 0 {
		if err := json.Unmarshal(value, &state); err != nil {
			log.Printf("mirror station add dropped kind=%s id=%s error=%v", kind, id, err)
			return
		}
	}
	station, exists := m.stations[kind][id]
	if !exists {
		station = world.NewStation(id, kind, state.X, state.Y, state.Direction)
		m.stations[kind][id] = station
		m.registerURL(station)
	}
	for _, user := range state.ConnectedUser {
		if station.AddUser(user) {
			m.bus.Publish(events.ItemUserAdded{PlayerID: user, StationID: id, Kind: kind})
		}
	}
}

func (m *Mirror) onStationRemove(kind world.StationKind, id string) {
	if _, ok := m.stations[kind][id]; !ok {
		return
	}
	delete(m.stations[kind], id)
}

func (m *Mirror) onStationUser(kind world.StationKind, id, field string, value json.RawMessage, added bool) {
	if field != room.FieldConnectedUser {
		log.Printf("mirror station child dropped kind=%s id=%s field=%s", kind, id, field)
		return
	}
	station, ok := m.stations[kind][id]
	if !ok {
		log.Printf("mirror station child dropped kind=%s id=%s reason=unknown_station", kind, id)
		return
	}
	var user string
	if err := json.Unmarshal(value, &user); err != nil || user == "" {
		log.Printf("mirror station child dropped kind=%s id=%s reason=bad_user", kind, id)
		return
	}
	if added {
		if station.AddUser(user) {
			m.bus.Publish(events.ItemUserAdded{PlayerID: user, StationID: id, Kind: kind})
		}
		return
	}
	if station.RemoveUser(user) {
		m.bus.Publish(events.ItemUserRemoved{PlayerID: user, StationID: id, Kind: kind})
	}
}

func (m *Mirror) onChatAdd(_ string, value json.RawMessage) {
	var state room.ChatState
	if err := json.Unmarshal(value, &state); err != nil {
		log.Printf("mirror chat add dropped error=%v", err)
		return
	}
	msg := world.ChatMessage{
		Author:    state.Author,
		Content:   state.Content,
		CreatedAt: time.UnixMilli(state.CreatedAt).UTC(),
	}
	m.chat = append(m.chat, msg)
	if len(m.chat) > chatCapacity {
		m.chat = append([]world.ChatMessage(nil), m.chat[len(m.chat)-chatCapacity:]...)
	}
	m.bus.Publish(events.ChatMessageAdded{ClientID: state.Author, Message: msg})
}

// registerURL attaches the predefined page URL to a shared station. A
// shared station without one is still usable for presence.
func (m *Mirror) registerURL(station *world.Station) {
	if !station.Kind.Shared() {
		return
	}
	url, ok := m.opts.StationURLs[station.Kind][station.ID]
	if !ok || url == "" {
		log.Printf("mirror station url missing kind=%s id=%s", station.Kind, station.ID)
		return
	}
	station.URL = url
	m.bus.Publish(events.StationURLRegistered{StationID: station.ID, Kind: station.Kind, URL: url})
}

func bubbleText(content string) string {
	if utf8.RuneCountInString(content) <= bubbleLimit {
		return content
	}
	runes := []rune(content)
	return string(runes[:bubbleLimit]) + "..."
}
