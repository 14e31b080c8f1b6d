// Package world holds the plain data types shared by the mirror, the player
// machine and the quiz coordinator.
package world

import (
	"sort"
	"time"
)

type Behavior int

const (
	BehaviorIdle Behavior = iota
	BehaviorSitting
	BehaviorWorking
)

func (b Behavior) String() string {
	switch b {
	case BehaviorIdle:
		return "idle"
	case BehaviorSitting:
		return "sitting"
	case BehaviorWorking:
		return "working"
	default:
		return "unknown"
	}
}

func (b Behavior) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

type RemotePlayer struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Anim           string  `json:"anim"`
	ReadyToConnect bool    `json:"readyToConnect"`
	Money          int     `json:"money"`
	Score          int     `json:"score"`
}

type ChatMessage struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// AvailableRoom is one entry of the lobby's room listing.
type AvailableRoom struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HasPassword bool   `json:"hasPassword"`
	Clients     int    `json:"clients"`
	MaxClients  int    `json:"maxClients"`
}

type StationKind string

const (
	KindChair      StationKind = "chair"
	KindTerminal   StationKind = "terminal"
	KindComputer   StationKind = "computer"
	KindWhiteboard StationKind = "whiteboard"
)

var collections = map[string]StationKind{
	"chairs":      KindChair,
	"terminals":   KindTerminal,
	"computers":   KindComputer,
	"whiteboards": KindWhiteboard,
}

func KindForCollection(name string) (StationKind, bool) {
	kind, ok := collections[name]
	return kind, ok
}

func (k StationKind) Collection() string {
	for name, kind := range collections {
		if kind == k {
			return name
		}
	}
	return ""
}

func (k StationKind) Valid() bool {
	return k.Collection() != ""
}

// Shared stations track who is connected and open an embedded page.
func (k StationKind) Shared() bool {
	return k == KindComputer || k == KindWhiteboard
}

type Station struct {
	ID        string      `json:"id"`
	Kind      StationKind `json:"kind"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Direction string      `json:"direction,omitempty"`
	URL       string      `json:"url,omitempty"`
	users     map[string]struct{}
}

func NewStation(id string, kind StationKind, x, y float64, direction string) *Station {
	return &Station{ID: id, Kind: kind, X: x, Y: y, Direction: direction}
}

// AddUser reports whether id was newly added.
func (s *Station) AddUser(id string) bool {
	if s.users == nil {
		s.users = make(map[string]struct{})
	}
	if _, ok := s.users[id]; ok {
		return false
	}
	s.users[id] = struct{}{}
	return true
}

func (s *Station) RemoveUser(id string) bool {
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

func (s *Station) HasUser(id string) bool {
	_, ok := s.users[id]
	return ok
}

func (s *Station) Users() []string {
	out := make([]string, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Shift is the offset applied to a player sitting on a chair that faces
// the given direction.
type Shift struct {
	X, Y, Depth float64
}

var sittingShift = map[string]Shift{
	"up":    {X: 0, Y: 3, Depth: -10},
	"down":  {X: 0, Y: 3, Depth: 1},
	"left":  {X: 0, Y: -8, Depth: 10},
	"right": {X: 0, Y: -8, Depth: 10},
}

func SittingShift(direction string) Shift {
	if shift, ok := sittingShift[direction]; ok {
		return shift
	}
	return sittingShift["down"]
}
