// Package roomtest provides an in-memory room for driving the mirror,
// player machine and quiz coordinator from tests.
package roomtest

import (
	"encoding/json"
	"fmt"
	"sync"

	"office-quiz/internal/room"
)

type Sent struct {
	Type    string
	Payload any
}

// Fake records outbound messages and dispatches injected patches and
// messages synchronously on the calling goroutine.
type Fake struct {
	mu        sync.Mutex
	sessionID string
	sent      []Sent
	nextID    int
	observers map[string]map[int]room.Observer
	order     map[string][]int
	handlers  map[string]map[int]func(json.RawMessage)
	horder    map[string][]int

	// SendErr, when set, is returned from every Send after recording.
	SendErr error
}

func New(sessionID string) *Fake {
	return &Fake{
		sessionID: sessionID,
		observers: make(map[string]map[int]room.Observer),
		order:     make(map[string][]int),
		handlers:  make(map[string]map[int]func(json.RawMessage)),
		horder:    make(map[string][]int),
	}
}

func (f *Fake) SessionID() string {
	return f.sessionID
}

func (f *Fake) Send(msgType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Sent{Type: msgType, Payload: payload})
	return f.SendErr
}

func (f *Fake) Observe(collection string, obs room.Observer) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.observers[collection] == nil {
		f.observers[collection] = make(map[int]room.Observer)
	}
	f.observers[collection][id] = obs
	f.order[collection] = append(f.order[collection], id)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.observers[collection], id)
	}
}

func (f *Fake) OnMessage(msgType string, fn func(json.RawMessage)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.handlers[msgType] == nil {
		f.handlers[msgType] = make(map[int]func(json.RawMessage))
	}
	f.handlers[msgType][id] = fn
	f.horder[msgType] = append(f.horder[msgType], id)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[msgType], id)
	}
}

func (f *Fake) Observers(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.observers[collection])
}

func (f *Fake) Handlers(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[msgType])
}

func (f *Fake) Patch(p room.Patch) {
	f.mu.Lock()
	var targets []room.Observer
	for _, id := range f.order[p.Collection] {
		if obs, ok := f.observers[p.Collection][id]; ok {
			targets = append(targets, obs)
		}
	}
	f.mu.Unlock()
	for _, obs := range targets {
		obs.Dispatch(p)
	}
}

func (f *Fake) Add(collection, key string, value any) {
	f.Patch(room.Patch{Collection: collection, Op: room.OpAdd, Key: key, Value: mustJSON(value)})
}

func (f *Fake) Change(collection, key, field string, value any) {
	f.Patch(room.Patch{
		Collection: collection,
		Op:         room.OpChange,
		Key:        key,
		Changes:    []room.FieldChange{{Field: field, Value: mustJSON(value)}},
	})
}

func (f *Fake) Remove(collection, key string) {
	f.Patch(room.Patch{Collection: collection, Op: room.OpRemove, Key: key})
}

func (f *Fake) ChildAdd(collection, key, field string, value any) {
	f.Patch(room.Patch{Collection: collection, Op: room.OpChildAdd, Key: key, Field: field, Value: mustJSON(value)})
}

func (f *Fake) ChildRemove(collection, key, field string, value any) {
	f.Patch(room.Patch{Collection: collection, Op: room.OpChildRemove, Key: key, Field: field, Value: mustJSON(value)})
}

// Deliver injects a server message. Payload may be a json.RawMessage to
// send bytes verbatim.
func (f *Fake) Deliver(msgType string, payload any) {
	raw := mustJSON(payload)
	f.mu.Lock()
	var targets []func(json.RawMessage)
	for _, id := range f.horder[msgType] {
		if fn, ok := f.handlers[msgType][id]; ok {
			targets = append(targets, fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range targets {
		fn(raw)
	}
}

func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

func (f *Fake) SentOfType(msgType string) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.sent {
		if s.Type == msgType {
			out = append(out, s)
		}
	}
	return out
}

func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func mustJSON(value any) json.RawMessage {
	if raw, ok := value.(json.RawMessage); ok {
		return raw
	}
	raw, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("roomtest: marshal %T: %v", value, err))
	}
	return raw
}
