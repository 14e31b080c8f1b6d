package room

import "encoding/json"

// Room is a joined room connection. Registered callbacks run on the event
// loop that the connection was created with.
type Room interface {
	SessionID() string
	Send(msgType string, payload any) error
	Observe(collection string, obs Observer) (cancel func())
	OnMessage(msgType string, fn func(payload json.RawMessage)) (cancel func())
}

// Observer receives patches for one collection. Nil callbacks are skipped.
type Observer struct {
	Add         func(key string, value json.RawMessage)
	Change      func(key string, changes []FieldChange)
	Remove      func(key string)
	ChildAdd    func(key, field string, value json.RawMessage)
	ChildRemove func(key, field string, value json.RawMessage)
}

// Dispatch routes p to the matching callback and reports whether one ran.
func (o Observer) Dispatch(p Patch) bool {
	switch p.Op {
	case OpAdd:
		if o.Add != nil {
			o.Add(p.Key, p.Value)
			return true
		}
	case OpChange:
		if o.Change != nil {
			o.Change(p.Key, p.Changes)
			return true
		}
	case OpRemove:
		if o.Remove != nil {
			o.Remove(p.Key)
			return true
		}
	case OpChildAdd:
		if o.ChildAdd != nil {
			o.ChildAdd(p.Key, p.Field, p.Value)
			return true
		}
	case OpChildRemove:
		if o.ChildRemove != nil {
			o.ChildRemove(p.Key, p.Field, p.Value)
			return true
		}
	}
	return false
}

// registry holds observers and message handlers keyed by collection and
// message type.
type registry struct {
	nextID    uint64
	observers map[string][]observerEntry
	handlers  map[string][]handlerEntry
}

type observerEntry struct {
	id  uint64
	obs Observer
}

type handlerEntry struct {
	id uint64
	fn func(json.RawMessage)
}

func (r *registry) observe(collection string, obs Observer) uint64 {
	if r.observers == nil {
		r.observers = make(map[string][]observerEntry)
	}
	r.nextID++
	r.observers[collection] = append(r.observers[collection], observerEntry{id: r.nextID, obs: obs})
	return r.nextID
}

func (r *registry) unobserve(collection string, id uint64) {
	list := r.observers[collection]
	for i, e := range list {
		if e.id == id {
			r.observers[collection] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (r *registry) handle(msgType string, fn func(json.RawMessage)) uint64 {
	if r.handlers == nil {
		r.handlers = make(map[string][]handlerEntry)
	}
	r.nextID++
	r.handlers[msgType] = append(r.handlers[msgType], handlerEntry{id: r.nextID, fn: fn})
	return r.nextID
}

func (r *registry) unhandle(msgType string, id uint64) {
	list := r.handlers[msgType]
	for i, e := range list {
		if e.id == id {
			r.handlers[msgType] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (r *registry) observersFor(collection string) []Observer {
	list := r.observers[collection]
	out := make([]Observer, 0, len(list))
	for _, e := range list {
		out = append(out, e.obs)
	}
	return out
}

func (r *registry) handlersFor(msgType string) []func(json.RawMessage) {
	list := r.handlers[msgType]
	out := make([]func(json.RawMessage), 0, len(list))
	for _, e := range list {
		out = append(out, e.fn)
	}
	return out
}
