// Package bus is the in-process publish/subscribe channel between the state
// mirror, the player machine, the quiz coordinator and the presentation
// layer. Delivery is synchronous and must happen on the event loop.
package bus

import (
	"log"
	"runtime/debug"
)

type Topic string

// All subscribes to every topic.
const All Topic = "*"

// Event is a typed payload. Implementations are value types whose Topic
// does not depend on field values.
type Event interface {
	Topic() Topic
}

type Handler func(Event)

type entry struct {
	id    uint64
	owner any
	fn    Handler
}

type Bus struct {
	nextID uint64
	subs   map[Topic][]entry
}

func New() *Bus {
	return &Bus{subs: make(map[Topic][]entry)}
}

type Subscription struct {
	bus   *Bus
	topic Topic
	id    uint64
}

// Subscribe registers fn for topic. Owner groups subscriptions for
// UnsubscribeOwner and must be comparable; nil is allowed.
func (b *Bus) Subscribe(topic Topic, owner any, fn Handler) *Subscription {
	b.nextID++
	b.subs[topic] = append(b.subs[topic], entry{id: b.nextID, owner: owner, fn: fn})
	return &Subscription{bus: b, topic: topic, id: b.nextID}
}

// On subscribes a handler for one concrete event type.
func On[E Event](b *Bus, owner any, fn func(E)) *Subscription {
	var zero E
	return b.Subscribe(zero.Topic(), owner, func(event Event) {
		typed, ok := event.(E)
		if !ok {
			log.Printf("bus event type mismatch topic=%s type=%T", zero.Topic(), event)
			return
		}
		fn(typed)
	})
}

// Unsubscribe is idempotent and reports whether the handler was still
// registered.
func (s *Subscription) Unsubscribe() bool {
	if s == nil || s.bus == nil {
		return false
	}
	return s.bus.remove(s.topic, s.id)
}

func (b *Bus) UnsubscribeOwner(owner any) int {
	if owner == nil {
		return 0
	}
	removed := 0
	for topic, list := range b.subs {
		kept := list[:0:0]
		for _, e := range list {
			if e.owner == owner {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(b.subs, topic)
			continue
		}
		b.subs[topic] = kept
	}
	return removed
}

// Publish delivers event to the topic's subscribers in registration order,
// then to All subscribers. A handler removed during delivery is skipped; a
// handler added during delivery first sees the next event.
func (b *Bus) Publish(event Event) {
	if event == nil {
		return
	}
	topic := event.Topic()
	targets := append([]entry(nil), b.subs[topic]...)
	if topic != All {
		targets = append(targets, b.subs[All]...)
	}
	for _, e := range targets {
		if !b.registered(e.id) {
			continue
		}
		b.deliver(topic, e, event)
	}
}

func (b *Bus) Count(topic Topic) int {
	return len(b.subs[topic])
}

func (b *Bus) deliver(topic Topic, e entry, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bus handler panic topic=%s error=%v\n%s", topic, r, debug.Stack())
		}
	}()
	e.fn(event)
}

func (b *Bus) registered(id uint64) bool {
	for _, list := range b.subs {
		for _, e := range list {
			if e.id == id {
				return true
			}
		}
	}
	return false
}

func (b *Bus) remove(topic Topic, id uint64) bool {
	list := b.subs[topic]
	for i, e := range list {
		if e.id != id {
			continue
		}
		kept := make([]entry, 0, len(list)-1)
		kept = append(kept, list[:i]...)
		kept = append(kept, list[i+1:]...)
		if len(kept) == 0 {
			delete(b.subs, topic)
		} else {
			b.subs[topic] = kept
		}
		return true
	}
	return false
}
