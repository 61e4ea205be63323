// Package events broadcasts launcher activity to websocket clients.
package events

import (
	"sync"
	"time"
)

// Event types.
const (
	TypeTopology   = "topology"
	TypeRun        = "run"
	TypeSpawn      = "spawn"
	TypeSpawnError = "spawn_error"
	TypeReload     = "reload"
	TypeWatchError = "watch_error"
)

const subscriberBuffer = 16

// Event is one notification sent to subscribers.
type Event struct {
	Type     string    `json:"type"`
	Time     time.Time `json:"time"`
	Rule     string    `json:"rule,omitempty"`
	Monitors []string  `json:"monitors,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// Hub fans events out to subscribers. Slow subscribers lose their oldest
// pending event rather than blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	last *Event
	now  func() time.Time
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[chan Event]struct{}),
		now:  time.Now,
	}
}

// Publish stamps ev when it has no time and sends it to every subscriber.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Time.IsZero() {
		ev.Time = h.now()
	}
	h.last = &ev
	for ch := range h.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The last published event, if any,
// is delivered first.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.last != nil {
		ch <- *h.last
	}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
