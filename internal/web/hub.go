// Package web provides the local dashboard console: a browser view of the
// live session fed over SSE, plus a small JSON control surface.
package web

import (
	"sync"
	"time"
)

const (
	maxHistory   = 200
	clientBuffer = 64
)

// Event is a single event broadcast to SSE clients.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Time    string `json:"time"`
	Data    any    `json:"data,omitempty"`
}

type subscriber struct {
	ch    chan Event
	types map[string]bool // nil accepts every type
}

func (s *subscriber) wants(e Event) bool {
	return s.types == nil || s.types[e.Type]
}

// EventHub fans session events out to console clients. The last
// maxHistory events are kept in a ring and replayed to new subscribers.
type EventHub struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	ring    [maxHistory]Event
	head    int // index of the oldest event
	size    int
	dropped int
}

// NewEventHub creates a new event hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[*subscriber]struct{})}
}

// Publish records e and hands it to every interested subscriber. It never
// blocks; a subscriber with a full buffer misses the event.
func (h *EventHub) Publish(e Event) {
	if e.Time == "" {
		e.Time = time.Now().Format(time.RFC3339)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.size < maxHistory {
		h.ring[(h.head+h.size)%maxHistory] = e
		h.size++
	} else {
		h.ring[h.head] = e
		h.head = (h.head + 1) % maxHistory
	}

	for s := range h.subs {
		if !s.wants(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			h.dropped++
		}
	}
}

// Subscribe returns a channel carrying the matching history, oldest first,
// followed by live events. With no types every event is delivered.
// The returned function unsubscribes and closes the channel.
func (h *EventHub) Subscribe(types ...string) (<-chan Event, func()) {
	s := &subscriber{}
	if len(types) > 0 {
		s.types = make(map[string]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}

	h.mu.Lock()
	s.ch = make(chan Event, h.size+clientBuffer)
	for i := 0; i < h.size; i++ {
		if e := h.ring[(h.head+i)%maxHistory]; s.wants(e) {
			s.ch <- e
		}
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			close(s.ch)
			h.mu.Unlock()
		})
	}
}

// Clients returns the number of connected subscribers.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *EventHub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
