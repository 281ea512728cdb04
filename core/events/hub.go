package events

import (
	"sync"
	"sync/atomic"
)

const defaultSubscriberBuffer = 64

// Hub fans committed events out to live subscribers. Slow subscribers miss events
// rather than blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]chan Event
	bufSize int
	dropped atomic.Uint64
}

// NewHub constructs a hub whose subscriber channels hold bufSize events.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = defaultSubscriberBuffer
	}
	return &Hub{subs: make(map[uint64]chan Event), bufSize: bufSize}
}

// Subscribe registers a new subscriber. The returned cancel function closes the
// channel and must be called when the subscriber goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.bufSize)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Emit implements the Emitter interface.
func (h *Hub) Emit(evt Event) {
	if h == nil || evt == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
