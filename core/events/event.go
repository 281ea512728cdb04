package events

import "github.com/alpha-fi/cheddar-maze-minter/core/types"

// Event represents a structured state change emitted by the gateway.
type Event interface {
	EventType() string
}

// Payload is implemented by events that carry a structured attribute payload.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. websocket clients, logs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter forwards each event to every wrapped emitter in order.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}

// Structured extracts the attribute payload of evt when it carries one.
func Structured(evt Event) (*types.Event, bool) {
	payload, ok := evt.(Payload)
	if !ok {
		return nil, false
	}
	raw := payload.Event()
	if raw == nil {
		return nil, false
	}
	return raw, true
}
