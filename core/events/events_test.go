package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alpha-fi/cheddar-maze-minter/core/types"
)

type testEvent struct {
	payload *types.Event
}

func (e testEvent) EventType() string   { return e.payload.Type }
func (e testEvent) Event() *types.Event { return e.payload }

type collector struct{ seen []Event }

func (c *collector) Emit(evt Event) { c.seen = append(c.seen, evt) }

func newTestEvent(kind string) testEvent {
	return testEvent{payload: &types.Event{Type: kind, Attributes: map[string]string{"k": kind}}}
}

func TestBufferFlushReleasesInOrder(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(newTestEvent("a"))
	buf.Emit(newTestEvent("b"))
	buf.Emit(nil)
	require.Len(t, buf.Events(), 2)

	dst := &collector{}
	buf.Flush(dst)
	require.Len(t, dst.seen, 2)
	require.Equal(t, "a", dst.seen[0].EventType())
	require.Equal(t, "b", dst.seen[1].EventType())
	require.Empty(t, buf.Events())
}

func TestBufferDiscard(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(newTestEvent("a"))
	buf.Discard()

	dst := &collector{}
	buf.Flush(dst)
	require.Empty(t, dst.seen)
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(4)
	first, cancelFirst := hub.Subscribe()
	second, cancelSecond := hub.Subscribe()
	defer cancelSecond()
	require.Equal(t, 2, hub.Subscribers())

	hub.Emit(newTestEvent("mint"))
	require.Equal(t, "mint", (<-first).EventType())
	require.Equal(t, "mint", (<-second).EventType())

	cancelFirst()
	cancelFirst()
	require.Equal(t, 1, hub.Subscribers())
	_, open := <-first
	require.False(t, open)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Emit(newTestEvent("one"))
	hub.Emit(newTestEvent("two"))
	require.Equal(t, uint64(1), hub.Dropped())
	require.Equal(t, "one", (<-ch).EventType())
}

func TestStructuredAndMulti(t *testing.T) {
	evt := newTestEvent("toggle")
	raw, ok := Structured(evt)
	require.True(t, ok)
	require.Equal(t, "toggle", raw.Attributes["k"])

	clone := raw.Clone()
	clone.Attributes["k"] = "changed"
	require.Equal(t, "toggle", raw.Attributes["k"])

	a, b := &collector{}, &collector{}
	MultiEmitter{a, nil, b}.Emit(evt)
	require.Len(t, a.seen, 1)
	require.Len(t, b.seen, 1)
	NoopEmitter{}.Emit(evt)
}
