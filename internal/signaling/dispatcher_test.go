package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByEvent(t *testing.T) {
	d := NewDispatcher()

	var offers, answers []string
	d.On(EventOffer, func(p json.RawMessage) { offers = append(offers, string(p)) })
	d.On(EventAnswer, func(p json.RawMessage) { answers = append(answers, string(p)) })

	d.Dispatch(&Envelope{Event: EventOffer, Payload: json.RawMessage(`"a"`)})
	d.Dispatch(&Envelope{Event: EventOffer, Payload: json.RawMessage(`"b"`)})
	d.Dispatch(&Envelope{Event: EventAnswer, Payload: json.RawMessage(`"c"`)})

	assert.Equal(t, []string{`"a"`, `"b"`}, offers)
	assert.Equal(t, []string{`"c"`}, answers)
}

func TestDispatcherMultipleHandlersPerEvent(t *testing.T) {
	d := NewDispatcher()

	calls := 0
	d.On(EventUserJoined, func(json.RawMessage) { calls++ })
	d.On(EventUserJoined, func(json.RawMessage) { calls++ })

	d.Dispatch(&Envelope{Event: EventUserJoined})

	assert.Equal(t, 2, calls)
}

func TestDispatcherUnsubscribe(t *testing.T) {
	d := NewDispatcher()

	calls := 0
	off := d.On(EventUserJoined, func(json.RawMessage) { calls++ })

	d.Dispatch(&Envelope{Event: EventUserJoined})
	require.Equal(t, 1, calls)

	off()
	d.Dispatch(&Envelope{Event: EventUserJoined})
	assert.Equal(t, 1, calls)

	// Unsubscribing twice is harmless.
	off()
}

func TestDispatcherUnknownEventIsNoOp(t *testing.T) {
	d := NewDispatcher()
	d.Dispatch(&Envelope{Event: "nobody_listens"})
}

func TestDispatcherRunDrainsChannel(t *testing.T) {
	d := NewDispatcher()

	var seen []string
	d.On(EventReceiveMessage, func(p json.RawMessage) { seen = append(seen, string(p)) })

	incoming := make(chan *Envelope, 3)
	incoming <- &Envelope{Event: EventReceiveMessage, Payload: json.RawMessage(`1`)}
	incoming <- &Envelope{Event: EventReceiveMessage, Payload: json.RawMessage(`2`)}
	incoming <- &Envelope{Event: EventReceiveMessage, Payload: json.RawMessage(`3`)}
	close(incoming)

	d.run(incoming)

	assert.Equal(t, []string{"1", "2", "3"}, seen)
}
