package signaling

import (
	"encoding/json"
	"sync"
)

// HandlerFunc receives the raw payload of a subscribed event.
type HandlerFunc func(payload json.RawMessage)

// Dispatcher routes incoming envelopes to subscribed handlers. All handlers
// run on the single dispatch goroutine, so events are processed strictly in
// arrival order and subscribers need no locking of their own.
type Dispatcher struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]HandlerFunc
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subs: make(map[string]map[int]HandlerFunc),
	}
}

// On registers a handler for an event. The returned function removes the
// subscription; calling it more than once is harmless.
func (d *Dispatcher) On(event string, fn HandlerFunc) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++

	if d.subs[event] == nil {
		d.subs[event] = make(map[int]HandlerFunc)
	}
	d.subs[event][id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs[event], id)
	}
}

// Dispatch invokes every handler subscribed to the envelope's event.
func (d *Dispatcher) Dispatch(env *Envelope) {
	d.mu.Lock()
	handlers := make([]HandlerFunc, 0, len(d.subs[env.Event]))
	for _, fn := range d.subs[env.Event] {
		handlers = append(handlers, fn)
	}
	d.mu.Unlock()

	for _, fn := range handlers {
		fn(env.Payload)
	}
}

// run consumes envelopes until the channel closes.
func (d *Dispatcher) run(incoming <-chan *Envelope) {
	for env := range incoming {
		d.Dispatch(env)
	}
}
