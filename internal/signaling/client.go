package signaling

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the WebSocket connection to the signaling server. Sends are
// fire-and-forget: while the connection is down, outgoing messages are
// dropped rather than queued, and in-flight negotiations simply stall until
// the surrounding application reconnects.
type Client struct {
	serverURL string
	authToken string
	conn      *websocket.Conn
	incoming  chan *Envelope
	outgoing  chan *Envelope
	done      chan struct{}
	connected atomic.Bool
	closed    atomic.Bool

	dispatcher *Dispatcher
}

// NewClient creates a new signaling client. The token is presented as a
// bearer credential on the upgrade request.
func NewClient(serverURL, authToken string) *Client {
	return &Client{
		serverURL:  serverURL,
		authToken:  authToken,
		incoming:   make(chan *Envelope, 32),
		outgoing:   make(chan *Envelope, 32),
		done:       make(chan struct{}),
		dispatcher: NewDispatcher(),
	}
}

// Connect establishes the WebSocket connection and starts the read, write
// and dispatch loops.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	header := http.Header{}
	if c.authToken != "" {
		header.Set("Authorization", "Bearer "+c.authToken)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	c.connected.Store(true)

	go c.readPump()
	go c.writePump()
	go c.dispatcher.run(c.incoming)

	return nil
}

// Connected reports whether the underlying connection is believed healthy.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// readPump reads envelopes from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.connected.Store(false)
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}

		c.incoming <- &env
	}
}

// writePump writes envelopes to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.connected.Store(false)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.connected.Store(false)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send marshals payload and queues it for delivery. Messages are dropped
// when the channel is disconnected or the outgoing buffer is full.
func (c *Client) Send(event string, payload any) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		slog.Error("signaling: marshal failed", "event", event, "err", err)
		return
	}

	if !c.connected.Load() {
		slog.Debug("signaling: dropped while disconnected", "event", event)
		return
	}

	select {
	case c.outgoing <- env:
	default:
		slog.Warn("signaling: outgoing buffer full, dropped", "event", event)
	}
}

// On registers a handler for an event and returns a function that removes
// the subscription. Handlers for a single event run in arrival order.
func (c *Client) On(event string, fn HandlerFunc) func() {
	return c.dispatcher.On(event, fn)
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.connected.Store(false)
	close(c.done)
}
