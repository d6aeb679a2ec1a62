package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dodger215/e-learnig-app/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB is enough for SDP blobs.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection (one participant). The ID is
// ephemeral: it identifies this connection only and is not stable across
// reconnects.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// ID is the connection identifier assigned on upgrade.
	ID string

	// UserID is the authenticated subject, for logging and presence only.
	UserID string

	// Name is the display name announced on join.
	Name string

	// MeetingID of the room this client is in, "" when not joined.
	MeetingID string

	// Send is the buffered outbound queue drained by WritePump.
	Send chan *signaling.Envelope
}

// ReadPump pumps envelopes from the websocket connection to the hub. At most
// one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env signaling.Envelope
		if err := c.Conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("read error", "client", c.ID, "err", err)
			}
			break
		}

		c.Hub.Inbound <- inbound{client: c, env: &env}
	}
}

// WritePump pumps envelopes from the hub to the websocket connection. At
// most one writer per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(env); err != nil {
				slog.Debug("write error", "client", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue drops instead of blocking when the client's buffer is full.
func (c *Client) enqueue(env *signaling.Envelope) {
	select {
	case c.Send <- env:
	default:
		slog.Warn("client buffer full, message dropped", "client", c.ID, "event", env.Event)
	}
}
