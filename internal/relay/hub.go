package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dodger215/e-learnig-app/internal/signaling"
)

type inbound struct {
	client *Client
	env    *signaling.Envelope
}

// Hub is the central brain of the signaling relay. It owns all rooms and
// routes every message from its single goroutine, so no locking is needed
// around room state.
type Hub struct {
	rooms map[string]*room

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan inbound

	presence *Presence // optional, nil when redis is not configured
}

// NewHub creates a hub. presence may be nil.
func NewHub(presence *Presence) *Hub {
	return &Hub{
		rooms:      make(map[string]*room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan inbound),
		presence:   presence,
	}
}

// Run starts the hub's main processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			slog.Info("client connected", "client", client.ID, "user", client.UserID)

		case client := <-h.Unregister:
			h.leaveRoom(client)
			close(client.Send)
			slog.Info("client disconnected", "client", client.ID)

		case in := <-h.Inbound:
			h.route(in.client, in.env)
		}
	}
}

func (h *Hub) route(c *Client, env *signaling.Envelope) {
	switch env.Event {
	case signaling.EventJoinMeeting:
		h.handleJoin(c, env)
	case signaling.EventLeaveMeeting:
		h.leaveRoom(c)
	case signaling.EventOffer:
		h.relayOffer(c, env)
	case signaling.EventAnswer:
		h.relayAnswer(c, env)
	case signaling.EventICECandidate:
		h.relayCandidate(c, env)
	case signaling.EventSendMessage:
		h.fanOutChat(c, env)
	default:
		slog.Debug("unknown event", "event", env.Event, "client", c.ID)
	}
}

func (h *Hub) handleJoin(c *Client, env *signaling.Envelope) {
	var p signaling.JoinPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.MeetingID == "" {
		h.sendError(c, "join_meeting requires a meetingId")
		return
	}

	// Re-joining while already in a room is treated as a move.
	if c.MeetingID != "" && c.MeetingID != p.MeetingID {
		h.leaveRoom(c)
	}

	rm, ok := h.rooms[p.MeetingID]
	if !ok {
		rm = newRoom(p.MeetingID)
		h.rooms[p.MeetingID] = rm
		slog.Info("room created", "meeting", p.MeetingID)
	}

	if _, already := rm.members[c.ID]; already {
		return
	}

	rm.members[c.ID] = c
	c.MeetingID = p.MeetingID
	if p.Name != "" {
		c.Name = p.Name
	}

	if h.presence != nil {
		h.presence.Add(p.MeetingID, c.ID)
	}

	slog.Info("client joined meeting", "client", c.ID, "meeting", p.MeetingID, "members", len(rm.members))

	// Ack the joiner with its own connection id, then tell everyone else.
	// Existing members play caller towards the newcomer; the newcomer never
	// hears about them directly.
	h.send(c, signaling.EventJoined, signaling.JoinedPayload{
		SelfID:    c.ID,
		MeetingID: p.MeetingID,
	})

	env2, err := signaling.NewEnvelope(signaling.EventUserJoined, signaling.PresencePayload{RemoteID: c.ID})
	if err != nil {
		slog.Error("marshal user_joined failed", "err", err)
		return
	}
	rm.broadcast(env2, c.ID)
}

func (h *Hub) leaveRoom(c *Client) {
	if c.MeetingID == "" {
		return
	}

	rm, ok := h.rooms[c.MeetingID]
	if !ok {
		c.MeetingID = ""
		return
	}

	delete(rm.members, c.ID)
	if h.presence != nil {
		h.presence.Remove(c.MeetingID, c.ID)
	}

	if len(rm.members) == 0 {
		delete(h.rooms, rm.id)
		slog.Info("room deleted", "meeting", rm.id)
	} else {
		env, err := signaling.NewEnvelope(signaling.EventUserLeft, signaling.PresencePayload{RemoteID: c.ID})
		if err == nil {
			rm.broadcast(env, c.ID)
		}
	}

	slog.Info("client left meeting", "client", c.ID, "meeting", c.MeetingID)
	c.MeetingID = ""
}

// relayOffer forwards an offer to its target, stamping the sender identity.
// The SDP blob is passed through untouched.
func (h *Hub) relayOffer(c *Client, env *signaling.Envelope) {
	var p signaling.OfferPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.Target == "" {
		h.sendError(c, "offer requires a target")
		return
	}

	target := p.Target
	p.Target = ""
	p.Caller = c.ID
	h.relay(c, target, signaling.EventOffer, p)
}

func (h *Hub) relayAnswer(c *Client, env *signaling.Envelope) {
	var p signaling.AnswerPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.Target == "" {
		h.sendError(c, "answer requires a target")
		return
	}

	target := p.Target
	p.Target = ""
	p.Responder = c.ID
	h.relay(c, target, signaling.EventAnswer, p)
}

func (h *Hub) relayCandidate(c *Client, env *signaling.Envelope) {
	var p signaling.CandidatePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.Target == "" {
		h.sendError(c, "ice_candidate requires a target")
		return
	}

	target := p.Target
	p.Target = ""
	p.Sender = c.ID
	h.relay(c, target, signaling.EventICECandidate, p)
}

func (h *Hub) relay(c *Client, target, event string, payload any) {
	if c.MeetingID == "" {
		h.sendError(c, "join a meeting first")
		return
	}
	rm, ok := h.rooms[c.MeetingID]
	if !ok {
		return
	}

	env, err := signaling.NewEnvelope(event, payload)
	if err != nil {
		slog.Error("marshal relay payload failed", "event", event, "err", err)
		return
	}

	if !rm.sendTo(target, env) {
		slog.Debug("relay target gone", "event", event, "target", target)
	}
}

// fanOutChat stamps the sender and distributes the message to everyone else
// in the room as receive_message.
func (h *Hub) fanOutChat(c *Client, env *signaling.Envelope) {
	if c.MeetingID == "" {
		h.sendError(c, "join a meeting first")
		return
	}
	rm, ok := h.rooms[c.MeetingID]
	if !ok {
		return
	}

	var p signaling.ChatPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		h.sendError(c, "malformed chat message")
		return
	}

	p.MeetingID = c.MeetingID
	p.SenderID = c.ID
	if p.SenderName == "" {
		p.SenderName = c.Name
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	out, err := signaling.NewEnvelope(signaling.EventReceiveMessage, p)
	if err != nil {
		slog.Error("marshal chat failed", "err", err)
		return
	}
	rm.broadcast(out, c.ID)
}

func (h *Hub) send(c *Client, event string, payload any) {
	env, err := signaling.NewEnvelope(event, payload)
	if err != nil {
		slog.Error("marshal payload failed", "event", event, "err", err)
		return
	}
	c.enqueue(env)
}

func (h *Hub) sendError(c *Client, msg string) {
	h.send(c, signaling.EventError, signaling.ErrorPayload{Error: msg})
}
