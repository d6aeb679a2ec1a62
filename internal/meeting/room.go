package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/dodger215/e-learnig-app/internal/media"
	"github.com/dodger215/e-learnig-app/internal/signaling"
)

// Channel is the narrow seam between the meeting core and the message
// relay. Send is fire-and-forget; On subscribes and returns an unsubscribe
// function.
type Channel interface {
	Send(event string, payload any)
	On(event string, fn signaling.HandlerFunc) func()
}

// RoomConfig carries the per-meeting parameters.
type RoomConfig struct {
	MeetingID   string
	DisplayName string
	STUNServers []string
}

// Room owns one meeting lifetime: the injected signaling channel, the peer
// session registry, the negotiation engine, the local media controller and
// the chat log. It is constructed explicitly and torn down with Leave; no
// global state survives it.
type Room struct {
	cfg      RoomConfig
	channel  Channel
	media    *media.Controller
	registry *Registry
	engine   *Engine
	chat     *ChatLog

	events  chan Event
	eventMu sync.Mutex
	closed  bool

	mu       sync.Mutex
	selfID   string
	joinedAt time.Time
	unsubs   []func()
	joined   chan struct{}

	leaveOnce sync.Once
}

// NewRoom assembles a room from its collaborators. The channel must already
// be connected; its lifecycle belongs to the caller.
func NewRoom(cfg RoomConfig, ch Channel, provider media.Provider) *Room {
	r := &Room{
		cfg:     cfg,
		channel: ch,
		media:   media.NewController(provider),
		chat:    NewChatLog(),
		events:  make(chan Event, 64),
		joined:  make(chan struct{}),
	}

	r.registry = NewRegistry(cfg.STUNServers, Hooks{
		LocalTracks: r.media.Tracks,
		OnCandidate: r.forwardCandidate,
		OnTrack: func(remoteID string, track *webrtc.TrackRemote) {
			r.emit(RemoteTrackAdded{RemoteID: remoteID, Track: track})
		},
		OnRemoteState: func(remoteID string, state StateAnnouncement) {
			r.emit(RemoteStateChanged{RemoteID: remoteID, State: state})
		},
		OnStateReady: r.announceStateTo,
		OnConnected: func(remoteID string) {
			r.emit(SessionConnected{RemoteID: remoteID})
		},
		OnDisconnected: func(remoteID string) {
			r.registry.Remove(remoteID)
			r.emit(ParticipantLeft{RemoteID: remoteID})
		},
	})
	r.engine = NewEngine(r.registry, ch.Send)

	r.media.OnVideoSource(func(t *media.Track) {
		r.registry.ReplaceVideo(t)
	})
	r.media.OnChange(func(st media.State) {
		r.registry.Broadcast(r.announcement(st))
		r.emit(LocalStateChanged{State: st})
	})

	return r
}

// Join acquires local media, subscribes to the signaling events, announces
// ourselves to the meeting and blocks until the server acks the join or ctx
// expires.
func (r *Room) Join(ctx context.Context) error {
	if err := r.media.Start(); err != nil {
		return err
	}

	r.subscribe()

	r.channel.Send(signaling.EventJoinMeeting, signaling.JoinPayload{
		MeetingID: r.cfg.MeetingID,
		Name:      r.cfg.DisplayName,
	})

	select {
	case <-r.joined:
		return nil
	case <-ctx.Done():
		r.Leave()
		return fmt.Errorf("join %s: %w", r.cfg.MeetingID, ErrSignalingUnavailable)
	}
}

func (r *Room) subscribe() {
	subs := []struct {
		event string
		fn    signaling.HandlerFunc
	}{
		{signaling.EventJoined, r.onJoined},
		{signaling.EventUserJoined, r.onUserJoined},
		{signaling.EventUserLeft, r.onUserLeft},
		{signaling.EventOffer, r.onOffer},
		{signaling.EventAnswer, r.onAnswer},
		{signaling.EventICECandidate, r.onCandidate},
		{signaling.EventReceiveMessage, r.onChat},
		{signaling.EventError, r.onServerError},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range subs {
		r.unsubs = append(r.unsubs, r.channel.On(s.event, s.fn))
	}
}

func (r *Room) onJoined(payload json.RawMessage) {
	var p signaling.JoinedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("bad joined payload", "err", err)
		return
	}

	r.mu.Lock()
	first := r.selfID == ""
	r.selfID = p.SelfID
	r.joinedAt = time.Now()
	r.mu.Unlock()

	r.engine.SetLocalID(p.SelfID)
	if first {
		close(r.joined)
	}
	r.emit(MeetingJoined{SelfID: p.SelfID})
}

func (r *Room) onUserJoined(payload json.RawMessage) {
	var p signaling.PresencePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("bad user_joined payload", "err", err)
		return
	}
	_, known := r.registry.Get(p.RemoteID)
	r.engine.HandleUserJoined(p.RemoteID)
	if !known {
		r.emit(ParticipantJoined{RemoteID: p.RemoteID})
	}
}

func (r *Room) onUserLeft(payload json.RawMessage) {
	var p signaling.PresencePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("bad user_left payload", "err", err)
		return
	}
	r.engine.HandleUserLeft(p.RemoteID)
	r.emit(ParticipantLeft{RemoteID: p.RemoteID})
}

func (r *Room) onOffer(payload json.RawMessage) {
	var p signaling.OfferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("bad offer payload", "err", err)
		return
	}
	_, known := r.registry.Get(p.Caller)
	r.engine.HandleOffer(p.Caller, p.Offer)
	if !known {
		r.emit(ParticipantJoined{RemoteID: p.Caller})
	}
}

func (r *Room) onAnswer(payload json.RawMessage) {
	var p signaling.AnswerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("bad answer payload", "err", err)
		return
	}
	r.engine.HandleAnswer(p.Responder, p.Answer)
}

func (r *Room) onCandidate(payload json.RawMessage) {
	var p signaling.CandidatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("bad ice_candidate payload", "err", err)
		return
	}
	r.engine.HandleCandidate(p.Sender, p.Candidate)
}

func (r *Room) onChat(payload json.RawMessage) {
	var p signaling.ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("bad chat payload", "err", err)
		return
	}
	msg := ChatMessage{
		MeetingID:  p.MeetingID,
		SenderID:   p.SenderID,
		SenderName: p.SenderName,
		Text:       p.Text,
		Timestamp:  p.Timestamp,
	}
	r.chat.Append(msg)
	r.emit(ChatReceived{Message: msg})
}

func (r *Room) onServerError(payload json.RawMessage) {
	var p signaling.ErrorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("bad error payload", "err", err)
		return
	}
	r.emit(SignalingError{Message: p.Error})
}

func (r *Room) forwardCandidate(remoteID string, candidate webrtc.ICECandidateInit) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		slog.Error("marshal candidate failed", "err", err)
		return
	}
	r.channel.Send(signaling.EventICECandidate, signaling.CandidatePayload{
		Target:    remoteID,
		Candidate: raw,
	})
}

func (r *Room) announcement(st media.State) StateAnnouncement {
	return StateAnnouncement{
		AudioOn:       st.AudioOn,
		VideoOn:       st.VideoOn,
		SharingScreen: st.SharingScreen,
		DisplayName:   r.cfg.DisplayName,
	}
}

func (r *Room) announceStateTo(remoteID string) {
	s, ok := r.registry.Get(remoteID)
	if !ok {
		return
	}
	s.sendState(r.announcement(r.media.State()))
}

// SendChat publishes a chat message to the meeting and appends it to the
// local log right away.
func (r *Room) SendChat(text string) {
	r.mu.Lock()
	selfID := r.selfID
	r.mu.Unlock()

	msg := ChatMessage{
		MeetingID:  r.cfg.MeetingID,
		SenderID:   selfID,
		SenderName: r.cfg.DisplayName,
		Text:       text,
		Timestamp:  time.Now(),
	}
	r.chat.Append(msg)

	r.channel.Send(signaling.EventSendMessage, signaling.ChatPayload{
		MeetingID:  msg.MeetingID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp,
	})
}

// ToggleAudio flips the microphone without touching any peer session.
func (r *Room) ToggleAudio() bool {
	return r.media.ToggleAudio()
}

// ToggleVideo flips the camera without touching any peer session.
func (r *Room) ToggleVideo() bool {
	return r.media.ToggleVideo()
}

// ToggleScreenShare swaps the outbound video source on every session.
func (r *Room) ToggleScreenShare() (bool, error) {
	return r.media.ToggleScreenShare()
}

// Events returns the stream the surrounding application renders from. The
// channel closes when the room is left.
func (r *Room) Events() <-chan Event {
	return r.events
}

// SelfID returns our connection identifier, or "" before the join ack.
func (r *Room) SelfID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selfID
}

// MeetingID returns the meeting this room belongs to.
func (r *Room) MeetingID() string {
	return r.cfg.MeetingID
}

// JoinedAt returns the time of the join ack.
func (r *Room) JoinedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joinedAt
}

// Participants returns the remote ids with an active session.
func (r *Room) Participants() []string {
	return r.registry.IDs()
}

// MediaState returns the local media flags.
func (r *Room) MediaState() media.State {
	return r.media.State()
}

// Chat returns a copy of the chat log.
func (r *Room) Chat() []ChatMessage {
	return r.chat.Messages()
}

// Leave tears the meeting down: announce departure, stop all local capture,
// close every peer session. Synchronous and best-effort; nothing is awaited.
func (r *Room) Leave() {
	r.leaveOnce.Do(func() {
		r.channel.Send(signaling.EventLeaveMeeting, signaling.JoinPayload{
			MeetingID: r.cfg.MeetingID,
		})

		r.mu.Lock()
		unsubs := r.unsubs
		r.unsubs = nil
		r.mu.Unlock()
		for _, off := range unsubs {
			off()
		}

		r.registry.RemoveAll()
		r.media.Stop()

		r.eventMu.Lock()
		r.closed = true
		close(r.events)
		r.eventMu.Unlock()
	})
}

func (r *Room) emit(ev Event) {
	r.eventMu.Lock()
	defer r.eventMu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		slog.Warn("event buffer full, event dropped")
	}
}
