package meeting

import (
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dodger215/e-learnig-app/internal/media"
)

// Hooks are the callbacks a Registry wires into every session it creates.
// All of them may be invoked from the transport's goroutines.
type Hooks struct {
	// LocalTracks returns the current outbound track set to attach to a new
	// session.
	LocalTracks func() []*media.Track

	// OnCandidate forwards a locally gathered ICE candidate to the remote
	// participant via the signaling channel.
	OnCandidate func(remoteID string, candidate webrtc.ICECandidateInit)

	// OnTrack fires when a remote track arrives.
	OnTrack func(remoteID string, track *webrtc.TrackRemote)

	// OnRemoteState fires when the remote side announces its media state.
	OnRemoteState func(remoteID string, state StateAnnouncement)

	// OnStateReady fires when the meet-state channel opens and the local
	// state should be (re)announced to this peer.
	OnStateReady func(remoteID string)

	// OnConnected fires when ICE completes for a session.
	OnConnected func(remoteID string)

	// OnDisconnected fires when the transport reports disconnected or
	// failed. Policy is immediate teardown, no retry.
	OnDisconnected func(remoteID string)
}

// Registry owns the set of active peer sessions for the local participant,
// keyed by remote connection identifier. All map access is serialized by a
// single mutex; concurrent creation for the same remote id must never yield
// two connections to the same peer.
type Registry struct {
	cfg   webrtc.Configuration
	hooks Hooks

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions use the given STUN servers.
// An empty list yields host-candidate-only connections.
func NewRegistry(stunServers []string, hooks Hooks) *Registry {
	var cfg webrtc.Configuration
	if len(stunServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: stunServers}}
	}
	return &Registry{
		cfg:      cfg,
		hooks:    hooks,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for remoteID, constructing and wiring one
// if none exists. Idempotent: a second call for the same id returns the
// existing session with created=false. When initiator is set, the meet-state
// data channel is opened so it rides the initial offer.
func (r *Registry) GetOrCreate(remoteID string, initiator bool) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[remoteID]; ok {
		return s, false, nil
	}

	pc, err := webrtc.NewPeerConnection(r.cfg)
	if err != nil {
		return nil, false, newSessionError("create peer connection", remoteID, err)
	}

	s := newSession(remoteID, pc)

	if r.hooks.LocalTracks != nil {
		for _, t := range r.hooks.LocalTracks() {
			if err := s.attachTrack(t); err != nil {
				pc.Close()
				return nil, false, newSessionError("attach local track", remoteID, err)
			}
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		if r.hooks.OnCandidate != nil {
			r.hooks.OnCandidate(remoteID, c.ToJSON())
		}
	})

	pc.OnTrack(func(tr *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		s.addInbound(tr)
		if r.hooks.OnTrack != nil {
			r.hooks.OnTrack(remoteID, tr)
		}
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != stateChannelLabel {
			return
		}
		s.bindStateChannel(dc,
			func(ann StateAnnouncement) { r.remoteState(remoteID, ann) },
			func() { r.stateReady(remoteID) },
		)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state", "peer", remoteID, "state", state)
		switch state {
		case webrtc.PeerConnectionStateConnected:
			s.setState(StateConnected)
			if r.hooks.OnConnected != nil {
				r.hooks.OnConnected(remoteID)
			}
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
			if r.hooks.OnDisconnected != nil {
				r.hooks.OnDisconnected(remoteID)
			}
		}
	})

	if initiator {
		err := s.openStateChannel(
			func(ann StateAnnouncement) { r.remoteState(remoteID, ann) },
			func() { r.stateReady(remoteID) },
		)
		if err != nil {
			pc.Close()
			return nil, false, newSessionError("open state channel", remoteID, err)
		}
	}

	r.sessions[remoteID] = s
	return s, true, nil
}

func (r *Registry) remoteState(remoteID string, ann StateAnnouncement) {
	if r.hooks.OnRemoteState != nil {
		r.hooks.OnRemoteState(remoteID, ann)
	}
}

func (r *Registry) stateReady(remoteID string) {
	if r.hooks.OnStateReady != nil {
		r.hooks.OnStateReady(remoteID)
	}
}

// Get looks up an existing session.
func (r *Registry) Get(remoteID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[remoteID]
	return s, ok
}

// Remove closes the session for remoteID and discards its buffered
// candidates. Calling it for an unknown id is a no-op.
func (r *Registry) Remove(remoteID string) {
	r.mu.Lock()
	s, ok := r.sessions[remoteID]
	delete(r.sessions, remoteID)
	r.mu.Unlock()

	if ok {
		s.close()
	}
}

// RemoveAll tears down every session. Teardown is best-effort and
// immediate; no in-flight negotiation is awaited.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the remote ids of all active sessions.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

// ReplaceVideo swaps the outbound video track on every active session. Used
// by the screen-share toggle; sessions that fail the swap are logged and
// left alone, the rest proceed.
func (r *Registry) ReplaceVideo(t *media.Track) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		if err := s.replaceVideo(t); err != nil {
			slog.Error("video track replacement failed", "peer", s.RemoteID(), "err", err)
		}
	}
}

// Broadcast announces the local media state to every connected peer.
func (r *Registry) Broadcast(ann StateAnnouncement) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.sendState(ann)
	}
}
