package meeting

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dodger215/e-learnig-app/internal/media"
)

// Session is one negotiated media connection to a single remote participant.
// It is owned exclusively by the Registry; the remote id never changes over
// its lifetime.
type Session struct {
	remoteID string
	pc       *webrtc.PeerConnection

	mu           sync.Mutex
	state        SessionState
	pending      []webrtc.ICECandidateInit
	inbound      []*webrtc.TrackRemote
	audioSender  *webrtc.RTPSender
	videoSender  *webrtc.RTPSender
	stateChannel *webrtc.DataChannel
}

func newSession(remoteID string, pc *webrtc.PeerConnection) *Session {
	return &Session{remoteID: remoteID, pc: pc, state: StateNew}
}

// RemoteID returns the connection identifier of the remote participant.
func (s *Session) RemoteID() string {
	return s.remoteID
}

// State returns the current negotiation state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = state
}

// attachTrack adds a local track to the connection, remembering the sender
// so the video source can later be swapped without renegotiating.
func (s *Session) attachTrack(t *media.Track) error {
	sender, err := s.pc.AddTrack(t.Local())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch t.Kind() {
	case webrtc.RTPCodecTypeAudio:
		s.audioSender = sender
	case webrtc.RTPCodecTypeVideo:
		s.videoSender = sender
	}
	return nil
}

// replaceVideo swaps the outbound video track in place. A session never
// sends more than one video track at a time.
func (s *Session) replaceVideo(t *media.Track) error {
	s.mu.Lock()
	sender := s.videoSender
	s.mu.Unlock()

	if sender == nil {
		return newSessionError("replace video track", s.remoteID, ErrNegotiationFailed)
	}
	return sender.ReplaceTrack(t.Local())
}

// addCandidate applies a remote ICE candidate, or buffers it when no remote
// description has been set yet. Buffered candidates are flushed in arrival
// order by applyRemoteDescription.
func (s *Session) addCandidate(init webrtc.ICECandidateInit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pc.RemoteDescription() == nil {
		s.pending = append(s.pending, init)
		return nil
	}
	return s.pc.AddICECandidate(init)
}

// applyRemoteDescription sets the remote description and flushes any
// candidates that arrived before it.
func (s *Session) applyRemoteDescription(desc webrtc.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return err
	}

	for _, c := range s.pending {
		if err := s.pc.AddICECandidate(c); err != nil {
			return err
		}
	}
	s.pending = nil
	return nil
}

func (s *Session) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// addInbound records a received remote track. The inbound stream is created
// lazily on the first track.
func (s *Session) addInbound(tr *webrtc.TrackRemote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, tr)
}

// InboundTracks returns the remote tracks received so far.
func (s *Session) InboundTracks() []*webrtc.TrackRemote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*webrtc.TrackRemote, len(s.inbound))
	copy(out, s.inbound)
	return out
}

// close tears the session down. Buffered candidates are discarded.
func (s *Session) close() {
	s.mu.Lock()
	s.state = StateClosed
	s.pending = nil
	dc := s.stateChannel
	s.stateChannel = nil
	s.mu.Unlock()

	if dc != nil {
		dc.Close()
	}
	s.pc.Close()
}
