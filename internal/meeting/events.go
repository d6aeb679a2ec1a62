package meeting

import (
	"github.com/pion/webrtc/v4"

	"github.com/dodger215/e-learnig-app/internal/media"
)

// Event is anything the surrounding application may want to render. Video
// tiles, notifications and layout are its business, not ours.
type Event interface {
	isEvent()
}

// MeetingJoined reports the join ack and our assigned connection id.
type MeetingJoined struct {
	SelfID string
}

// ParticipantJoined reports a new remote participant.
type ParticipantJoined struct {
	RemoteID string
}

// ParticipantLeft reports a departed remote participant.
type ParticipantLeft struct {
	RemoteID string
}

// RemoteTrackAdded reports a received remote media track ("remote stream
// updated").
type RemoteTrackAdded struct {
	RemoteID string
	Track    *webrtc.TrackRemote
}

// SessionConnected reports ICE completion for one peer session.
type SessionConnected struct {
	RemoteID string
}

// RemoteStateChanged reports a remote participant's media state
// announcement.
type RemoteStateChanged struct {
	RemoteID string
	State    StateAnnouncement
}

// LocalStateChanged reports a flip of the local media flags.
type LocalStateChanged struct {
	State media.State
}

// ChatReceived reports an incoming chat message.
type ChatReceived struct {
	Message ChatMessage
}

// SignalingError reports an error message from the signaling server.
type SignalingError struct {
	Message string
}

func (MeetingJoined) isEvent()      {}
func (ParticipantJoined) isEvent()  {}
func (ParticipantLeft) isEvent()    {}
func (RemoteTrackAdded) isEvent()   {}
func (SessionConnected) isEvent()   {}
func (RemoteStateChanged) isEvent() {}
func (LocalStateChanged) isEvent()  {}
func (ChatReceived) isEvent()       {}
func (SignalingError) isEvent()     {}
