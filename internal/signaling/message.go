package signaling

import (
	"encoding/json"
	"time"
)

// Envelope wraps every message crossing the signaling channel. Payload stays
// raw until a subscriber decodes it; SDP and ICE blobs are never inspected
// by the channel itself.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event constants, client to server.
const (
	EventJoinMeeting  = "join_meeting"
	EventLeaveMeeting = "leave_meeting"
	EventSendMessage  = "send_message"
)

// Event constants, server to client.
const (
	EventJoined         = "joined"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventReceiveMessage = "receive_message"
	EventError          = "error"
)

// Event constants, relayed between participants.
const (
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice_candidate"
)

// JoinPayload is sent with join_meeting and leave_meeting.
type JoinPayload struct {
	MeetingID string `json:"meetingId"`
	Name      string `json:"name,omitempty"`
}

// JoinedPayload acknowledges a join and carries the connection identifier
// the server assigned to us. Peers know us by this id.
type JoinedPayload struct {
	SelfID    string `json:"selfId"`
	MeetingID string `json:"meetingId"`
}

// PresencePayload is sent with user_joined and user_left.
type PresencePayload struct {
	RemoteID string `json:"remoteId"`
}

// OfferPayload carries an SDP offer. Target is set by the sender, Caller is
// stamped by the server before relaying.
type OfferPayload struct {
	Target string          `json:"target,omitempty"`
	Caller string          `json:"caller,omitempty"`
	Offer  json.RawMessage `json:"offer"`
}

// AnswerPayload carries an SDP answer. Target is set by the sender,
// Responder is stamped by the server before relaying.
type AnswerPayload struct {
	Target    string          `json:"target,omitempty"`
	Responder string          `json:"responder,omitempty"`
	Answer    json.RawMessage `json:"answer"`
}

// CandidatePayload carries one trickled ICE candidate. Target is set by the
// sender, Sender is stamped by the server before relaying.
type CandidatePayload struct {
	Target    string          `json:"target,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Candidate json.RawMessage `json:"candidate"`
}

// ChatPayload is an in-meeting chat message. SenderID is stamped by the
// server before fan-out.
type ChatPayload struct {
	MeetingID  string    `json:"meetingId"`
	SenderID   string    `json:"senderId,omitempty"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorPayload represents error messages from the server.
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewEnvelope marshals payload into a ready-to-send envelope.
func NewEnvelope(event string, payload any) (*Envelope, error) {
	if payload == nil {
		return &Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Payload: raw}, nil
}
