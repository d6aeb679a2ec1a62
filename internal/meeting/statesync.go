package meeting

import (
	"log/slog"

	"github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// stateChannelLabel names the per-session data channel used to announce
// local media state to the remote side.
const stateChannelLabel = "meet-state"

const messageTypeMediaState = "media_state"

// Message represents all meet-state data channel messages.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// NewMessage creates a new Message with the given type and payload.
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

// DecodePayload decodes the message payload into the provided struct.
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// StateAnnouncement is broadcast to every peer whenever a local media flag
// flips, so participant lists can show mute and share indicators.
type StateAnnouncement struct {
	AudioOn       bool   `msgpack:"audioOn"`
	VideoOn       bool   `msgpack:"videoOn"`
	SharingScreen bool   `msgpack:"sharingScreen"`
	DisplayName   string `msgpack:"displayName"`
}

// openStateChannel creates the meet-state channel on the caller side. It
// must run before the offer is generated so the channel rides the initial
// negotiation.
func (s *Session) openStateChannel(onState func(StateAnnouncement), onReady func()) error {
	dc, err := s.pc.CreateDataChannel(stateChannelLabel, nil)
	if err != nil {
		return err
	}
	s.bindStateChannel(dc, onState, onReady)
	return nil
}

// bindStateChannel wires a meet-state channel, whichever side created it.
func (s *Session) bindStateChannel(dc *webrtc.DataChannel, onState func(StateAnnouncement), onReady func()) {
	s.mu.Lock()
	s.stateChannel = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		if onReady != nil {
			onReady()
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		var m Message
		if err := msgpack.Unmarshal(msg.Data, &m); err != nil {
			slog.Warn("meet-state: bad message", "peer", s.remoteID, "err", err)
			return
		}

		switch m.Type {
		case messageTypeMediaState:
			var ann StateAnnouncement
			if err := m.DecodePayload(&ann); err != nil {
				slog.Warn("meet-state: bad payload", "peer", s.remoteID, "err", err)
				return
			}
			if onState != nil {
				onState(ann)
			}
		default:
			slog.Debug("meet-state: unknown message type", "type", m.Type)
		}
	})
}

// sendState announces the local media state to this peer. A channel that is
// not open yet is skipped; the announcement is repeated on open anyway.
func (s *Session) sendState(ann StateAnnouncement) {
	s.mu.Lock()
	dc := s.stateChannel
	s.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}

	msg, err := NewMessage(messageTypeMediaState, ann)
	if err != nil {
		slog.Error("meet-state: marshal failed", "err", err)
		return
	}
	data, err := msgpack.Marshal(msg)
	if err != nil {
		slog.Error("meet-state: marshal failed", "err", err)
		return
	}
	if err := dc.Send(data); err != nil {
		slog.Debug("meet-state: send failed", "peer", s.remoteID, "err", err)
	}
}
