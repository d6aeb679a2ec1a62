package meeting

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dodger215/e-learnig-app/internal/signaling"
)

// SendFunc forwards a signaling event to the server, fire-and-forget.
type SendFunc func(event string, payload any)

// Engine drives the offer/answer/ICE state machine for every peer session.
// Its handlers are invoked from the signaling dispatcher, so events for a
// single remote id arrive in order; sessions for different remote ids are
// fully independent.
type Engine struct {
	registry *Registry
	send     SendFunc

	mu      sync.Mutex
	localID string
}

// NewEngine creates an engine operating on the given registry.
func NewEngine(registry *Registry, send SendFunc) *Engine {
	return &Engine{registry: registry, send: send}
}

// SetLocalID records our own connection identifier, assigned by the
// signaling server on join. It feeds the glare tie-break.
func (e *Engine) SetLocalID(id string) {
	e.mu.Lock()
	e.localID = id
	e.mu.Unlock()
}

// LocalID returns our connection identifier, or "" before the join ack.
func (e *Engine) LocalID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.localID
}

// HandleUserJoined runs the caller path: create a session for the newcomer,
// generate an offer and send it. A duplicate user_joined for an already
// registered remote id is a no-op.
func (e *Engine) HandleUserJoined(remoteID string) {
	s, created, err := e.registry.GetOrCreate(remoteID, true)
	if err != nil {
		slog.Error("session create failed", "peer", remoteID, "err", err)
		return
	}
	if !created {
		slog.Debug("duplicate user_joined ignored", "peer", remoteID)
		return
	}

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		e.fail(remoteID, "create offer", err)
		return
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		e.fail(remoteID, "set local offer", err)
		return
	}

	// Trickle ICE: send the description right away, candidates follow via
	// the OnICECandidate hook.
	raw, err := json.Marshal(s.pc.LocalDescription())
	if err != nil {
		e.fail(remoteID, "marshal offer", err)
		return
	}

	e.send(signaling.EventOffer, signaling.OfferPayload{Target: remoteID, Offer: raw})
	s.setState(StateOfferSent)
}

// HandleOffer runs the callee path: apply the remote offer, flush buffered
// candidates, answer. An offer from an unknown remote id creates the
// session.
func (e *Engine) HandleOffer(caller string, rawOffer json.RawMessage) {
	s, created, err := e.registry.GetOrCreate(caller, false)
	if err != nil {
		slog.Error("session create failed", "peer", caller, "err", err)
		return
	}

	if !created && s.State() == StateOfferSent {
		// Glare: both sides offered at once. The lexicographically smaller
		// id keeps the caller role; the other side drops its pending offer
		// and answers instead.
		if local := e.LocalID(); local != "" && local < caller {
			slog.Warn("offer glare: keeping caller role", "peer", caller)
			return
		}
		slog.Warn("offer glare: conceding caller role", "peer", caller)
		e.registry.Remove(caller)
		s, _, err = e.registry.GetOrCreate(caller, false)
		if err != nil {
			slog.Error("session recreate failed", "peer", caller, "err", err)
			return
		}
	}

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(rawOffer, &offer); err != nil {
		e.fail(caller, "decode offer", err)
		return
	}

	if err := s.applyRemoteDescription(offer); err != nil {
		e.fail(caller, "set remote offer", err)
		return
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		e.fail(caller, "create answer", err)
		return
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		e.fail(caller, "set local answer", err)
		return
	}

	raw, err := json.Marshal(s.pc.LocalDescription())
	if err != nil {
		e.fail(caller, "marshal answer", err)
		return
	}

	e.send(signaling.EventAnswer, signaling.AnswerPayload{Target: caller, Answer: raw})
	s.setState(StateAnswered)
}

// HandleAnswer applies a remote answer on the matching session. An answer
// for an unknown remote id is discarded silently; the remote may have
// already left.
func (e *Engine) HandleAnswer(responder string, rawAnswer json.RawMessage) {
	s, ok := e.registry.Get(responder)
	if !ok {
		slog.Debug("answer for unknown peer discarded", "peer", responder)
		return
	}

	var answer webrtc.SessionDescription
	if err := json.Unmarshal(rawAnswer, &answer); err != nil {
		e.fail(responder, "decode answer", err)
		return
	}

	if err := s.applyRemoteDescription(answer); err != nil {
		e.fail(responder, "set remote answer", err)
		return
	}
	s.setState(StateAnswered)
}

// HandleCandidate applies a trickled ICE candidate, buffering it when the
// remote description has not been set yet. Candidates for unknown remote
// ids are discarded silently.
func (e *Engine) HandleCandidate(sender string, rawCandidate json.RawMessage) {
	s, ok := e.registry.Get(sender)
	if !ok {
		slog.Debug("candidate for unknown peer discarded", "peer", sender)
		return
	}

	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(rawCandidate, &init); err != nil {
		e.fail(sender, "decode candidate", err)
		return
	}

	if err := s.addCandidate(init); err != nil {
		e.fail(sender, "apply candidate", err)
	}
}

// HandleUserLeft tears down the session for a departed participant.
func (e *Engine) HandleUserLeft(remoteID string) {
	e.registry.Remove(remoteID)
}

// fail logs a negotiation failure and tears down the affected session.
// Other sessions are untouched.
func (e *Engine) fail(remoteID, op string, err error) {
	serr := newSessionError(op, remoteID, err)
	slog.Error("negotiation failed, closing session", "peer", remoteID, "err", serr)
	e.registry.Remove(remoteID)
}
