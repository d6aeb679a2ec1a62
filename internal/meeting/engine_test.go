package meeting

import (
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodger215/e-learnig-app/internal/signaling"
)

type sentEvent struct {
	event   string
	payload any
}

func newTestEngine(t *testing.T) (*Engine, *Registry, *[]sentEvent) {
	t.Helper()

	var sent []sentEvent
	registry := NewRegistry(nil, Hooks{})
	t.Cleanup(registry.RemoveAll)

	engine := NewEngine(registry, func(event string, payload any) {
		sent = append(sent, sentEvent{event: event, payload: payload})
	})
	return engine, registry, &sent
}

// remotePeer drives the other end of a negotiation with a real peer
// connection.
type remotePeer struct {
	pc *webrtc.PeerConnection
}

func newRemotePeer(t *testing.T) *remotePeer {
	t.Helper()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	return &remotePeer{pc: pc}
}

// offer produces a local description with at least one section so the
// exchange is realistic.
func (p *remotePeer) offer(t *testing.T) json.RawMessage {
	t.Helper()

	_, err := p.pc.CreateDataChannel(stateChannelLabel, nil)
	require.NoError(t, err)

	offer, err := p.pc.CreateOffer(nil)
	require.NoError(t, err)
	require.NoError(t, p.pc.SetLocalDescription(offer))

	raw, err := json.Marshal(p.pc.LocalDescription())
	require.NoError(t, err)
	return raw
}

// answer consumes a received offer and produces the matching answer.
func (p *remotePeer) answer(t *testing.T, rawOffer json.RawMessage) json.RawMessage {
	t.Helper()

	var offer webrtc.SessionDescription
	require.NoError(t, json.Unmarshal(rawOffer, &offer))
	require.NoError(t, p.pc.SetRemoteDescription(offer))

	answer, err := p.pc.CreateAnswer(nil)
	require.NoError(t, err)
	require.NoError(t, p.pc.SetLocalDescription(answer))

	raw, err := json.Marshal(p.pc.LocalDescription())
	require.NoError(t, err)
	return raw
}

func hostCandidate(t *testing.T) json.RawMessage {
	t.Helper()

	mid := "0"
	var index uint16
	raw, err := json.Marshal(webrtc.ICECandidateInit{
		Candidate:     "candidate:3 1 udp 2113937151 192.168.1.7 53415 typ host",
		SDPMid:        &mid,
		SDPMLineIndex: &index,
	})
	require.NoError(t, err)
	return raw
}

func TestHandleUserJoinedSendsOffer(t *testing.T) {
	engine, registry, sent := newTestEngine(t)

	engine.HandleUserJoined("peer-b")

	require.Len(t, *sent, 1)
	assert.Equal(t, signaling.EventOffer, (*sent)[0].event)

	payload, ok := (*sent)[0].payload.(signaling.OfferPayload)
	require.True(t, ok)
	assert.Equal(t, "peer-b", payload.Target)
	assert.NotEmpty(t, payload.Offer)

	s, ok := registry.Get("peer-b")
	require.True(t, ok)
	assert.Equal(t, StateOfferSent, s.State())
}

func TestHandleUserJoinedDuplicateIsNoOp(t *testing.T) {
	engine, registry, sent := newTestEngine(t)

	engine.HandleUserJoined("peer-b")
	engine.HandleUserJoined("peer-b")

	assert.Len(t, *sent, 1)
	assert.Equal(t, 1, registry.Len())
}

func TestHandleOfferAnswersAsCallee(t *testing.T) {
	engine, registry, sent := newTestEngine(t)
	remote := newRemotePeer(t)

	engine.HandleOffer("peer-a", remote.offer(t))

	require.Len(t, *sent, 1)
	assert.Equal(t, signaling.EventAnswer, (*sent)[0].event)

	payload, ok := (*sent)[0].payload.(signaling.AnswerPayload)
	require.True(t, ok)
	assert.Equal(t, "peer-a", payload.Target)

	s, ok := registry.Get("peer-a")
	require.True(t, ok)
	assert.Equal(t, StateAnswered, s.State())
}

func TestHandleAnswerCompletesCallerExchange(t *testing.T) {
	engine, registry, sent := newTestEngine(t)
	remote := newRemotePeer(t)

	engine.HandleUserJoined("peer-b")
	require.Len(t, *sent, 1)
	rawOffer := (*sent)[0].payload.(signaling.OfferPayload).Offer

	engine.HandleAnswer("peer-b", remote.answer(t, rawOffer))

	s, ok := registry.Get("peer-b")
	require.True(t, ok)
	assert.Equal(t, StateAnswered, s.State())
}

func TestCandidatesBufferUntilRemoteDescription(t *testing.T) {
	engine, registry, sent := newTestEngine(t)
	remote := newRemotePeer(t)

	engine.HandleUserJoined("peer-b")
	s, ok := registry.Get("peer-b")
	require.True(t, ok)

	// Answer has not arrived yet: candidates must buffer, not error out.
	engine.HandleCandidate("peer-b", hostCandidate(t))
	engine.HandleCandidate("peer-b", hostCandidate(t))
	assert.Equal(t, 2, s.pendingCount())

	rawOffer := (*sent)[0].payload.(signaling.OfferPayload).Offer
	engine.HandleAnswer("peer-b", remote.answer(t, rawOffer))

	// The buffered candidates were flushed along with the answer.
	assert.Equal(t, 0, s.pendingCount())
	assert.Equal(t, StateAnswered, s.State())

	// Late candidates now apply directly.
	engine.HandleCandidate("peer-b", hostCandidate(t))
	assert.Equal(t, 0, s.pendingCount())
}

func TestAnswerForUnknownPeerIsDiscarded(t *testing.T) {
	engine, registry, sent := newTestEngine(t)
	remote := newRemotePeer(t)
	other := newRemotePeer(t)

	engine.HandleAnswer("ghost", remote.answer(t, other.offer(t)))

	assert.Empty(t, *sent)
	assert.Equal(t, 0, registry.Len())
}

func TestCandidateForUnknownPeerIsDiscarded(t *testing.T) {
	engine, registry, sent := newTestEngine(t)

	engine.HandleCandidate("ghost", hostCandidate(t))

	assert.Empty(t, *sent)
	assert.Equal(t, 0, registry.Len())
}

func TestHandleUserLeftRemovesOnlyThatSession(t *testing.T) {
	engine, registry, _ := newTestEngine(t)

	engine.HandleUserJoined("peer-b")
	engine.HandleUserJoined("peer-c")
	require.Equal(t, 2, registry.Len())

	engine.HandleUserLeft("peer-b")

	assert.Equal(t, 1, registry.Len())
	_, ok := registry.Get("peer-c")
	assert.True(t, ok)

	// Removing an already departed participant is harmless.
	engine.HandleUserLeft("peer-b")
	assert.Equal(t, 1, registry.Len())
}

func TestGlareSmallerIDKeepsCallerRole(t *testing.T) {
	engine, registry, sent := newTestEngine(t)
	engine.SetLocalID("aaa")
	remote := newRemotePeer(t)

	engine.HandleUserJoined("zzz")
	engine.HandleOffer("zzz", remote.offer(t))

	// Our offer stands; the colliding one was dropped.
	require.Len(t, *sent, 1)
	assert.Equal(t, signaling.EventOffer, (*sent)[0].event)

	s, ok := registry.Get("zzz")
	require.True(t, ok)
	assert.Equal(t, StateOfferSent, s.State())
}

func TestGlareLargerIDConcedesAndAnswers(t *testing.T) {
	engine, registry, sent := newTestEngine(t)
	engine.SetLocalID("zzz")
	remote := newRemotePeer(t)

	engine.HandleUserJoined("aaa")
	engine.HandleOffer("aaa", remote.offer(t))

	// The pending offer was abandoned in favor of answering.
	require.Len(t, *sent, 2)
	assert.Equal(t, signaling.EventOffer, (*sent)[0].event)
	assert.Equal(t, signaling.EventAnswer, (*sent)[1].event)

	s, ok := registry.Get("aaa")
	require.True(t, ok)
	assert.Equal(t, StateAnswered, s.State())
}
