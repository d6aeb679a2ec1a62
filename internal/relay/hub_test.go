package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodger215/e-learnig-app/internal/signaling"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startRelay(t *testing.T, opts Options) *httptest.Server {
	t.Helper()

	hub := NewHub(nil)
	go hub.Run()

	srv := httptest.NewServer(NewRouter(hub, opts))
	t.Cleanup(srv.Close)
	return srv
}

// wsClient is one simulated participant connection.
type wsClient struct {
	t      *testing.T
	conn   *websocket.Conn
	selfID string
}

func dialRelay(t *testing.T, srv *httptest.Server, header http.Header) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(event string, payload any) {
	c.t.Helper()

	env, err := signaling.NewEnvelope(event, payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(env))
}

func (c *wsClient) read() *signaling.Envelope {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env signaling.Envelope
	require.NoError(c.t, c.conn.ReadJSON(&env))
	return &env
}

// join sends join_meeting and consumes the joined ack.
func (c *wsClient) join(meetingID, name string) {
	c.t.Helper()

	c.send(signaling.EventJoinMeeting, signaling.JoinPayload{MeetingID: meetingID, Name: name})

	env := c.read()
	require.Equal(c.t, signaling.EventJoined, env.Event)

	var p signaling.JoinedPayload
	require.NoError(c.t, json.Unmarshal(env.Payload, &p))
	require.NotEmpty(c.t, p.SelfID)
	require.Equal(c.t, meetingID, p.MeetingID)
	c.selfID = p.SelfID
}

func TestJoinAcksAndAnnouncesNewcomer(t *testing.T) {
	srv := startRelay(t, Options{})

	alice := dialRelay(t, srv, nil)
	alice.join("math-101", "Alice")

	bob := dialRelay(t, srv, nil)
	bob.join("math-101", "Bob")

	// Only the existing member hears about the newcomer; it will act as
	// the caller.
	env := alice.read()
	require.Equal(t, signaling.EventUserJoined, env.Event)

	var p signaling.PresencePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, bob.selfID, p.RemoteID)
	assert.NotEqual(t, alice.selfID, bob.selfID)
}

func TestOfferAnswerCandidateRelay(t *testing.T) {
	srv := startRelay(t, Options{})

	alice := dialRelay(t, srv, nil)
	alice.join("math-101", "Alice")
	bob := dialRelay(t, srv, nil)
	bob.join("math-101", "Bob")
	alice.read() // user_joined for bob

	// Caller offer towards bob. The server strips the target and stamps
	// the caller id; the SDP blob passes through untouched.
	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0 fake"}`)
	alice.send(signaling.EventOffer, signaling.OfferPayload{Target: bob.selfID, Offer: sdp})

	env := bob.read()
	require.Equal(t, signaling.EventOffer, env.Event)
	var offer signaling.OfferPayload
	require.NoError(t, json.Unmarshal(env.Payload, &offer))
	assert.Equal(t, alice.selfID, offer.Caller)
	assert.Empty(t, offer.Target)
	assert.JSONEq(t, string(sdp), string(offer.Offer))

	bob.send(signaling.EventAnswer, signaling.AnswerPayload{
		Target: alice.selfID,
		Answer: json.RawMessage(`{"type":"answer","sdp":"v=0 fake"}`),
	})

	env = alice.read()
	require.Equal(t, signaling.EventAnswer, env.Event)
	var answer signaling.AnswerPayload
	require.NoError(t, json.Unmarshal(env.Payload, &answer))
	assert.Equal(t, bob.selfID, answer.Responder)
	assert.Empty(t, answer.Target)

	alice.send(signaling.EventICECandidate, signaling.CandidatePayload{
		Target:    bob.selfID,
		Candidate: json.RawMessage(`{"candidate":"candidate:1 1 udp 1 10.0.0.1 1 typ host"}`),
	})

	env = bob.read()
	require.Equal(t, signaling.EventICECandidate, env.Event)
	var cand signaling.CandidatePayload
	require.NoError(t, json.Unmarshal(env.Payload, &cand))
	assert.Equal(t, alice.selfID, cand.Sender)
}

func TestChatFanOutStampsSender(t *testing.T) {
	srv := startRelay(t, Options{})

	alice := dialRelay(t, srv, nil)
	alice.join("math-101", "Alice")
	bob := dialRelay(t, srv, nil)
	bob.join("math-101", "Bob")
	carol := dialRelay(t, srv, nil)
	carol.join("math-101", "Carol")

	alice.read() // user_joined bob
	alice.read() // user_joined carol
	bob.read()   // user_joined carol

	alice.send(signaling.EventSendMessage, signaling.ChatPayload{Text: "hello class"})

	for _, c := range []*wsClient{bob, carol} {
		env := c.read()
		require.Equal(t, signaling.EventReceiveMessage, env.Event)

		var p signaling.ChatPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		assert.Equal(t, "hello class", p.Text)
		assert.Equal(t, alice.selfID, p.SenderID)
		assert.Equal(t, "Alice", p.SenderName)
		assert.Equal(t, "math-101", p.MeetingID)
		assert.False(t, p.Timestamp.IsZero())
	}
}

func TestDisconnectBroadcastsUserLeft(t *testing.T) {
	srv := startRelay(t, Options{})

	alice := dialRelay(t, srv, nil)
	alice.join("math-101", "Alice")
	bob := dialRelay(t, srv, nil)
	bob.join("math-101", "Bob")
	alice.read() // user_joined bob

	bob.conn.Close()

	env := alice.read()
	require.Equal(t, signaling.EventUserLeft, env.Event)

	var p signaling.PresencePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, bob.selfID, p.RemoteID)
}

func TestRelayBeforeJoinIsRejected(t *testing.T) {
	srv := startRelay(t, Options{})

	alice := dialRelay(t, srv, nil)
	alice.send(signaling.EventOffer, signaling.OfferPayload{
		Target: "somebody",
		Offer:  json.RawMessage(`{}`),
	})

	env := alice.read()
	require.Equal(t, signaling.EventError, env.Event)

	var p signaling.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Contains(t, p.Error, "join a meeting first")
}

func TestJoinWithoutMeetingIDIsRejected(t *testing.T) {
	srv := startRelay(t, Options{})

	alice := dialRelay(t, srv, nil)
	alice.send(signaling.EventJoinMeeting, signaling.JoinPayload{})

	env := alice.read()
	assert.Equal(t, signaling.EventError, env.Event)
}

func TestMessagesAcrossRoomsDoNotLeak(t *testing.T) {
	srv := startRelay(t, Options{})

	alice := dialRelay(t, srv, nil)
	alice.join("math-101", "Alice")
	bob := dialRelay(t, srv, nil)
	bob.join("chem-202", "Bob")

	// A presence event for a different room must never reach alice. The
	// offer relayed right after would queue behind it, so seeing the
	// offer first proves isolation.
	probe := dialRelay(t, srv, nil)
	probe.join("math-101", "Probe")
	env := alice.read()
	require.Equal(t, signaling.EventUserJoined, env.Event)

	probe.send(signaling.EventOffer, signaling.OfferPayload{
		Target: alice.selfID,
		Offer:  json.RawMessage(`{"type":"offer"}`),
	})
	env = alice.read()
	assert.Equal(t, signaling.EventOffer, env.Event)
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	secret := "relay-test-secret"
	srv := startRelay(t, Options{JWTSecret: secret})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	// No token: the upgrade is refused.
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Garbage token: refused as well.
	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Signed token via query parameter, the way browsers have to do it.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "student-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	// And via the Authorization header for non-browser clients.
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn2, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn2.Close()
}
