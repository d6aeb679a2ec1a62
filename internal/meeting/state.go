package meeting

// SessionState tracks the offer/answer progress of one peer session.
type SessionState int32

const (
	// StateNew is a freshly created session with no description exchanged.
	StateNew SessionState = iota

	// StateOfferSent means we played caller: local offer set, waiting for
	// the remote answer.
	StateOfferSent

	// StateAnswered means descriptions are exchanged on both sides and ICE
	// is still completing.
	StateAnswered

	// StateConnected is reported by the underlying transport once ICE
	// completes. Observed, never driven by the engine.
	StateConnected

	// StateClosed is terminal.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOfferSent:
		return "offer-sent"
	case StateAnswered:
		return "answered"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
