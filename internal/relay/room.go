package relay

import "github.com/dodger215/e-learnig-app/internal/signaling"

// room is one meeting's set of connected participants, keyed by connection
// id. Only the hub goroutine touches it.
type room struct {
	id      string
	members map[string]*Client
}

func newRoom(id string) *room {
	return &room{id: id, members: make(map[string]*Client)}
}

// broadcast enqueues env for every member except exclude.
func (r *room) broadcast(env *signaling.Envelope, exclude string) {
	for id, member := range r.members {
		if id == exclude {
			continue
		}
		member.enqueue(env)
	}
}

// sendTo enqueues env for a single member. Unknown targets are dropped; the
// participant may have already left.
func (r *room) sendTo(id string, env *signaling.Envelope) bool {
	member, ok := r.members[id]
	if !ok {
		return false
	}
	member.enqueue(env)
	return true
}
