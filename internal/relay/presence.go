package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 24 * time.Hour

// Presence mirrors room membership into redis sets so other backend
// services can see who is in a meeting. Best-effort: failures are logged,
// never surfaced to the signaling path.
type Presence struct {
	rdb *redis.Client
}

// NewPresence connects to redis at addr.
func NewPresence(addr string) *Presence {
	return &Presence{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Ping verifies the connection.
func (p *Presence) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Add records a participant in a meeting's presence set.
func (p *Presence) Add(meetingID, peerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := presenceKey(meetingID)
	if err := p.rdb.SAdd(ctx, key, peerID).Err(); err != nil {
		slog.Warn("presence add failed", "meeting", meetingID, "err", err)
		return
	}
	p.rdb.Expire(ctx, key, presenceTTL)
}

// Remove drops a participant from a meeting's presence set.
func (p *Presence) Remove(meetingID, peerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.rdb.SRem(ctx, presenceKey(meetingID), peerID).Err(); err != nil {
		slog.Warn("presence remove failed", "meeting", meetingID, "err", err)
	}
}

func presenceKey(meetingID string) string {
	return "meeting:" + meetingID + ":peers"
}
