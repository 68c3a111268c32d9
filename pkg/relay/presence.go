package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/svyazapp/backend/pkg/metrics"
	"github.com/svyazapp/backend/pkg/protocol"
)

// mirrorTimeout bounds the Redis round-trip on presence transitions.
const mirrorTimeout = 3 * time.Second

// PresenceMirror reflects transitions into shared storage for consumers
// outside this process. Implemented by presence.Store; nil disables mirroring.
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// Broadcaster fans user online/offline transitions out to every registered
// connection. Fan-out is best effort: each peer gets an independent
// non-blocking send, so a dead or backed-up peer is skipped without
// affecting the rest.
type Broadcaster struct {
	registry *Registry
	mirror   PresenceMirror
	log      *slog.Logger
}

func NewBroadcaster(registry *Registry, mirror PresenceMirror, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, mirror: mirror, log: log}
}

// UserOnline announces that userID has a live connection. Safe to call on
// reconnects; peers treat repeated online notices as idempotent.
func (b *Broadcaster) UserOnline(userID string) {
	b.fanOut(protocol.NewPresenceBroadcast(userID, true))
	metrics.PresenceBroadcasts.WithLabelValues("online").Inc()

	if b.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := b.mirror.SetOnline(ctx, userID); err != nil {
			b.log.Warn("presence mirror set online", "user_id", userID, "err", err)
		}
	}
}

// UserOffline announces that userID no longer has a live connection.
func (b *Broadcaster) UserOffline(userID string) {
	b.fanOut(protocol.NewPresenceBroadcast(userID, false))
	metrics.PresenceBroadcasts.WithLabelValues("offline").Inc()

	if b.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := b.mirror.SetOffline(ctx, userID); err != nil {
			b.log.Warn("presence mirror set offline", "user_id", userID, "err", err)
		}
	}
}

func (b *Broadcaster) fanOut(frame []byte) {
	for _, peer := range b.registry.Snapshot() {
		// Skipped deliveries are intentional: presence is advisory and a
		// peer with a full buffer will resynchronize via point queries.
		_ = peer.trySend(frame)
	}
}
