package relay

import (
	"context"
	"time"

	"github.com/svyazapp/backend/pkg/apperr"
	"github.com/svyazapp/backend/pkg/metrics"
	"github.com/svyazapp/backend/pkg/model"
	"github.com/svyazapp/backend/pkg/protocol"
)

// storeTimeout bounds the synchronous persistence round-trip on the chat
// path. The connection's read loop waits on it, so it stays short.
const storeTimeout = 5 * time.Second

// MessageStore is the durable store consumed by the router. Implemented by
// store.Messages; faked in tests.
type MessageStore interface {
	InsertMessage(ctx context.Context, senderID, receiverID, content string, kind model.Kind) (model.Message, error)
}

// EventPublisher receives persisted messages for the read-model pipeline.
type EventPublisher interface {
	PublishMessage(ctx context.Context, msg model.Message)
}

// Router validates inbound envelopes and moves them to their destination:
// chat messages through the store and on to the receiver, signaling frames
// straight across, presence queries back to the asker. A fault while routing
// one frame never closes the connection and never touches another
// connection's processing.
type Router struct {
	registry  *Registry
	store     MessageStore
	publisher EventPublisher
	maxFrame  int64
}

func NewRouter(registry *Registry, store MessageStore, publisher EventPublisher, maxFrame int64) *Router {
	return &Router{
		registry:  registry,
		store:     store,
		publisher: publisher,
		maxFrame:  maxFrame,
	}
}

// HandleFrame processes one inbound frame from c. Called synchronously from
// the connection's read loop, which gives per-sender ordering for free.
func (r *Router) HandleFrame(c *Client, data []byte) {
	start := time.Now()

	env, err := protocol.Parse(data, r.maxFrame)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		c.trySend(protocol.NewErrorFrame(err))
		return
	}

	switch {
	case env.Type == protocol.TypeMessage:
		r.routeChat(c, env)
	case env.IsSignaling():
		r.routeSignal(c, env)
	case env.Type == protocol.TypeOnlineStatus:
		r.routePresenceQuery(c, env)
	default:
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		c.trySend(protocol.NewErrorFrame(apperr.InvalidArg("unknown frame type")))
	}

	metrics.RouteLatency.Observe(time.Since(start).Seconds())
}

// routeChat persists a chat message, delivers it to the receiver when
// connected, and always acks the sender with the stored record. No offline
// notice is sent for chat: the message is durable and reachable through the
// history endpoint.
func (r *Router) routeChat(c *Client, env *protocol.Envelope) {
	if err := env.ValidateChat(c.UserID()); err != nil {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		c.trySend(protocol.NewErrorFrame(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	msg, err := r.store.InsertMessage(ctx, env.SenderID, env.ReceiverID, env.Content, env.Kind)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("store_failed").Inc()
		c.trySend(protocol.NewErrorFrame(err))
		return
	}
	metrics.MessagesTotal.WithLabelValues("stored").Inc()

	if r.publisher != nil {
		r.publisher.PublishMessage(ctx, msg)
	}

	if receiver, ok := r.registry.Lookup(env.ReceiverID); ok {
		if receiver.trySend(protocol.NewMessageFrame(msg)) {
			metrics.MessagesTotal.WithLabelValues("delivered").Inc()
		} else {
			metrics.MessagesTotal.WithLabelValues("dropped").Inc()
		}
	} else {
		metrics.MessagesTotal.WithLabelValues("receiver_offline").Inc()
	}

	c.trySend(protocol.NewAckFrame(msg))
}

// routeSignal forwards a WebRTC negotiation frame verbatim. Signaling is
// ephemeral control plane: nothing is persisted, and an absent peer is
// reported back to the sender.
func (r *Router) routeSignal(c *Client, env *protocol.Envelope) {
	if env.ReceiverID == "" {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		c.trySend(protocol.NewErrorFrame(apperr.InvalidArg("missing receiverId")))
		return
	}

	receiver, ok := r.registry.Lookup(env.ReceiverID)
	if !ok || !receiver.trySend(env.Raw) {
		metrics.MessagesTotal.WithLabelValues("receiver_offline").Inc()
		c.trySend(protocol.NewOfflineFrame(env.ReceiverID))
		return
	}
	metrics.MessagesTotal.WithLabelValues("forwarded").Inc()
}

// routePresenceQuery answers a point query about another user's presence.
func (r *Router) routePresenceQuery(c *Client, env *protocol.Envelope) {
	if env.ReceiverID == "" {
		c.trySend(protocol.NewErrorFrame(apperr.InvalidArg("missing receiverId")))
		return
	}
	_, online := r.registry.Lookup(env.ReceiverID)
	c.trySend(protocol.NewPresenceReply(env.ReceiverID, online))
}
