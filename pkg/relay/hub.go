// Package relay implements the real-time core: the connection registry, the
// heartbeat watchdog, the message router, and the presence broadcaster, all
// behind a single websocket endpoint. One goroutine pair (read/write pump)
// serves each connection; connections interact only through the registry and
// each other's send queues.
package relay

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/svyazapp/backend/pkg/apperr"
	"github.com/svyazapp/backend/pkg/auth"
	"github.com/svyazapp/backend/pkg/config"
	"github.com/svyazapp/backend/pkg/metrics"
	"github.com/svyazapp/backend/pkg/protocol"
)

// IdentityVerifier turns an opaque bearer credential into verified claims.
// Implemented by auth.Verifier.
type IdentityVerifier interface {
	ValidateToken(token string) (*auth.Claims, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // clients connect from app webviews with arbitrary origins
	},
}

// Hub owns the relay's shared state and the lifecycle of every connection.
type Hub struct {
	cfg      config.Relay
	verifier IdentityVerifier
	registry *Registry
	router   *Router
	presence *Broadcaster
	log      *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

func NewHub(
	cfg config.Relay,
	verifier IdentityVerifier,
	store MessageStore,
	publisher EventPublisher,
	mirror PresenceMirror,
	log *slog.Logger,
) *Hub {
	h := &Hub{
		cfg:      cfg,
		verifier: verifier,
		log:      log,
		registry: NewRegistry(cfg.SupersedeGrace),
		done:     make(chan struct{}),
	}
	h.router = NewRouter(h.registry, store, publisher, cfg.MaxFrameSize)
	h.presence = NewBroadcaster(h.registry, mirror, log)
	return h
}

// Run starts the liveness watchdog. It returns when Shutdown is called.
func (h *Hub) Run() {
	h.watchdog()
}

// Shutdown stops the watchdog and closes every registered connection.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	for _, c := range h.registry.Snapshot() {
		h.drop(c, "server shutdown")
	}
}

// Registry exposes the connection registry to read-only consumers (health
// endpoint, tests).
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeWS upgrades the request, authenticates the credential from the query
// string (header fallback for tooling), registers the connection, and starts
// its pumps. An invalid credential gets a closing notice over the upgraded
// socket, then the connection is refused.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", "err", err)
		return
	}

	claims, err := h.verify(token)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, protocol.NewErrorFrame(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthenticated"))
		_ = conn.Close()
		return
	}

	c := newClient(h, conn, claims.UserID)
	if prev := h.registry.Register(c); prev != nil {
		h.log.Info("connection superseded",
			"user_id", c.UserID(), "old_conn_id", prev.ConnID(), "new_conn_id", c.ConnID())
	}
	metrics.ConnectionsTotal.Set(float64(h.registry.Len()))

	h.log.Info("connection registered", "user_id", c.UserID(), "conn_id", c.ConnID())
	h.presence.UserOnline(c.UserID())

	go c.writePump()
	go c.readPump()
}

func (h *Hub) verify(token string) (*auth.Claims, error) {
	if token == "" {
		return nil, apperr.Unauthenticated("no token provided")
	}
	return h.verifier.ValidateToken(token)
}

// drop tears a connection down. Only the goroutine that actually removes the
// registry entry broadcasts the offline transition, so supersession and
// racing teardown paths (read error vs. watchdog) produce at most one
// offline notice per registered connection.
func (h *Hub) drop(c *Client, reason string) {
	if h.registry.Unregister(c) {
		metrics.ConnectionsTotal.Set(float64(h.registry.Len()))
		h.log.Info("connection removed", "user_id", c.UserID(), "conn_id", c.ConnID(), "reason", reason)
		h.presence.UserOffline(c.UserID())
	}
	c.shutdown()
}
