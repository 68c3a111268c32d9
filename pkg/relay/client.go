package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// writeWait is the time allowed to write one frame to the peer.
const writeWait = 10 * time.Second

// Client is one live duplex connection for one user session. All outbound
// traffic — routed messages, acks, presence fan-out, heartbeat pings — funnels
// through the send channel and the write pump, so only one goroutine ever
// writes to the socket.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	userID string
	connID string // unique per socket; distinguishes superseded connections in logs
	send   chan []byte

	connectedAt time.Time

	mu       sync.Mutex
	alive    bool
	lastPong time.Time

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	now := time.Now()
	return &Client{
		hub:         hub,
		conn:        conn,
		userID:      userID,
		connID:      uuid.New().String(),
		send:        make(chan []byte, hub.cfg.SendBufferSize),
		connectedAt: now,
		alive:       true,
		lastPong:    now,
		done:        make(chan struct{}),
	}
}

func (c *Client) UserID() string { return c.userID }
func (c *Client) ConnID() string { return c.connID }

// trySend queues a frame for the write pump without blocking. A full buffer
// or an already-closed connection drops the frame: one slow peer must not
// stall the router or a broadcast.
func (c *Client) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the socket and releases the write pump. Idempotent: the
// read pump, the watchdog, and the supersession timer may all race to it.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) markPingSent() {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
}

func (c *Client) markPongReceived() {
	c.mu.Lock()
	c.alive = true
	c.lastPong = time.Now()
	c.mu.Unlock()
}

// heartbeatState returns the optimistic liveness flag and the last pong time.
func (c *Client) heartbeatState() (alive bool, lastPong time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive, c.lastPong
}

// readPump reads frames from the socket and routes them. It owns the read
// side: pong handling, read deadlines, and the read limit. Runs in its own
// goroutine; exits on any read error, which tears the connection down.
func (c *Client) readPump() {
	defer c.hub.drop(c, "read loop ended")

	// The router rejects application frames over the cap while keeping the
	// connection open; the transport limit only guards against grossly
	// larger frames.
	c.conn.SetReadLimit(4 * c.hub.cfg.MaxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.LivenessTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.markPongReceived()
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.LivenessTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("read error", "user_id", c.userID, "conn_id", c.connID, "err", err)
			}
			return
		}
		c.hub.router.HandleFrame(c, data)
	}
}

// writePump is the single writer for the socket. It drains the send queue
// and emits a heartbeat ping every interval, optimistically marking the
// connection not-alive until the pong arrives.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.markPingSent()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
