package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svyazapp/backend/pkg/auth"
	"github.com/svyazapp/backend/pkg/config"
)

func testRelayConfig() config.Relay {
	return config.Relay{
		HeartbeatInterval: 30 * time.Millisecond,
		LivenessTimeout:   150 * time.Millisecond,
		MaxFrameSize:      10 * 1024,
		SupersedeGrace:    40 * time.Millisecond,
		SendBufferSize:    16,
	}
}

func newTestHub(t *testing.T, store MessageStore) (*Hub, *httptest.Server, *auth.Verifier) {
	t.Helper()
	verifier := auth.NewVerifier("test-secret", time.Hour)
	hub := NewHub(testRelayConfig(), verifier, store, nil, nil, discardLogger())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, srv, verifier
}

func dialWS(t *testing.T, srv *httptest.Server, verifier *auth.Verifier, userID string) *websocket.Conn {
	t.Helper()
	token, err := verifier.GenerateToken(userID)
	require.NoError(t, err)
	conn := dialToken(t, srv, token)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dialToken(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	return conn
}

// waitForFrame reads frames until pred matches one, skipping unrelated
// traffic such as presence notices.
func waitForFrame(t *testing.T, conn *websocket.Conn, pred func(map[string]any) bool) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for expected frame")
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		if pred(m) {
			return m
		}
	}
}

// collectFrames reads everything that arrives until the window elapses or
// the connection drops.
func collectFrames(t *testing.T, conn *websocket.Conn, window time.Duration) []map[string]any {
	t.Helper()
	var frames []map[string]any
	_ = conn.SetReadDeadline(time.Now().Add(window))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return frames
		}
		var m map[string]any
		if json.Unmarshal(raw, &m) == nil {
			frames = append(frames, m)
		}
	}
}

func isPresence(userID string, online bool) func(map[string]any) bool {
	return func(m map[string]any) bool {
		return m["type"] == "online_status" && m["senderId"] == userID && m["isOnline"] == online
	}
}

func TestHubEndToEndChat(t *testing.T) {
	store := &fakeStore{}
	_, srv, verifier := newTestHub(t, store)

	alice := dialWS(t, srv, verifier, "1")
	bob := dialWS(t, srv, verifier, "2")

	// Alice learns that Bob came online before sending.
	waitForFrame(t, alice, isPresence("2", true))

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, chatFrame("1", "2", "privet", "text")))

	got := waitForFrame(t, bob, func(m map[string]any) bool { return m["type"] == "message" })
	assert.Equal(t, "1", got["senderId"])
	assert.Equal(t, "privet", got["content"])
	assert.Equal(t, "text", got["messageType"])

	ack := waitForFrame(t, alice, func(m map[string]any) bool { _, ok := m["success"]; return ok })
	assert.Equal(t, true, ack["success"])
	stored, ok := ack["message"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, stored["id"])
}

func TestHubRejectsFrameWithoutClosingConnection(t *testing.T) {
	store := &fakeStore{}
	_, srv, verifier := newTestHub(t, store)

	alice := dialWS(t, srv, verifier, "1")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, chatFrame("99", "2", "spoof", "text")))
	rej := waitForFrame(t, alice, func(m map[string]any) bool { _, ok := m["success"]; return ok })
	assert.Equal(t, false, rej["success"])
	assert.Equal(t, "PERMISSION_DENIED", rej["code"])
	assert.Equal(t, 0, store.count())

	// The same connection still processes the next frame.
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, chatFrame("1", "2", "legit", "text")))
	ack := waitForFrame(t, alice, func(m map[string]any) bool { _, ok := m["success"]; return ok })
	assert.Equal(t, true, ack["success"])
	assert.Equal(t, 1, store.count())
}

func TestHubRefusesInvalidToken(t *testing.T) {
	_, srv, _ := newTestHub(t, &fakeStore{})

	conn := dialToken(t, srv, "not-a-jwt")
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var rej map[string]any
	require.NoError(t, json.Unmarshal(raw, &rej))
	assert.Equal(t, false, rej["success"])
	assert.Equal(t, "UNAUTHENTICATED", rej["code"])

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestHubRefusesMissingToken(t *testing.T) {
	_, srv, _ := newTestHub(t, &fakeStore{})

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var rej map[string]any
	require.NoError(t, json.Unmarshal(raw, &rej))
	assert.Equal(t, "UNAUTHENTICATED", rej["code"])
}

func TestHubSupersedesDuplicateLogin(t *testing.T) {
	store := &fakeStore{}
	hub, srv, verifier := newTestHub(t, store)

	observer := dialWS(t, srv, verifier, "9")
	first := dialWS(t, srv, verifier, "1")
	waitForFrame(t, observer, isPresence("1", true))

	second := dialWS(t, srv, verifier, "1")

	// The replacement reads for the entire test. It has to: reading is what
	// answers the server's pings, and a replacement that stops reading gets
	// evicted itself — and that eviction, not the supersession, would
	// broadcast an offline notice during the observation window below.
	secondFrames := make(chan map[string]any, 64)
	go func() {
		defer close(secondFrames)
		_ = second.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			_, raw, err := second.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(raw, &m) == nil {
				secondFrames <- m
			}
		}
	}()

	// The old socket is force-closed after the grace window.
	_ = first.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	// The replacement is the live registration and keeps routing.
	require.NoError(t, second.WriteMessage(websocket.TextMessage, chatFrame("1", "9", "back", "text")))
	got := waitForFrame(t, observer, func(m map[string]any) bool { return m["type"] == "message" })
	assert.Equal(t, "back", got["content"])
	assert.Equal(t, 2, hub.Registry().Len())

	// Supersession is a replacement, not a disconnect: nobody sees user 1
	// go offline.
	for _, m := range collectFrames(t, observer, 200*time.Millisecond) {
		assert.False(t, isPresence("1", false)(m), "unexpected offline notice: %v", m)
	}
}

func TestHubEvictsUnresponsiveConnection(t *testing.T) {
	_, srv, verifier := newTestHub(t, &fakeStore{})

	observer := dialWS(t, srv, verifier, "9")
	zombie := dialWS(t, srv, verifier, "1")

	// The observer reads for the entire test. It has to: reading is what
	// answers the server's pings, and an observer that stops reading gets
	// evicted itself before the broadcast arrives.
	observed := make(chan map[string]any, 64)
	go func() {
		defer close(observed)
		_ = observer.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			_, raw, err := observer.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(raw, &m) == nil {
				observed <- m
			}
		}
	}()

	// Swallow heartbeat pings so the server sees a silent peer. The
	// connection must keep reading for control frames to be processed.
	zombie.SetPingHandler(func(string) error { return nil })
	dead := make(chan struct{})
	go func() {
		defer close(dead)
		_ = zombie.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			if _, _, err := zombie.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-dead:
	case <-time.After(2 * time.Second):
		t.Fatal("unresponsive connection was not evicted")
	}

	// Let the offline broadcast land, then stop the observer and tally.
	time.Sleep(300 * time.Millisecond)
	_ = observer.Close()

	var online, offline int
	for m := range observed {
		if isPresence("1", true)(m) {
			online++
		}
		if isPresence("1", false)(m) {
			offline++
		}
	}
	require.GreaterOrEqual(t, online, 1, "observer missed the online notice")
	assert.Equal(t, 1, offline, "eviction must produce exactly one offline notice")
}

func TestHubBroadcastsDisconnect(t *testing.T) {
	_, srv, verifier := newTestHub(t, &fakeStore{})

	observer := dialWS(t, srv, verifier, "9")
	peer := dialWS(t, srv, verifier, "1")
	waitForFrame(t, observer, isPresence("1", true))

	require.NoError(t, peer.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = peer.Close()

	var offline int
	for _, m := range collectFrames(t, observer, 300*time.Millisecond) {
		if isPresence("1", false)(m) {
			offline++
		}
	}
	assert.Equal(t, 1, offline)
}

func TestHubSignalingAcrossConnections(t *testing.T) {
	_, srv, verifier := newTestHub(t, &fakeStore{})

	alice := dialWS(t, srv, verifier, "1")
	bob := dialWS(t, srv, verifier, "2")
	waitForFrame(t, alice, isPresence("2", true))

	offer := fmt.Sprintf(`{"type":"offer","senderId":%q,"receiverId":%q,"sdp":{"sdp":"v=0"}}`, "1", "2")
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(offer)))

	got := waitForFrame(t, bob, func(m map[string]any) bool { return m["type"] == "offer" })
	assert.Equal(t, "1", got["senderId"])

	// A signaling frame to a peer with no connection comes back as offline.
	require.NoError(t, bob.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"answer","senderId":"2","receiverId":"777"}`)))
	reply := waitForFrame(t, bob, func(m map[string]any) bool { return m["type"] == "offline" })
	assert.Equal(t, "777", reply["receiverId"])
}
