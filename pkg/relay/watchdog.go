package relay

import (
	"time"

	"github.com/svyazapp/backend/pkg/metrics"
)

// watchdog periodically sweeps the registry for connections that stopped
// answering heartbeat pings and terminates them. The sweep window equals the
// liveness timeout, so an unresponsive connection is evicted within
// timeout + heartbeat interval of its last pong. The long window (relative
// to the 30s ping period) tolerates mobile network jitter and active calls;
// slower stale-connection detection is the accepted cost.
func (h *Hub) watchdog() {
	ticker := time.NewTicker(h.cfg.LivenessTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	now := time.Now()
	for _, c := range h.registry.Snapshot() {
		alive, lastPong := c.heartbeatState()
		if alive {
			continue
		}
		// Not yet answered the latest ping; evict only once the silence
		// exceeds the full window, so a connection pinged moments before
		// the sweep is not falsely terminated.
		if now.Sub(lastPong) <= h.cfg.LivenessTimeout {
			continue
		}

		h.log.Info("evicting unresponsive connection",
			"user_id", c.UserID(), "conn_id", c.ConnID(),
			"silent_for", now.Sub(lastPong).Round(time.Second))
		metrics.LivenessEvictions.Inc()
		h.drop(c, "liveness timeout")
	}
}
