// Package metrics provides Prometheus instrumentation for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of registered connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "svyaz_relay_connections",
		Help: "Current number of registered websocket connections",
	})

	// MessagesTotal counts routed frames by outcome: stored, delivered,
	// receiver_offline, forwarded, rejected, dropped.
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svyaz_relay_messages_total",
		Help: "Total number of routed frames by outcome",
	}, []string{"outcome"})

	// RouteLatency records time from frame receipt to ack/forward.
	RouteLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "svyaz_relay_route_latency_seconds",
		Help:    "Frame routing latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// PresenceBroadcasts counts online/offline fan-outs.
	PresenceBroadcasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svyaz_relay_presence_broadcasts_total",
		Help: "Total number of presence transitions broadcast",
	}, []string{"state"}) // state = "online", "offline"

	// LivenessEvictions counts connections terminated by the watchdog.
	LivenessEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "svyaz_relay_liveness_evictions_total",
		Help: "Total number of connections evicted for missed heartbeats",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		MessagesTotal,
		RouteLatency,
		PresenceBroadcasts,
		LivenessEvictions,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
