package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	ProbeRounds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshagent",
			Name:      "probe_rounds_total",
			Help:      "Completed liveness sweeps.",
		},
		[]string{"self"},
	)

	PeersPruned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshagent",
			Name:      "peers_pruned_total",
			Help:      "Peers removed after failing to ack a probe.",
		},
		[]string{"self"},
	)

	PingsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshagent",
			Name:      "pings_received_total",
			Help:      "Inbound membership pings merged into the directory.",
		},
		[]string{"self"},
	)

	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshagent",
			Name:      "messages_received_total",
			Help:      "Inbound application messages pushed to the inbox.",
		},
		[]string{"self"},
	)

	DecodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshagent",
			Name:      "decode_errors_total",
			Help:      "Inbound frames that failed to decode and were skipped.",
		},
		[]string{"self"},
	)

	BroadcastSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshagent",
			Name:      "broadcast_sends_total",
			Help:      "Per-peer broadcast deliveries by outcome.",
		},
		[]string{"self", "outcome"},
	)

	KnownPeers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "meshagent",
			Name:      "known_peers",
			Help:      "Current directory size, self included.",
		},
		[]string{"self"},
	)

	InboxDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "meshagent",
			Name:      "inbox_depth",
			Help:      "Payloads buffered and not yet retrieved.",
		},
		[]string{"self"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "meshagent",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		ProbeRounds, PeersPruned, PingsReceived, MessagesReceived,
		DecodeErrors, BroadcastSends, KnownPeers, InboxDepth, uptime,
	)
}

// MetricsHandler exposes /metrics. Mount it with
// mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
