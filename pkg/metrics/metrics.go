package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat",
		Name:      "ws_connections_active",
		Help:      "Live websocket connections registered in the hub.",
	})

	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "ws_frames_received_total",
		Help:      "Inbound frames by message type.",
	}, []string{"type"})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "ws_frames_dropped_total",
		Help:      "Inbound frames dropped without broadcast, by reason.",
	}, []string{"reason"})

	BroadcastDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "ws_broadcast_deliveries_total",
		Help:      "Outbound frames written to recipients.",
	})

	BroadcastSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "ws_broadcast_skipped_total",
		Help:      "Recipients skipped because the transport was closed or the write failed.",
	})

	BookkeepingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "bookkeeping_failures_total",
		Help:      "Best-effort persistence calls that failed and were ignored.",
	}, []string{"op"})

	RoomsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "rooms_deleted_total",
		Help:      "Rooms purged after their last participant left.",
	})
)

// Handler отдаёт метрики Prometheus на /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
