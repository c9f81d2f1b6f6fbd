// internal/gateway/metrics.go
package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_websocket_connections",
		Help: "Currently connected websocket clients per channel.",
	}, []string{"channel"})

	eventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_events_consumed_total",
		Help: "Order events consumed from Kafka, by event name.",
	}, []string{"event"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_events_dropped_total",
		Help: "Events dropped because a client send buffer was full.",
	})
)
