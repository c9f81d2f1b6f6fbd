// internal/service/order/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Committed order lifecycle transitions, by event name.",
	}, []string{"event"})

	orderTransitionRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transition_rejects_total",
		Help: "Rejected order lifecycle transitions, by event name.",
	}, []string{"event"})

	sideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_side_effect_failures_total",
		Help: "Post-commit side effects (cache invalidation, event publish) that failed.",
	}, []string{"effect"})
)
