package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Cards submitted for charging",
		},
		[]string{"telco"},
	)

	// callbacks by outcome: success|wrong|ignored|duplicate|unknown_id
	CallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callbacks_total",
			Help: "Provider callbacks received",
		},
		[]string{"outcome"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Outbound charging requests",
		},
		[]string{"result"}, // ok|error
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// handler for the /metrics endpoint
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RedemptionsTotal)
	prometheus.MustRegister(CallbacksTotal)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(WorkerQueueDepth)
}
