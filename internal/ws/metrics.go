package ws

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Subscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_subscriptions",
			Help: "Live game subscriptions",
		},
	)
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_broadcast_deliveries_total",
			Help: "Broadcast deliveries by result",
		},
		[]string{"result"},
	)
	StaleSnapshots = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_stale_snapshots_total",
			Help: "Snapshots dropped because a newer one was already broadcast",
		},
	)
)

func init() {
	prometheus.MustRegister(Subscriptions)
	prometheus.MustRegister(Deliveries)
	prometheus.MustRegister(StaleSnapshots)
}
