package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// The backend label is "local" or "redis".
var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Requests let through by the rate limiters",
		},
		[]string{"endpoint", "backend"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Requests rejected by the rate limiters",
		},
		[]string{"endpoint", "backend"},
	)
)

func init() {
	prometheus.MustRegister(RLRequests, RLBlocked)
}
