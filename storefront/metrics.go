package storefront

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_client_requests_total",
			Help: "Total number of API requests issued, by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	tokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_client_token_refresh_total",
			Help: "Total number of token refresh attempts, by outcome",
		},
		[]string{"outcome"},
	)

	refreshWaiters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_client_refresh_waiters",
			Help: "Number of requests currently queued behind an in-flight token refresh",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(tokenRefreshTotal)
	prometheus.MustRegister(refreshWaiters)
}
