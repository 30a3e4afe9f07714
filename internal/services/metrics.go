package services

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_upstream_requests_total",
		Help: "Outbound requests to third-party services by target and HTTP status.",
	}, []string{"target", "status"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_upstream_request_duration_seconds",
		Help:    "Latency of outbound requests to third-party services.",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})

	assetResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_asset_resolutions_total",
		Help: "Asset resolutions by outcome.",
	}, []string{"result"})
)

// status 0 means the request never got an answer.
func observeUpstream(target string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	upstreamRequests.WithLabelValues(target, label).Inc()
	upstreamDuration.WithLabelValues(target).Observe(elapsed.Seconds())
}
