package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deviceRequestsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "device",
			Name:      "requests_total",
			Help:      "Device bridge requests by subject and outcome.",
		},
		[]string{"subject", "outcome"}, // ok, rejected, error
	)

	deviceRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "device",
			Name:      "request_duration_seconds",
			Help:      "Round-trip time of device bridge requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"subject"},
	)
)
