package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	adapterLaunchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "integration",
			Name:      "adapter_launches_total",
			Help:      "Adapter launches by platform and result.",
		},
		[]string{"platform", "result"}, // success, unavailable, failure
	)

	policyBlocksCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "integration",
			Name:      "policy_blocks_total",
			Help:      "Launches refused by the integration privacy policy.",
		},
		[]string{"action"},
	)

	canHandleProbeDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "integration",
			Name:      "can_handle_probe_duration_seconds",
			Help:      "Time to probe all candidate adapters for one request.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
