package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callerDecisionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callerid",
			Name:      "decisions_total",
			Help:      "Caller-ID decisions by the tier that answered.",
		},
		[]string{"tier"}, // memory, store, remote, stale, default, transient
	)

	remoteLookupFailuresCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "callerid",
			Name:      "remote_lookup_failures_total",
			Help:      "Remote caller-ID lookups that failed and were absorbed.",
		},
	)

	remoteLookupDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "callerid",
			Name:      "remote_lookup_duration_seconds",
			Help:      "Duration of remote caller-ID lookups.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	riskCacheEvictionsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "callerid",
			Name:      "cache_evictions_total",
			Help:      "Decisions evicted from the in-memory LRU.",
		},
	)

	riskLevelCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callerid",
			Name:      "risk_profiles_total",
			Help:      "Caller risk profiles computed, by level.",
		},
		[]string{"level"},
	)

	spamFeedMessagesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callerid",
			Name:      "spam_feed_messages_total",
			Help:      "Spam profile feed messages received.",
		},
		[]string{"status"}, // stored, invalid, error
	)
)
