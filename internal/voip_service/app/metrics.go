package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callTransportDecisionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voip",
			Name:      "transport_decisions_total",
			Help:      "Call transport decisions by transport type.",
		},
		[]string{"transport"},
	)

	callDispatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voip",
			Name:      "dispatch_total",
			Help:      "Call dispatch attempts by transport and outcome.",
		},
		[]string{"transport", "status"}, // dispatched, dispatch_error, no_dispatcher
	)

	recordingDecisionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voip",
			Name:      "recording_decisions_total",
			Help:      "Call recording policy decisions by outcome.",
		},
		[]string{"outcome"}, // allowed, error, or a denial code
	)
)
