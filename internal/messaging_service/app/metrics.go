package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messageModeDecisionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "delivery_decisions_total",
			Help:      "Message delivery decisions by mode.",
		},
		[]string{"mode"},
	)

	attachmentValidationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "attachment_validations_total",
			Help:      "Attachment validations by outcome.",
		},
		[]string{"result"}, // accepted, rejected
	)

	outboundMessagesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "outbound_jobs_total",
			Help:      "Outbound message jobs by mode and publish status.",
		},
		[]string{"mode", "status"}, // published, error_marshal, error_publish, rejected
	)
)
