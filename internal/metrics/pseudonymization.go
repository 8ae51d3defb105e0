package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineStageDuration tracks the latency of each stage of the
	// entry pipeline (ppp, ehpp, hhpp, enter_complete).
	PipelineStageDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pseudonymization",
			Name:      "stage_duration_seconds",
			Help:      "Duration of a single pseudonymization pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"stage"},
	)

	// PipelineStageFailures counts stage failures by apierr code.
	PipelineStageFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pseudonymization",
			Name:      "stage_failures_total",
			Help:      "Total number of pseudonymization pipeline stage failures, by stage and error code",
		},
		[]string{"stage", "code"},
	)

	// HubEntriesCompleted counts successful EnterComplete calls, per hub.
	HubEntriesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pseudonymization",
			Name:      "hub_entries_total",
			Help:      "Total number of completed hub entries",
		},
		[]string{"hub_id"},
	)

	// TicketsIssued counts PHC hub tickets issued.
	TicketsIssued = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pseudonymization",
			Name:      "hub_tickets_issued_total",
			Help:      "Total number of hub tickets issued by PHC",
		},
	)

	// HubKeyPartsIssued counts PHC/T key-part responses, per server role.
	HubKeyPartsIssued = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pseudonymization",
			Name:      "hub_key_parts_issued_total",
			Help:      "Total number of hub key parts issued",
		},
		[]string{"server"},
	)
)
