package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DiscoveryRuns counts invocations of POST /.ph/discovery/run, by the
	// outcome reported (UpToDate or Restarting).
	DiscoveryRuns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "runs_total",
			Help:      "Total number of discovery/run invocations, by outcome",
		},
		[]string{"outcome"},
	)

	// ConstellationMismatches counts peer info responses that diverged
	// from the expected constellation during Converge.
	ConstellationMismatches = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "constellation_mismatches_total",
			Help:      "Total number of peer constellation mismatches observed while converging",
		},
		[]string{"server", "reason"},
	)

	// ConvergenceDuration tracks how long Converge took to reach agreement.
	ConvergenceDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "convergence_duration_seconds",
			Help:      "Time for the discovery client to converge all servers on one constellation",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// ConstellationRebuilds counts PHC rebuilding its constellation.
	ConstellationRebuilds = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "constellation_rebuilds_total",
			Help:      "Total number of times PHC rebuilt its constellation, by trigger",
		},
		[]string{"trigger"}, // initial, config_change, admin_request
	)
)
