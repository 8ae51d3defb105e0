// Package metrics exposes Prometheus collectors shared by PHC, the
// Transcryptor and the authentication server: discovery convergence,
// pseudonymization pipeline latency, and per-server running state.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "pubhubs"

// Registry is the process-wide collector registry; every metric in this
// package is registered against it via promauto.With(Registry).
var Registry = prometheus.NewRegistry()
