// Package appboot is the small amount of process wiring every cmd/
// binary shares: mounting the two discovery endpoints every server role
// exposes regardless of role, a health endpoint keyed to the
// App's own Discovery/UpAndRunning/Restarting state, and a metrics
// endpoint, then serving them with graceful shutdown. The PHC-specific
// constellation-building logic and the T/AS-specific convergence-polling
// logic stay in their own cmd/ mains; this package only wires the result.
package appboot

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pubhubs/pubhubs-core/discovery"
	"github.com/pubhubs/pubhubs-core/health"
	"github.com/pubhubs/pubhubs-core/internal/httpserver"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/server"
)

// Options configures Mux and Serve.
type Options struct {
	App    *server.App
	Log    logger.Logger
	Info   discovery.InfoSource
	Run    discovery.RunFunc
	Health *health.HealthChecker

	// MetricsEnabled mounts GET /metrics alongside the server's own
	// endpoints; when false, Serve starts a separate metrics listener on
	// its metricsAddr argument instead, if that is non-empty.
	MetricsEnabled bool

	// Business serves every role-specific endpoint (PHC's user/hub/admin
	// routes, T's ehpp/key routes, AS's auth routes). It is mounted as
	// the fallback for any path the shared discovery/health/metrics
	// routes don't claim.
	Business http.Handler
}

// Mux builds the shared handler set: discovery info/run, health,
// (optionally) metrics, and the role's own business routes.
func Mux(opts Options) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/.ph/discovery/info", discovery.InfoHandler(opts.App, opts.Info))
	mux.HandleFunc("/.ph/discovery/run", discovery.RunHandler(opts.Run))

	if opts.Health != nil {
		mux.HandleFunc("/.ph/health", healthHandler(opts.Health))
	}
	if opts.MetricsEnabled {
		mux.Handle("/metrics", metrics.Handler())
	}
	if opts.Business != nil {
		mux.Handle("/", opts.Business)
	}
	return mux
}

func healthHandler(checker *health.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sys := checker.GetSystemHealth(r.Context())
		w.Header().Set("Content-Type", "application/json")
		switch sys.Status {
		case health.StatusHealthy:
			w.WriteHeader(http.StatusOK)
		case health.StatusDegraded:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(sys)
	}
}

// Serve mounts Mux and runs it on addr until ctx is cancelled, plus a
// separate metrics listener on metricsAddr when opts.MetricsEnabled is
// false but metricsAddr is non-empty (the common "own port for
// Prometheus" deployment shape).
func Serve(ctx context.Context, addr string, metricsAddr string, opts Options) error {
	mux := Mux(opts)

	if !opts.MetricsEnabled && metricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := httpserver.Run(ctx, opts.Log, metricsAddr, metricsMux); err != nil {
				opts.Log.Error("metrics server stopped", logger.Error(err))
			}
		}()
	}

	return httpserver.Run(ctx, opts.Log, addr, mux)
}
