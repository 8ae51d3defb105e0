package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunningState enumerates the three states a server's gauge can report;
// values mirror the server package's state machine.
type RunningState float64

const (
	StateDiscovery    RunningState = 0
	StateUpAndRunning RunningState = 1
	StateRestarting   RunningState = 2
)

var (
	// ServerState reports the current lifecycle state of this process, as
	// one of RunningState's values; the server package sets it on every
	// transition.
	ServerState = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_state",
			Help:      "Current server lifecycle state: 0=Discovery, 1=UpAndRunning, 2=Restarting",
		},
	)

	// Restarts counts graceful restarts, by reason.
	Restarts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Total number of graceful restarts, by reason",
		},
		[]string{"reason"},
	)
)

// SetState records the process's current RunningState on the ServerState
// gauge.
func SetState(s RunningState) {
	ServerState.Set(float64(s))
}
