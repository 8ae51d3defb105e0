// Package server implements the shared per-process lifecycle every
// PubHubs server role (PHC, Transcryptor, authentication server) runs:
// the Discovery / UpAndRunning / Restarting state machine, backed
// by an immutable RunningState snapshot swapped atomically on restart.
package server

import (
	"sync/atomic"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
)

// State is one of the three lifecycle states a server occupies.
type State int

const (
	// StateDiscovery refuses all non-discovery endpoints with NotYetReady.
	StateDiscovery State = iota
	// StateUpAndRunning is normal operation.
	StateUpAndRunning
	// StateRestarting is transient; callers see PleaseRetry.
	StateRestarting
)

func (s State) metricsValue() metrics.RunningState {
	switch s {
	case StateUpAndRunning:
		return metrics.StateUpAndRunning
	case StateRestarting:
		return metrics.StateRestarting
	default:
		return metrics.StateDiscovery
	}
}

// RunningState is the immutable snapshot a server's handlers read from:
// the agreed constellation plus every secret derived from it. A server
// never mutates a RunningState in place; a restart builds a fresh one and
// swaps it in via App.Swap.
type RunningState struct {
	Constellation constellation.Constellation

	// SigningKey is this server's own Signed-envelope signing key.
	SigningKey envelope.SigningKey

	// PeerVerifyingKeys maps each other constellation member's name to its
	// Signed-envelope verifying key, decoded from the constellation's
	// published JWTKey fields.
	PeerVerifyingKeys map[constellation.ServerName]envelope.VerifyingKey

	// SealingKeys holds the derived symmetric sealing keys this server
	// uses for each Sealed purpose it participates in (e.g. T<->PHC,
	// hub<->PHC, PHC's own nonce secret). Keyed by a caller-defined label.
	SealingKeys map[string]envelope.SealingKey
}

// App is the long-lived, per-process owner of the current RunningState
// snapshot. Request
// handlers obtain a snapshot via Snapshot and never hold a reference
// across a suspension point that could outlive a restart.
type App struct {
	state    atomic.Int32
	snapshot atomic.Pointer[RunningState]
	log      logger.Logger
}

// NewApp creates an App starting in StateDiscovery with no snapshot.
func NewApp(log logger.Logger) *App {
	a := &App{log: log}
	a.state.Store(int32(StateDiscovery))
	metrics.SetState(StateDiscovery.metricsValue())
	return a
}

// State returns the app's current lifecycle state.
func (a *App) State() State {
	return State(a.state.Load())
}

// Snapshot returns the current RunningState, or nil if the app has not
// yet left StateDiscovery.
func (a *App) Snapshot() *RunningState {
	return a.snapshot.Load()
}

// EnterUpAndRunning installs snapshot and transitions to StateUpAndRunning.
// Called once a server has retrieved the published constellation from
// PHC, confirmed it includes its own public keys, and stored it.
func (a *App) EnterUpAndRunning(snapshot *RunningState) {
	a.snapshot.Store(snapshot)
	a.state.Store(int32(StateUpAndRunning))
	metrics.SetState(StateUpAndRunning.metricsValue())
	a.log.Info("entered UpAndRunning", logger.String("constellation_id", string(snapshot.Constellation.ID)))
}

// BeginRestart transitions to StateRestarting, which causes in-flight and
// new requests to see PleaseRetry until EnterUpAndRunning or
// EnterDiscovery is called again.
func (a *App) BeginRestart(reason string) {
	a.state.Store(int32(StateRestarting))
	metrics.SetState(StateRestarting.metricsValue())
	metrics.Restarts.WithLabelValues(reason).Inc()
	a.log.Info("restarting", logger.String("reason", reason))
}

// EnterDiscovery drops the current snapshot and returns the app to
// StateDiscovery, e.g. after a constellation-id mismatch is observed.
func (a *App) EnterDiscovery() {
	a.snapshot.Store(nil)
	a.state.Store(int32(StateDiscovery))
	metrics.SetState(StateDiscovery.metricsValue())
	a.log.Info("entered Discovery")
}

// RequireUpAndRunning returns the current snapshot, or an apierr suitable
// for an HTTP handler to return immediately if the app is not ready to
// serve non-discovery traffic.
func (a *App) RequireUpAndRunning() (*RunningState, *apierr.Error) {
	switch a.State() {
	case StateUpAndRunning:
		snap := a.Snapshot()
		if snap == nil {
			return nil, apierr.New(apierr.InternalError, "up and running with no snapshot")
		}
		return snap, nil
	case StateRestarting:
		return nil, apierr.New(apierr.PleaseRetry, "server is restarting")
	default:
		return nil, apierr.New(apierr.NotYetReady, "server has not completed discovery")
	}
}
