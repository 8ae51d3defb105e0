package server

import (
	"testing"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/stretchr/testify/require"
)

func TestAppStartsInDiscovery(t *testing.T) {
	a := NewApp(logger.NewDefaultLogger())
	require.Equal(t, StateDiscovery, a.State())

	_, err := a.RequireUpAndRunning()
	require.Error(t, err)
	require.Equal(t, apierr.NotYetReady, err.Code)
}

func TestAppEntersUpAndRunning(t *testing.T) {
	a := NewApp(logger.NewDefaultLogger())
	snap := &RunningState{}
	a.EnterUpAndRunning(snap)

	require.Equal(t, StateUpAndRunning, a.State())
	got, err := a.RequireUpAndRunning()
	require.NoError(t, err)
	require.Same(t, snap, got)
}

func TestAppRestartRejectsRequests(t *testing.T) {
	a := NewApp(logger.NewDefaultLogger())
	a.EnterUpAndRunning(&RunningState{})
	a.BeginRestart("config change")

	_, err := a.RequireUpAndRunning()
	require.Error(t, err)
	require.Equal(t, apierr.PleaseRetry, err.Code)
}

func TestAppDiscoveryDropsSnapshot(t *testing.T) {
	a := NewApp(logger.NewDefaultLogger())
	a.EnterUpAndRunning(&RunningState{})
	a.EnterDiscovery()

	require.Nil(t, a.Snapshot())
	_, err := a.RequireUpAndRunning()
	require.Equal(t, apierr.NotYetReady, err.Code)
}
