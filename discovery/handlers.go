// Package discovery implements the discovery HTTP surface: every server
// exposes GET /.ph/discovery/info and POST /.ph/discovery/run, regardless
// of role. The client-side convergence algorithm lives in
// constellation.Converge; this package only wires a server's own App to
// those two endpoints.
package discovery

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/server"
)

// InfoSource supplies the fields GET /.ph/discovery/info reports besides
// the constellation, which is read from the owning App's snapshot.
type InfoSource struct {
	Name          constellation.ServerName
	SelfCheckCode string
	Version       string
	PHCURL        string
	JWTKey        string
	EncKey        string
	// MasterEncKeyPart must be left empty for any server other than PHC
	// or the Transcryptor.
	MasterEncKeyPart string
}

// InfoHandler serves GET /.ph/discovery/info.
func InfoHandler(app *server.App, src InfoSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := constellation.Info{
			Name:             src.Name,
			SelfCheckCode:    src.SelfCheckCode,
			Version:          src.Version,
			PHCURL:           src.PHCURL,
			JWTKey:           src.JWTKey,
			EncKey:           src.EncKey,
			MasterEncKeyPart: src.MasterEncKeyPart,
		}
		if snap := app.Snapshot(); snap != nil {
			c := snap.Constellation
			info.Constellation = &c
		}
		writeJSON(w, http.StatusOK, info)
	}
}

// RunFunc performs a server's own discovery/run side effect. PHC rebuilds
// its own constellation; the Transcryptor and the authentication server
// re-fetch PHC's constellation and reinstall it through a restart each
// time they are called, whether or not it changed.
type RunFunc func(ctx context.Context) (constellation.RunOutcome, error)

// RunHandler serves POST /.ph/discovery/run.
func RunHandler(run RunFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := run(r.Context())
		metrics.DiscoveryRuns.WithLabelValues(string(outcome)).Inc()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]constellation.RunOutcome{"outcome": outcome})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
