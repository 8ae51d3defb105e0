// HTTP wiring for the authentication server's own endpoints.
// The protocol logic lives in welcome.go, authstart.go, authcomplete.go,
// attrkeys.go and release.go; this file only decodes requests, writes
// responses, and relays the Yivi server's chained-session callback into
// the ChainedSessionController.
package authserver

import (
	"io"
	"net/http"

	"github.com/pubhubs/pubhubs-core/apierr"
)

// Mux builds the http.ServeMux serving every endpoint this Server
// implements, for mounting by cmd/authserver alongside the shared
// discovery, health and metrics routes.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/.ph/welcome", s.handleWelcome)
	mux.HandleFunc("/.ph/auth/start", s.handleAuthStart)
	mux.HandleFunc("/.ph/auth/complete", s.handleAuthComplete)
	mux.HandleFunc("/.ph/auth/attr-keys", s.handleAttrKeys)
	mux.HandleFunc("/.ph/auth/yivi-release/", s.handleYiviRelease)
	mux.HandleFunc(YiviNextSessionPath, s.handleYiviNextSession)
	return mux
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	apierr.WriteResp(w, s.Welcome(r.Context()), nil)
}

func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	var req AuthStartReq
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*AuthStartResp](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	res, aerr := s.AuthStart(r.Context(), req)
	apierr.WriteResp(w, res, aerr)
}

func (s *Server) handleAuthComplete(w http.ResponseWriter, r *http.Request) {
	var req AuthCompleteReq
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*AuthCompleteResp](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	res, aerr := s.AuthComplete(r.Context(), req)
	apierr.WriteResp(w, res, aerr)
}

func (s *Server) handleAttrKeys(w http.ResponseWriter, r *http.Request) {
	var req AttrKeysReq
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*AttrKeysResp](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	res, aerr := s.AttrKeys(r.Context(), req)
	apierr.WriteResp(w, res, aerr)
}

// handleYiviRelease serves /.ph/auth/yivi-release/<session_id>.
func (s *Server) handleYiviRelease(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Path[len("/.ph/auth/yivi-release/"):]
	res, aerr := s.YiviReleaseNextSession(r.Context(), sessionID)
	apierr.WriteResp(w, res, aerr)
}

// handleYiviNextSession is the callback the Yivi server posts a chained
// session's disclosure result to; it never goes through the Signed/Sealed
// envelope machinery, it only feeds ChainedSessionController.MarkDisclosed
// so a later YiviReleaseNextSession poll can return it.
func (s *Server) handleYiviNextSession(w http.ResponseWriter, r *http.Request) {
	if s.Chained == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.Chained.MarkDisclosed(sessionID, body)
	w.WriteHeader(http.StatusOK)
}
