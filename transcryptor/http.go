// HTTP wiring for the Transcryptor's own endpoints: EHPP
// conversion, T's half of hub key delivery, and the chained-session
// relay. The protocol logic lives in ehpp.go, hubkey.go and session.go;
// this file only decodes requests and writes responses.
package transcryptor

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
)

// sessionRelayTTL bounds how long a chained-session handoff token is held
// before Sweep drops it; long enough to ride out an authentication-server
// restart, short enough that abandoned chains don't accumulate.
const sessionRelayTTL = 10 * time.Minute

// Mux builds the http.ServeMux serving every endpoint this Server
// implements, for mounting by cmd/transcryptor alongside the shared
// discovery, health and metrics routes.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/.ph/ehpp", s.handleEHPP)
	mux.HandleFunc("/.ph/hubs/key", s.handleHubKey)
	mux.HandleFunc("/.ph/session/", s.handleSession)
	return mux
}

func (s *Server) handleEHPP(w http.ResponseWriter, r *http.Request) {
	var req EHPPRequest
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*EHPPResult](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	res, aerr := s.EHPP(r.Context(), req)
	apierr.WriteResp(w, res, aerr)
}

func (s *Server) handleHubKey(w http.ResponseWriter, r *http.Request) {
	var req KeyReq
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*KeyResp](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	res, aerr := s.HubKey(r.Context(), req)
	apierr.WriteResp(w, res, aerr)
}

// handleSession serves the chained-session relay at /.ph/session/<id>:
// the authentication server PUTs a handoff token under a session id and
// later GETs it back, surviving its own restart in between. T never
// inspects the token.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if _, aerr := s.snapshot(); aerr != nil {
		apierr.WriteResp[[]byte](w, nil, aerr)
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, "/.ph/session/")
	if sessionID == "" {
		apierr.WriteResp[[]byte](w, nil, apierr.New(apierr.BadRequest, "missing session id"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		token, err := io.ReadAll(r.Body)
		if err != nil || len(token) == 0 {
			apierr.WriteResp[struct{}](w, struct{}{}, apierr.New(apierr.BadRequest, "missing session token"))
			return
		}
		s.Sessions.Put(sessionID, token, sessionRelayTTL)
		apierr.WriteResp(w, struct{}{}, nil)
	case http.MethodGet:
		token, ok := s.Sessions.Get(sessionID)
		if !ok {
			apierr.WriteResp[[]byte](w, nil, apierr.New(apierr.PleaseRetry, "no token held for session"))
			return
		}
		apierr.WriteResp(w, token, nil)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
