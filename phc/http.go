// HTTP wiring for PHC's own endpoints. Each handler only
// decodes the request, pulls the bearer token out of the Authorization
// header where the operation needs one, calls the corresponding Server
// method, and writes the result with apierr.WriteResp; the protocol logic
// itself lives in enter.go, ppp.go, hhpp.go, hubticket.go, hubkey.go,
// state.go and admin.go.
package phc

import (
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/pubhubs/pubhubs-core/apierr"
)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	return strings.TrimPrefix(h, "Bearer ")
}

// Mux builds the http.ServeMux serving every user- and hub-facing
// endpoint this Server implements, for mounting by cmd/phc alongside the
// shared discovery, health and metrics routes. The admin config endpoint
// is served separately by AdminMux, since a deployment may want to keep
// it off the public listener entirely (config.PHCConfig.AdminListenAddr).
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/.ph/user/enter", s.handleEnter)
	mux.HandleFunc("/.ph/user/ppp", s.handlePPP)
	mux.HandleFunc("/.ph/user/hhpp", s.handleHHPP)
	mux.HandleFunc("/.ph/user/state", s.handleState)
	mux.HandleFunc("/.ph/user/object", s.handleObject)
	mux.HandleFunc("/.ph/hubs/ticket", s.handleHubTicket)
	mux.HandleFunc("/.ph/hubs/key", s.handleHubKey)
	return mux
}

// AdminMux builds the http.ServeMux serving just POST /.ph/admin/config.
func (s *Server) AdminMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/.ph/admin/config", s.handleAdminConfig)
	return mux
}

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req EnterRequest
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*EnterResult](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	res, aerr := s.Enter(r.Context(), req, s.AuthTokenValidity)
	apierr.WriteResp(w, res, aerr)
}

func (s *Server) handlePPP(w http.ResponseWriter, r *http.Request) {
	res, aerr := s.PPP(r.Context(), bearerToken(r))
	apierr.WriteResp(w, res, aerr)
}

func (s *Server) handleHHPP(w http.ResponseWriter, r *http.Request) {
	var req HHPPRequest
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*HHPPResult](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	res, aerr := s.HHPP(r.Context(), bearerToken(r), req)
	apierr.WriteResp(w, res, aerr)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	res, aerr := s.State(r.Context(), bearerToken(r))
	apierr.WriteResp(w, res, aerr)
}

// handleObject implements GET (fetch), POST (create) and PUT (overwrite)
// for a single object, keyed by its id query parameter.
func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		res, aerr := s.GetObject(r.Context(), bearerToken(r), r.URL.Query().Get("id"))
		apierr.WriteResp(w, res, aerr)
	case http.MethodPost:
		var req NewObjectRequest
		if err := apierr.DecodeRequest(r, &req); err != nil {
			apierr.WriteResp[*ObjectView](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
			return
		}
		res, aerr := s.NewObject(r.Context(), bearerToken(r), req)
		apierr.WriteResp(w, res, aerr)
	case http.MethodPut:
		var req OverwriteObjectRequest
		if err := apierr.DecodeRequest(r, &req); err != nil {
			apierr.WriteResp[*ObjectView](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
			return
		}
		res, aerr := s.OverwriteObject(r.Context(), bearerToken(r), req)
		apierr.WriteResp(w, res, aerr)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHubTicket(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierr.WriteResp[*TicketResp](w, nil, apierr.New(apierr.BadRequest, "could not read request body"))
		return
	}
	// Mirrors client.HubKeyHeader; phc can't import client (client imports
	// phc for TicketResp/KeyResp), so the header name is duplicated here.
	keyHex := r.Header.Get("X-Hub-Key")
	rawKey, err := hex.DecodeString(keyHex)
	if err != nil || len(rawKey) != ed25519.PublicKeySize {
		apierr.WriteResp[*TicketResp](w, nil, apierr.New(apierr.BadRequest, "missing or malformed X-Hub-Key header"))
		return
	}
	res, aerr := s.HubTicket(r.Context(), string(body), ed25519.PublicKey(rawKey))
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

func (s *Server) handleAdminConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierr.WriteResp[struct{}](w, struct{}{}, apierr.New(apierr.BadRequest, "could not read request body"))
		return
	}
	aerr := s.AdminConfig(r.Context(), string(body))
	apierr.WriteResp(w, struct{}{}, aerr)
}
