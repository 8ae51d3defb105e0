// HTTP wiring for a hub's own endpoints: the `/` info endpoint PHC
// fetches when validating a ticket request, and the two entry endpoints
// a client drives. The protocol logic lives in enterstart.go and
// entercomplete.go.
package hub

import (
	"encoding/json"
	"net/http"

	"github.com/pubhubs/pubhubs-core/apierr"
)

// Mux builds the http.ServeMux serving this hub's endpoints.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/.ph/enter-start", s.handleEnterStart)
	mux.HandleFunc("/.ph/enter-complete", s.handleEnterComplete)
	mux.HandleFunc("/", s.handleInfo)
	return mux
}

// handleInfo publishes the hub's handle and current verifying key as
// plain JSON (not an apierr envelope): PHC decodes this body directly
// when confirming a ticket request's signing key.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Info())
}

func (s *Server) handleEnterStart(w http.ResponseWriter, r *http.Request) {
	var req EnterStartReq
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*EnterStartResp](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	resp, err := s.EnterStart(r.Context(), req.RequestedRoom)
	if err != nil {
		apierr.WriteResp[*EnterStartResp](w, nil, apierr.New(apierr.InternalError, "%s", err))
		return
	}
	apierr.WriteResp(w, resp, nil)
}

func (s *Server) handleEnterComplete(w http.ResponseWriter, r *http.Request) {
	var req EnterCompleteReq
	if err := apierr.DecodeRequest(r, &req); err != nil {
		apierr.WriteResp[*EnterCompleteResp](w, nil, apierr.New(apierr.BadRequest, "malformed request body"))
		return
	}
	resp, err := s.EnterComplete(r.Context(), req)
	if err != nil {
		apierr.WriteResp[*EnterCompleteResp](w, nil, apierr.New(apierr.BadRequest, "%s", err))
		return
	}
	apierr.WriteResp(w, resp, nil)
}
