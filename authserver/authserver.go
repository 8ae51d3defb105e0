// Package authserver implements the authentication server (AS): the
// Yivi-backed attribute disclosure flow. AS never sees a user's
// polymorphic pseudonym or any PHC-side state; its only output is a set
// of Signed<Attr> values a client presents to PHC's enter endpoint.
package authserver

import (
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/server"
)

// Server is the authentication server's handler set: welcome, auth
// start/complete, and attribute-key derivation. One instance per process.
type Server struct {
	App *server.App
	Log logger.Logger

	// Sources dispatches a disclosure request to its configured provider
	// by name (currently only "yivi"); see attr.Source.
	Sources attr.Registry

	// Catalogue is the published set of attribute types this AS can issue,
	// returned verbatim by WelcomeEP.
	Catalogue []attr.TypeInfo

	// AuthStateSecret seals/opens AuthState between AuthStartEP and
	// AuthCompleteEP.
	AuthStateSecret []byte

	// AttrKeySecret is the HKDF secret AttrKeys derives per-attribute
	// symmetric keys from.
	AttrKeySecret []byte

	// AttrKeyRotationPeriod quantizes the "timestamp" AttrKeys mixes into
	// its HKDF derivation, so that repeated calls within the same period
	// yield the same current key without AS keeping per-attribute state.
	// Defaults to 24h.
	AttrKeyRotationPeriod time.Duration

	// AttrSigningValidity bounds how long a Signed<Attr> remains valid
	// once issued.
	AttrSigningValidity time.Duration

	// AuthStateValidity bounds how long a sealed AuthState may be
	// redeemed via AuthCompleteEP before AS refuses it as stale.
	AuthStateValidity time.Duration

	// Chained holds pending Yivi chained-session handoffs, or nil if
	// chained sessions are disabled for this deployment.
	Chained *ChainedSessionController

	// NextSessionBaseURL is AS's own base URL, used to build the
	// next_session callback a chained Yivi session posts its result to.
	NextSessionBaseURL string
}

const authStatePurpose = "pubhubs-as-auth-state"

func (s *Server) snapshot() (*server.RunningState, *apierr.Error) {
	return s.App.RequireUpAndRunning()
}

func (s *Server) signingKey(snap *server.RunningState) envelope.SigningKey {
	return snap.SigningKey
}

func (s *Server) authStateSealingKey() envelope.SealingKey {
	return envelope.NewSealingKey(s.AuthStateSecret)
}

// YiviNextSessionPath is the path segment the Yivi server posts a chained
// session's disclosure result to; combined with NextSessionBaseURL to
// build the next_session URL embedded in a chained AuthStartResp.
const YiviNextSessionPath = "/.ph/auth/yivi-next-session"
