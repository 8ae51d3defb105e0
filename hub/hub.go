// Package hub implements a PubHubs hub's entry protocol: bootstrapping a
// hub-specific private key from PHC and the Transcryptor, handing out an
// entry nonce, and turning the hashed hub pseudonym PHC eventually hands
// back into a local user identifier and access token. A hub is not
// a constellation member -- it sits outside the PHC/Transcryptor/
// authserver trust circle -- so it carries no server.App lifecycle of its
// own; it simply acts as a client of PHC and the Transcryptor.
package hub

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/pep"
)

// hubStatePurpose binds the Sealed[HubState] a hub hands a client at
// EnterStart and expects back unchanged at EnterComplete.
const hubStatePurpose = "pubhubs-hub-state"

// hhppPurpose mirrors phc's own (unexported) hhppPurpose constant: a hub
// and PHC must derive the same Sealed purpose label for the HHPP a hub
// receives, or Open will reject it as a purpose mismatch. Keep this in
// sync with phc/phc.go's hhppPurpose.
const hhppPurpose = "pubhubs-phc-to-hub-hhpp"

const defaultAccessTokenValidity = 24 * time.Hour
const defaultHHPPFreshnessLimit = 5 * time.Minute

// Server is a hub's own handler set.
type Server struct {
	Log logger.Logger

	// Handle is this hub's own base URL, as PHC knows it.
	Handle string

	// SigningKey is this hub's Ed25519 identity: it signs ticket and key
	// requests to PHC/T, and the hub access tokens it issues on
	// EnterComplete.
	SigningKey envelope.SigningKey
	// VerifyingKeyHex is the hex encoding of SigningKey's public half,
	// published at this hub's own `/` info endpoint so PHC can confirm a
	// ticket request came from the key the hub actually advertises.
	VerifyingKeyHex string

	// PHCURL and TranscryptorURL locate the two servers a hub bootstraps
	// its key from and exchanges entry traffic with.
	PHCURL          string
	TranscryptorURL string

	// HubStateSealingKey seals the per-attempt HubState returned to the
	// client by EnterStart.
	HubStateSealingKey envelope.SealingKey

	// HubSealingKey opens the Sealed[HashedHubPseudonymPackage] PHC seals
	// for this hub, keyed to the ticket digest of the hub's most recent
	// Bootstrap call.
	HubSealingKey envelope.SealingKey

	// PrivateScalar is this hub's own derived private key, K * x_PHC *
	// x_T, combined from the PHC and Transcryptor key parts obtained by
	// Bootstrap. The entry protocol itself doesn't consume it
	// directly; it exists for a hub to derive further symmetric secrets
	// of its own (e.g. at-rest encryption for hub-local state) without
	// needing an independent keypair.
	PrivateScalar pep.Scalar

	AccessTokenValidity time.Duration
	HHPPFreshnessLimit  time.Duration

	HTTPClient *http.Client
}

// NewServer builds a Server identity from an Ed25519 keypair and the
// hub's advertised base URL.
func NewServer(log logger.Logger, handle string, priv ed25519.PrivateKey) *Server {
	pub, _ := priv.Public().(ed25519.PublicKey)
	return &Server{
		Log:             log,
		Handle:          handle,
		SigningKey:      envelope.NewSigningKey(priv),
		VerifyingKeyHex: hex.EncodeToString(pub),
	}
}

func (s *Server) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

func (s *Server) accessTokenValidity() time.Duration {
	if s.AccessTokenValidity > 0 {
		return s.AccessTokenValidity
	}
	return defaultAccessTokenValidity
}

func (s *Server) hhppFreshnessLimit() time.Duration {
	if s.HHPPFreshnessLimit > 0 {
		return s.HHPPFreshnessLimit
	}
	return defaultHHPPFreshnessLimit
}

// Info is the shape a hub publishes at its own `/` endpoint; matches
// phc.HubInfo field for field, since PHC decodes a hub's response
// directly into that type when validating a ticket request.
type Info struct {
	Handle       string `json:"handle"`
	VerifyingKey string `json:"verifying_key"`
}

// Info returns this hub's own published info.
func (s *Server) Info() Info {
	return Info{Handle: s.Handle, VerifyingKey: s.VerifyingKeyHex}
}
