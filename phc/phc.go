package phc

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
	"github.com/pubhubs/pubhubs-core/server"
)

// Server is PHC's handler set: the user registry, hub ticket issuer, and
// the PPP/HHPP conversion endpoints. One Server instance per process; its
// App tracks the Discovery/UpAndRunning/Restarting lifecycle.
type Server struct {
	App   *server.App
	Store storage.Store
	Log   logger.Logger

	// MasterKey is x_PHC, this server's half of the master encryption
	// scalar; loaded once at startup, never mutated.
	MasterKey pep.PrivateKey

	// EncKey is PHC's own ElGamal keypair, distinct from MasterKey. Its
	// public half is published in the constellation; its private half
	// anchors the ECDH agreement with the Transcryptor.
	EncKey pep.PrivateKey

	// AttrSecret is PHC's secret for computing attr_id = H(secret,
	// attr_type_id, value).
	AttrSecret []byte

	// PPNonceKey seals/opens PpNonce.
	PPNonceKey envelope.SealingKey

	// HubSealSecret is mixed with a hub's ticket digest to derive the
	// hub<->PHC sealing key HHPP is sealed under.
	HubSealSecret []byte

	// AdminVerifyingKey authenticates POST /.ph/admin/config requests.
	AdminVerifyingKey envelope.VerifyingKey

	// ConfigPatcher applies an authenticated admin config patch and
	// triggers the owning process's config rebuild + restart; nil until
	// cmd/phc wires it at startup.
	ConfigPatcher ConfigPatcher

	// AuthTokenValidity bounds how long an issued AuthToken remains
	// usable before the user must enter again.
	AuthTokenValidity time.Duration

	// PPNonceValidity bounds how long a PpNonce remains acceptable to
	// redeem via HHPP.
	PPNonceValidity time.Duration

	// HHPPFreshnessLimit holds the configured freshness limit for
	// polymorphic pseudonyms. HHPP does not consult it; the only time
	// bound HHPP applies is the PpNonce's NotValidAfter.
	HHPPFreshnessLimit time.Duration

	// TicketValidity bounds how long an issued hub ticket remains usable
	// for key retrieval.
	TicketValidity time.Duration

	// HTTPClient fetches a hub's own `/` info endpoint when validating a
	// ticket request; defaults to http.DefaultClient if nil.
	HTTPClient *http.Client
}

const (
	ppPurpose   = "pubhubs-pp-nonce"
	pppPurpose  = "pubhubs-phc-to-t-ppp"
	ehppPurpose = "pubhubs-t-to-phc-ehpp"
	hhppPurpose = "pubhubs-phc-to-hub-hhpp"
)

func (s *Server) snapshot() (*server.RunningState, *apierr.Error) {
	return s.App.RequireUpAndRunning()
}

// signingKey returns PHC's own Signed-envelope signing key.
func (s *Server) signingKey(snap *server.RunningState) envelope.SigningKey {
	return snap.SigningKey
}

// asVerifyingKey returns the authentication server's Signed-envelope
// verifying key, as published in the current constellation.
func (s *Server) asVerifyingKey(snap *server.RunningState) (envelope.VerifyingKey, error) {
	vk, ok := snap.PeerVerifyingKeys[constellation.AuthServer]
	if !ok {
		return envelope.VerifyingKey{}, fmt.Errorf("phc: no verifying key for authserver in constellation")
	}
	return vk, nil
}

// tSharedSealingKey returns the PHC<->Transcryptor sealing key, derived
// as an ECDH shared secret over the two servers' ElGamal enc keys:
// e_PHC * (e_T * B) == e_T * (e_PHC * B). Both servers compute the same
// point without either learning the other's scalar, and the point never
// appears in the constellation (unlike the master key parts, which are
// published).
func (s *Server) tSharedSealingKey(snap *server.RunningState) (envelope.SealingKey, error) {
	shared, err := s.tSharedSecretBytes(snap)
	if err != nil {
		return envelope.SealingKey{}, err
	}
	return envelope.NewSealingKey(shared), nil
}

// tSharedSecretBytes returns the raw ECDH shared secret bytes PHC and the
// Transcryptor agree on, used both to derive tSharedSealingKey and as the
// shared_secret input to phccrypto.HubKeyPartBlind.
func (s *Server) tSharedSecretBytes(snap *server.RunningState) ([]byte, error) {
	tParams, ok := snap.Constellation.ServerByName(constellation.Transcryptor)
	if !ok {
		return nil, fmt.Errorf("phc: no transcryptor in constellation")
	}
	tEncKey, err := pep.PublicKeyFromHex(tParams.EncKey)
	if err != nil {
		return nil, fmt.Errorf("phc: decode transcryptor enc key: %w", err)
	}
	shared := s.EncKey.Scale(tEncKey)
	return shared.Point().Bytes(), nil
}

// hubSealingKey derives the hub<->PHC sealing key for a given ticket from
// the ticket's digest and PHC's HubSealSecret. The hub does not derive it
// itself: HubTicket hands it to the hub in TicketResp.HubSealingKey.
func (s *Server) hubSealingKey(ticketDigest []byte) envelope.SealingKey {
	material := make([]byte, 0, len(ticketDigest)+len(s.HubSealSecret))
	material = append(material, ticketDigest...)
	material = append(material, s.HubSealSecret...)
	return envelope.NewSealingKey(material)
}

func (s *Server) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

// globalPublicKey returns the combined master encryption public key
// x_PHC * x_T * B, used to issue fresh polymorphic pseudonyms at user
// registration. It is read from the constellation, where PHC stored it
// at assembly time.
func (s *Server) globalPublicKey(snap *server.RunningState) (pep.PublicKey, error) {
	pk, err := pep.PublicKeyFromHex(snap.Constellation.MasterEncKey)
	if err != nil {
		return pep.PublicKey{}, fmt.Errorf("phc: decode constellation master enc key: %w", err)
	}
	return pk, nil
}
