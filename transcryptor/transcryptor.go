// Package transcryptor implements the Transcryptor (T): the server that
// holds x_T, the second half of the master encryption scalar, and converts
// a PHC-rerandomized polymorphic pseudonym into a hub-specific encrypted
// pseudonym package without ever learning the user or the hub it belongs
// to in the same glance. T keeps no per-user state across requests;
// everything it needs travels inside the sealed PPP it receives from PHC.
package transcryptor

import (
	"fmt"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/server"
)

// Server is the Transcryptor's handler set: EHPP conversion and its half
// of hub key delivery. One instance per process.
type Server struct {
	App *server.App
	Log logger.Logger

	// MasterKey is x_T, this server's half of the master encryption
	// scalar; loaded once at startup, never mutated.
	MasterKey pep.PrivateKey

	// EncKey is T's own ElGamal keypair, distinct from MasterKey. Its
	// public half is published in the constellation; its private half
	// anchors the ECDH agreement with PHC.
	EncKey pep.PrivateKey

	// FactorSecret is the server secret the per-hub pseudonymisation and
	// decryption factors s_h/k_h are derived from.
	FactorSecret []byte

	// Sessions holds the small amount of chained-Yivi-session state T
	// keeps: a relay cache of pending chained-session
	// handoffs the authentication server asked T to keep alive across a
	// restart boundary. T never inspects the payload; see session.go.
	Sessions *SessionRelay
}

const (
	pppPurpose  = "pubhubs-phc-to-t-ppp"
	ehppPurpose = "pubhubs-t-to-phc-ehpp"
)

func (s *Server) snapshot() (*server.RunningState, *apierr.Error) {
	return s.App.RequireUpAndRunning()
}

// signingKey returns T's own Signed-envelope signing key.
func (s *Server) signingKey(snap *server.RunningState) envelope.SigningKey {
	return snap.SigningKey
}

// phcSharedSealingKey returns the PHC<->Transcryptor sealing key: the same
// ECDH shared secret PHC computes in phc.tSharedSealingKey, from the other
// side. Both servers land on the same point without exchanging scalars.
func (s *Server) phcSharedSealingKey(snap *server.RunningState) (envelope.SealingKey, error) {
	shared, err := s.phcSharedSecretBytes(snap)
	if err != nil {
		return envelope.SealingKey{}, err
	}
	return envelope.NewSealingKey(shared), nil
}

// phcSharedSecretBytes is the raw ECDH shared secret bytes PHC and T
// derive the PHC<->T sealing key from, agreed over the two servers'
// ElGamal enc keys; T's hub-key response no longer uses it, since only
// PHC applies the ticket-bound blind.
func (s *Server) phcSharedSecretBytes(snap *server.RunningState) ([]byte, error) {
	phcParams, ok := snap.Constellation.ServerByName(constellation.PHC)
	if !ok {
		return nil, fmt.Errorf("transcryptor: no phc in constellation")
	}
	phcEncKey, err := pep.PublicKeyFromHex(phcParams.EncKey)
	if err != nil {
		return nil, fmt.Errorf("transcryptor: decode phc enc key: %w", err)
	}
	shared := s.EncKey.Scale(phcEncKey)
	return shared.Point().Bytes(), nil
}

// defaultEHPPIssuanceWindow is a five-minute EHPP issuance window. Nothing
// reads it: neither the Transcryptor nor PHC checks an EHPP's IssuedAt.
const defaultEHPPIssuanceWindow = 5 * time.Minute
