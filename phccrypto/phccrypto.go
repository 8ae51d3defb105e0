// Package phccrypto implements the small set of scalar derivations that
// PHC and the Transcryptor share but that don't belong inside pep itself:
// combining the two halves of the master encryption key, deriving a hub's
// per-hub pseudonymisation/decryption factors, and blinding a hub's key
// parts against its ticket.
package phccrypto

import "github.com/pubhubs/pubhubs-core/pep"

// CombineMasterEncKeyParts computes the joint master encryption public key
// x_PHC * x_T * B from T's half (as a public key) and PHC's half (as a
// private key). Either server can perform this once it has the other
// half's public contribution; neither learns the other's scalar.
func CombineMasterEncKeyParts(otherHalf pep.PublicKey, ownHalf pep.PrivateKey) pep.PublicKey {
	return ownHalf.Scale(otherHalf)
}

// Hub id context labels, mixed into the hub-specific scalar derivation so
// that the pseudonymisation and decryption factors for the same hub id
// are independent even though they share a secret.
const (
	pseudonymisationLabel = "pseudonym"
	decryptionLabel       = "decryption"
)

// PseudonymisationFactor derives s_h, the scalar the Transcryptor
// multiplies a polymorphic pseudonym's plaintext by when converting it to
// hub id's pseudonym domain.
func PseudonymisationFactor(factorSecret []byte, hubID string) pep.Scalar {
	return pep.DeriveScalar(factorSecret, pseudonymisationLabel+"|"+hubID)
}

// DecryptionFactor derives k_h, the per-hub decryption factor the
// Transcryptor folds into a polymorphic pseudonym's target key (alongside
// the inverse of its own master scalar, which cancels its own
// contribution) when converting it to hub id's decryption domain. PHC
// needs k_h to complete the decryption, so the Transcryptor carries it
// along in the sealed EHPP rather than PHC trying to rederive it.
func DecryptionFactor(factorSecret []byte, hubID string) pep.Scalar {
	return pep.DeriveScalar(factorSecret, decryptionLabel+"|"+hubID)
}

// hubKeyPartBlindingLabel is the purpose string mixed into a hub's key
// part derivation: K = H(ticket_digest, shared_secret,
// "pubhubs-hub-key-part-blinding").
const hubKeyPartBlindingLabel = "pubhubs-hub-key-part-blinding"

// HubKeyPartBlind derives the blinding scalar K a server (PHC or T)
// multiplies into a hub's ticket-bound key part, from the ticket's digest
// and the PHC<->T shared secret. Both servers compute the same K without
// either needing to see the other's half of the master scalar.
func HubKeyPartBlind(ticketDigest []byte, sharedSecret []byte) pep.Scalar {
	combined := make([]byte, 0, len(ticketDigest)+len(sharedSecret))
	combined = append(combined, ticketDigest...)
	combined = append(combined, sharedSecret...)
	return pep.DeriveScalar(combined, hubKeyPartBlindingLabel)
}

// PHCHubKeyPart computes PHC's contribution to a hub's private key:
// K * x_PHC, where K is HubKeyPartBlind's output. The blind is
// applied on PHC's side only: the Transcryptor hands back its own master
// half unblinded (see transcryptor.Server.HubKey), so the hub's combined
// product phc_part * t_part carries exactly one factor of K, not K^2:
// K * x_PHC * x_T.
func PHCHubKeyPart(blind pep.Scalar, ownMasterHalf pep.PrivateKey) pep.Scalar {
	return blind.Mul(ownMasterHalf.AsScalar())
}
