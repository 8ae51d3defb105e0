package phc

import "crypto/sha256"

// TicketDigest computes the deterministic digest of a compact
// Signed[TicketContent] token, used as the input to HubKeyPartBlind.
// Ed25519 signing is deterministic, so identical ticket content
// signed by the same key always yields the same raw token and therefore
// the same digest.
func TicketDigest(rawTicket string) []byte {
	sum := sha256.Sum256([]byte(rawTicket))
	return sum[:]
}
