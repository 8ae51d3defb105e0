package pep

import "golang.org/x/crypto/sha3"

// sha512Sum hashes data with SHA3-512, matching the hash function used by
// the Ristretto OPRF construction this package's HashToPoint is modeled on.
func sha512Sum(data []byte) [64]byte {
	return sha3.Sum512(data)
}

// DeriveScalar deterministically derives a scalar from a secret and a
// purpose label, by hashing secret || label with SHA3-512 and mapping the
// digest onto the scalar field. Used for the per-hub factors s_h, k_h
// and for ticket-key-part blinding.
func DeriveScalar(secret []byte, label string) Scalar {
	h := sha3.New512()
	h.Write(secret)
	h.Write([]byte(label))
	digest := h.Sum(nil)

	var sc Scalar
	sc.s.FromUniformBytes(digest)
	return sc
}
