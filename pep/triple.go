package pep

import (
	"encoding/hex"
	"fmt"
)

// Triple is an ElGamal ciphertext: (ek, ct, pk), where ek = r*B,
// ct = M + r*pk, for plaintext point M and randomness scalar r. pk is
// carried along to allow rerandomization and RSK, but is not authenticated
// -- tampering with it garbles the plaintext recovered under a different
// key, it cannot redirect decryption to an attacker-chosen key that
// produces a *known* plaintext.
type Triple struct {
	EK Point
	CT Point
	PK Point
}

// ToHex returns the 192-digit hex encoding of t: EK, CT, PK concatenated.
func (t Triple) ToHex() string {
	return t.EK.ToHex() + t.CT.ToHex() + t.PK.ToHex()
}

// TripleFromHex parses the 192-digit hex encoding produced by ToHex.
func TripleFromHex(hexstr string) (Triple, error) {
	if len(hexstr) != 192 {
		return Triple{}, fmt.Errorf("pep: triple hex must be 192 digits, got %d", len(hexstr))
	}
	if _, err := hex.DecodeString(hexstr); err != nil {
		return Triple{}, fmt.Errorf("pep: invalid triple hex: %w", err)
	}

	ek, err := PointFromHex(hexstr[0:64])
	if err != nil {
		return Triple{}, fmt.Errorf("pep: invalid ek: %w", err)
	}
	ct, err := PointFromHex(hexstr[64:128])
	if err != nil {
		return Triple{}, fmt.Errorf("pep: invalid ct: %w", err)
	}
	pk, err := PointFromHex(hexstr[128:192])
	if err != nil {
		return Triple{}, fmt.Errorf("pep: invalid pk: %w", err)
	}
	return Triple{EK: ek, CT: ct, PK: pk}, nil
}

// Decrypt decrypts t using sk, regardless of whether t.PK matches sk's
// public key; if it doesn't, the result is an unrecoverable random point.
func (t Triple) Decrypt(sk PrivateKey) Point {
	return t.CT.Sub(Mult(sk.scalar, t.EK))
}

// DecryptAndCheckPK decrypts t using sk, but first checks that t.PK is
// indeed sk's public key, returning ok=false otherwise. This cannot detect
// a tampered PK that happens to verify under a different sk.
func (t Triple) DecryptAndCheckPK(sk PrivateKey) (pt Point, ok bool) {
	if !t.PK.Equal(BaseMult(sk.scalar)) {
		return Point{}, false
	}
	return t.Decrypt(sk), true
}

// Rerandomize changes the appearance of t without altering its plaintext
// or target public key, using a fresh random scalar.
func (t Triple) Rerandomize() Triple {
	return t.RerandomizeWithRandom(RandomScalar())
}

// RerandomizeWithRandom is like Rerandomize but with an explicit scalar;
// only use a fixed r to build deterministic tests.
func (t Triple) RerandomizeWithRandom(r Scalar) Triple {
	return Triple{
		EK: t.EK.Add(BaseMult(r)),
		CT: t.CT.Add(Mult(r, t.PK)),
		PK: t.PK,
	}
}

// RSK ("rerandomize-shuffle-key") simultaneously:
//   - multiplies the encrypted plaintext by s,
//   - multiplies the target public/private key by k,
//   - rerandomizes the ciphertext with a fresh random scalar.
//
// This is the core transform used by the Transcryptor to turn a
// polymorphic pseudonym into a hub-specific encrypted pseudonym:
// the Transcryptor folds its own key's inverse into k alongside the
// hub-specific decryption factor, so the triple ends up targeting
// k_h*x_PHC. PHC then finishes the job with a direct decryption under
// that combined scalar.
func (t Triple) RSK(s, k Scalar) Triple {
	return t.RSKWithRandom(s, k, RandomScalar())
}

// RSKWithRandom is like RSK but with an explicit randomization scalar;
// only use a fixed r to build deterministic tests.
func (t Triple) RSKWithRandom(s, k, r Scalar) Triple {
	kInv := k.Invert()
	sOverK := s.Mul(kInv)
	kpk := Mult(k, t.PK)

	return Triple{
		EK: Mult(sOverK, t.EK).Add(BaseMult(r)),
		CT: Mult(s, t.CT).Add(Mult(r, kpk)),
		PK: kpk,
	}
}
