// Package pep implements the polymorphic-encryption primitives (PEP) that
// underlie PubHubs pseudonymisation: ElGamal triples over the Ristretto
// group and the rerandomize-shuffle-key (RSK) transform used to convert a
// polymorphic pseudonym into a hub-specific one without ever decrypting it.
//
// All group arithmetic goes through github.com/gtank/ristretto255, a
// constant-time Ristretto implementation.
package pep

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	ristretto "github.com/gtank/ristretto255"
)

// Scalar is an integer modulo the Ristretto group order.
type Scalar struct {
	s ristretto.Scalar
}

// RandomScalar returns a uniformly random scalar.
func RandomScalar() Scalar {
	var buf [64]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic("pep: could not read entropy: " + err.Error())
	}
	var sc Scalar
	sc.s.FromUniformBytes(buf[:])
	return sc
}

// ScalarFromHex decodes the 64-digit hex representation of a scalar.
// Returns an error if hexstr is not 64 hex digits or does not encode a
// canonically reduced scalar.
func ScalarFromHex(hexstr string) (Scalar, error) {
	buf, err := hex.DecodeString(hexstr)
	if err != nil {
		return Scalar{}, fmt.Errorf("pep: invalid scalar hex: %w", err)
	}
	var sc Scalar
	if err := sc.s.Decode(buf); err != nil {
		return Scalar{}, fmt.Errorf("pep: invalid scalar encoding: %w", err)
	}
	return sc, nil
}

// ToHex returns the 64-digit lower-case hex encoding of s.
func (s Scalar) ToHex() string {
	return hex.EncodeToString(s.s.Encode(nil))
}

// Add returns a + b.
func (a Scalar) Add(b Scalar) Scalar {
	var out Scalar
	out.s.Add(&a.s, &b.s)
	return out
}

// Sub returns a - b.
func (a Scalar) Sub(b Scalar) Scalar {
	var out Scalar
	out.s.Subtract(&a.s, &b.s)
	return out
}

// Mul returns a * b.
func (a Scalar) Mul(b Scalar) Scalar {
	var out Scalar
	out.s.Multiply(&a.s, &b.s)
	return out
}

// Invert returns 1/a. Panics if a is zero.
func (a Scalar) Invert() Scalar {
	var out Scalar
	out.s.Invert(&a.s)
	return out
}

// Equal reports whether a and b encode the same scalar, in constant time.
func (a Scalar) Equal(b Scalar) bool {
	return subtle.ConstantTimeCompare(a.s.Encode(nil), b.s.Encode(nil)) == 1
}

func (a Scalar) inner() *ristretto.Scalar { return &a.s }
