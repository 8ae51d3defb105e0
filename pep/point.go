package pep

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	ristretto "github.com/gtank/ristretto255"
)

// Point is an element of the Ristretto group.
type Point struct {
	p ristretto.Element
}

// BaseMult returns s*B, where B is the fixed Ristretto generator.
func BaseMult(s Scalar) Point {
	var out Point
	out.p.ScalarBaseMult(s.inner())
	return out
}

// Mult returns s*p.
func Mult(s Scalar, p Point) Point {
	var out Point
	out.p.ScalarMult(s.inner(), &p.p)
	return out
}

// RandomPoint returns a uniformly random group element, mainly useful for
// tests and for PublicKey.EncryptRandom.
func RandomPoint() Point {
	var buf [64]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic("pep: could not read entropy: " + err.Error())
	}
	var pt Point
	pt.p.FromUniformBytes(buf[:])
	return pt
}

// HashToPoint deterministically maps arbitrary bytes onto the Ristretto
// group using the Elligator2 map backing Element.FromUniformBytes. This is
// used as a one-way quantum-hardening step: a point derived
// this way cannot be inverted back to the bytes that produced it, even by
// an adversary with a quantum computer capable of breaking discrete log.
func HashToPoint(data []byte) Point {
	h := sha512Sum(data)
	var pt Point
	pt.p.FromUniformBytes(h[:])
	return pt
}

// PointFromHex decodes the 64-digit hex representation of a Point.
func PointFromHex(hexstr string) (Point, error) {
	buf, err := hex.DecodeString(hexstr)
	if err != nil {
		return Point{}, fmt.Errorf("pep: invalid point hex: %w", err)
	}
	var pt Point
	if err := pt.p.Decode(buf); err != nil {
		return Point{}, fmt.Errorf("pep: invalid point encoding: %w", err)
	}
	return pt, nil
}

// ToHex returns the 64-digit lower-case hex encoding of p.
func (p Point) ToHex() string {
	return hex.EncodeToString(p.p.Encode(nil))
}

// Bytes returns the 32-byte compressed encoding of p.
func (p Point) Bytes() []byte {
	return p.p.Encode(nil)
}

// Add returns a + b.
func (a Point) Add(b Point) Point {
	var out Point
	out.p.Add(&a.p, &b.p)
	return out
}

// Sub returns a - b.
func (a Point) Sub(b Point) Point {
	var out Point
	out.p.Subtract(&a.p, &b.p)
	return out
}

// Equal reports whether a and b encode the same point, in constant time.
func (a Point) Equal(b Point) bool {
	return subtle.ConstantTimeCompare(a.p.Encode(nil), b.p.Encode(nil)) == 1
}
