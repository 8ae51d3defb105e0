package pep

// PrivateKey is an ElGamal private key: a single scalar that must never
// leave the owning server's process. AsScalar returns the raw scalar and
// ToHex returns it hex-encoded.
type PrivateKey struct {
	scalar Scalar
}

// NewPrivateKey wraps a Scalar as a PrivateKey. Used when the scalar is
// loaded from configuration (e.g. a server's half of the master key).
func NewPrivateKey(s Scalar) PrivateKey {
	return PrivateKey{scalar: s}
}

// RandomPrivateKey generates a fresh private key.
func RandomPrivateKey() PrivateKey {
	return PrivateKey{scalar: RandomScalar()}
}

// PrivateKeyFromHex decodes a 64-digit hex private key.
func PrivateKeyFromHex(hexstr string) (PrivateKey, error) {
	s, err := ScalarFromHex(hexstr)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{scalar: s}, nil
}

// ToHex returns the 64-digit hex encoding of the private scalar.
func (sk PrivateKey) ToHex() string {
	return sk.scalar.ToHex()
}

// PublicKey returns the public key sk*B corresponding to sk.
func (sk PrivateKey) PublicKey() PublicKey {
	return PublicKey{point: BaseMult(sk.scalar)}
}

// Scale multiplies another public key by this private key's scalar. Used
// by PHC to combine the two halves of the master encryption key:
// combine_master_enc_key_parts(x_T·B, x_PHC) = x_PHC·x_T·B.
func (sk PrivateKey) Scale(pk PublicKey) PublicKey {
	return PublicKey{point: Mult(sk.scalar, pk.point)}
}

// AsScalar exposes the underlying scalar for use in RSK-family derivations
// that must run inside this package's trust boundary (e.g. phccrypto). It
// is deliberately not exported as a generic "Bytes()" accessor.
func (sk PrivateKey) AsScalar() Scalar {
	return sk.scalar
}

// PublicKey is an ElGamal public key: a Ristretto group element.
type PublicKey struct {
	point Point
}

// NewPublicKey wraps a Point as a PublicKey.
func NewPublicKey(p Point) PublicKey {
	return PublicKey{point: p}
}

// PublicKeyFromHex decodes a 64-digit hex public key.
func PublicKeyFromHex(hexstr string) (PublicKey, error) {
	p, err := PointFromHex(hexstr)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{point: p}, nil
}

// ToHex returns the 64-digit hex encoding of the public point.
func (pk PublicKey) ToHex() string {
	return pk.point.ToHex()
}

// Point returns the underlying group element.
func (pk PublicKey) Point() Point {
	return pk.point
}

// Encrypt encrypts plaintext under pk using a fresh random scalar.
func (pk PublicKey) Encrypt(plaintext Point) Triple {
	return pk.EncryptWithRandom(RandomScalar(), plaintext)
}

// EncryptWithRandom encrypts plaintext under pk using the given scalar r.
// Exposed so tests can be made deterministic; production code should use
// Encrypt or EncryptRandom.
func (pk PublicKey) EncryptWithRandom(r Scalar, plaintext Point) Triple {
	return Triple{
		EK: BaseMult(r),
		CT: plaintext.Add(Mult(r, pk.point)),
		PK: pk.point,
	}
}

// EncryptRandom efficiently produces an encryption of a random, unknown
// plaintext under pk: instead of picking a random point and scalar and
// computing the triple, ek and ct are themselves sampled uniformly at
// random, which yields the same distribution more cheaply. Used to
// generate a user's polymorphic pseudonym at registration.
func (pk PublicKey) EncryptRandom() Triple {
	return Triple{
		EK: RandomPoint(),
		CT: RandomPoint(),
		PK: pk.point,
	}
}
