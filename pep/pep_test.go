package pep

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sk := RandomPrivateKey()
	pk := sk.PublicKey()
	M := RandomPoint()

	ct := pk.Encrypt(M)
	got := ct.Decrypt(sk)

	require.True(t, M.Equal(got))
}

func TestRerandomizePreservesPlaintext(t *testing.T) {
	sk := RandomPrivateKey()
	pk := sk.PublicKey()
	M := RandomPoint()

	ct := pk.Encrypt(M).Rerandomize()
	got := ct.Decrypt(sk)

	require.True(t, M.Equal(got))
}

func TestRerandomizeWithRandomMatchesEncryptWithSummedRandom(t *testing.T) {
	sk := RandomPrivateKey()
	pk := sk.PublicKey()
	M := RandomPoint()

	r1 := RandomScalar()
	r2 := RandomScalar()

	a := pk.EncryptWithRandom(r1, M).RerandomizeWithRandom(r2)
	b := pk.EncryptWithRandom(r1.Add(r2), M)

	require.True(t, a.EK.Equal(b.EK))
	require.True(t, a.CT.Equal(b.CT))
	require.True(t, a.PK.Equal(b.PK))
}

func TestRSKCorrectness(t *testing.T) {
	sk := RandomPrivateKey()
	pk := sk.PublicKey()
	M := RandomPoint()

	s := RandomScalar()
	k := RandomScalar()

	ct := pk.Encrypt(M).RSK(s, k)

	// The RSK'd triple targets the key k*sk.
	targetSK := NewPrivateKey(k.Mul(sk.AsScalar()))
	got := ct.Decrypt(targetSK)

	want := Mult(s, M)
	require.True(t, want.Equal(got))
}

func TestDecryptAndCheckPKRejectsSpoofedKey(t *testing.T) {
	sk := RandomPrivateKey()
	sk2 := RandomPrivateKey()
	pk := sk.PublicKey()
	M := RandomPoint()

	ct := pk.Encrypt(M)
	// Spoof the carried public key to a different one.
	ct.PK = sk2.PublicKey().Point()

	_, ok := ct.DecryptAndCheckPK(sk)
	require.False(t, ok, "spoofed pk must not verify against the wrong private key")
}

func TestTripleHexRoundTrip(t *testing.T) {
	sk := RandomPrivateKey()
	pk := sk.PublicKey()
	ct := pk.Encrypt(RandomPoint())

	hexStr := ct.ToHex()
	require.Len(t, hexStr, 192)

	got, err := TripleFromHex(hexStr)
	require.NoError(t, err)
	require.True(t, ct.EK.Equal(got.EK))
	require.True(t, ct.CT.Equal(got.CT))
	require.True(t, ct.PK.Equal(got.PK))
}

func TestTripleFromHexRejectsWrongLength(t *testing.T) {
	_, err := TripleFromHex("deadbeef")
	require.Error(t, err)
}

func TestScalarHexRoundTrip(t *testing.T) {
	s := RandomScalar()
	got, err := ScalarFromHex(s.ToHex())
	require.NoError(t, err)
	require.True(t, s.Equal(got))
}

func TestCombineMasterKeyParts(t *testing.T) {
	xPHC := RandomPrivateKey()
	xT := RandomPrivateKey()

	// x_T * B
	tPart := xT.PublicKey()
	// x_PHC * (x_T * B) == x_PHC * x_T * B
	combined := xPHC.Scale(tPart)

	want := BaseMult(xPHC.AsScalar().Mul(xT.AsScalar()))
	require.True(t, want.Equal(combined.Point()))
}

func TestHashToPointIsDeterministicAndOneWayLooking(t *testing.T) {
	p := RandomPoint()
	h1 := HashToPoint(p.Bytes())
	h2 := HashToPoint(p.Bytes())
	require.True(t, h1.Equal(h2))
	require.False(t, h1.Equal(p))
}

func TestDeriveScalarDeterministic(t *testing.T) {
	secret := []byte("is also called server secret")
	a := DeriveScalar(secret, "pseudonym")
	b := DeriveScalar(secret, "pseudonym")
	c := DeriveScalar(secret, "decryption")

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}
