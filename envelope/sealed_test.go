package envelope

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type hubKeyPart struct {
	Hex string `json:"hex"`
}

func randomSealingKey(t *testing.T) SealingKey {
	t.Helper()
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	return NewSealingKey(secret)
}

func TestSealedRoundTrip(t *testing.T) {
	key := randomSealingKey(t)
	msg := hubKeyPart{Hex: "deadbeef"}

	sealed, err := Seal(key, "hub-key-part", msg)
	require.NoError(t, err)

	got, err := sealed.Open(key, "hub-key-part")
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestSealedRejectsWrongPurpose(t *testing.T) {
	key := randomSealingKey(t)
	sealed, err := Seal(key, "hub-key-part", hubKeyPart{Hex: "deadbeef"})
	require.NoError(t, err)

	_, err = sealed.Open(key, "ticket")
	require.Error(t, err)
}

func TestSealedRejectsWrongKey(t *testing.T) {
	key := randomSealingKey(t)
	other := randomSealingKey(t)

	sealed, err := Seal(key, "hub-key-part", hubKeyPart{Hex: "deadbeef"})
	require.NoError(t, err)

	_, err = sealed.Open(other, "hub-key-part")
	require.Error(t, err)
}

func TestSealedBytesRoundTrip(t *testing.T) {
	key := randomSealingKey(t)
	sealed, err := Seal(key, "hub-key-part", hubKeyPart{Hex: "deadbeef"})
	require.NoError(t, err)

	data := sealed.Bytes()
	parsed, err := SealedFromBytes[hubKeyPart](data)
	require.NoError(t, err)

	got, err := parsed.Open(key, "hub-key-part")
	require.NoError(t, err)
	require.Equal(t, hubKeyPart{Hex: "deadbeef"}, got)
}

func TestSealedRejectsBitFlippedCiphertext(t *testing.T) {
	key := randomSealingKey(t)
	sealed, err := Seal(key, "hub-key-part", hubKeyPart{Hex: "deadbeef"})
	require.NoError(t, err)

	sealed.ct[0] ^= 0xFF

	_, err = sealed.Open(key, "hub-key-part")
	require.Error(t, err)
}
