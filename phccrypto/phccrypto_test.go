package phccrypto

import (
	"testing"

	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/stretchr/testify/require"
)

func TestCombineMasterEncKeyParts(t *testing.T) {
	xPHC := pep.RandomPrivateKey()
	xT := pep.RandomPrivateKey()

	combined := CombineMasterEncKeyParts(xT.PublicKey(), xPHC)

	want := pep.BaseMult(xPHC.AsScalar().Mul(xT.AsScalar()))
	require.True(t, want.Equal(combined.Point()))
}

func TestHubFactorsAreDeterministicAndDistinct(t *testing.T) {
	secret := []byte("is also called server secret")
	hubID := "936da01f-9abd-4d9d-80c7-02af85c822a8"

	s1 := PseudonymisationFactor(secret, hubID)
	s2 := PseudonymisationFactor(secret, hubID)
	k := DecryptionFactor(secret, hubID)

	require.True(t, s1.Equal(s2))
	require.False(t, s1.Equal(k))
}

func TestHubFactorsDifferAcrossHubs(t *testing.T) {
	secret := []byte("is also called server secret")

	s1 := PseudonymisationFactor(secret, "hub-one")
	s2 := PseudonymisationFactor(secret, "hub-two")

	require.False(t, s1.Equal(s2))
}

func TestHubKeyPartIdentity(t *testing.T) {
	xPHC := pep.RandomPrivateKey()
	xT := pep.RandomPrivateKey()
	sharedSecret := []byte("phc-t-shared-secret")
	ticketDigest := []byte("deadbeef-ticket-digest")

	blind := HubKeyPartBlind(ticketDigest, sharedSecret)

	// Only PHC's part carries the blind; T hands back its master half
	// unblinded (transcryptor.Server.HubKey), so the product carries
	// exactly one factor of K, not K^2.
	phcPart := PHCHubKeyPart(blind, xPHC)
	tPart := xT.AsScalar()

	// phc_part * t_part == K * x_PHC * x_T
	got := phcPart.Mul(tPart)
	want := blind.Mul(xPHC.AsScalar()).Mul(xT.AsScalar())

	require.True(t, got.Equal(want))
}

func TestHubKeyPartBlindDeterministic(t *testing.T) {
	digest := []byte("same-ticket")
	secret := []byte("same-secret")

	a := HubKeyPartBlind(digest, secret)
	b := HubKeyPartBlind(digest, secret)

	require.True(t, a.Equal(b))
}
