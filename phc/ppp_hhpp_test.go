package phc

import (
	"context"
	"testing"
	"time"

	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/phccrypto"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
	"github.com/stretchr/testify/require"
)

// registerUserForTest runs a minimal Enter to get a bearer token and the
// harness's own stored user, without going through attr plumbing twice.
func registerUserForTest(t *testing.T, h *testHarness) (bearer string, user *storage.User) {
	t.Helper()
	idAttr := attr.Attr{AttrTypeID: "email", Value: "pppuser@example.com", Identifying: true}
	result, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, idAttr)}}, time.Hour)
	require.Nil(t, aerr)
	u, err := h.Server.Store.Users().GetUser(context.Background(), result.Response.UserState.ID)
	require.NoError(t, err)
	return result.Response.AuthTokenPackage.AuthToken, u
}

func TestPPPRerandomizesStoredPseudonym(t *testing.T) {
	h := newTestHarness(t)
	bearer, user := registerUserForTest(t, h)

	resp, aerr := h.Server.PPP(context.Background(), bearer)
	require.Nil(t, aerr)
	require.NotEmpty(t, resp.SealedPPP)

	tKey := testTSharedSealingKey(t, h)
	sealed, err := envelope.SealedFromBytes[PolymorphicPseudonymPackage](resp.SealedPPP)
	require.NoError(t, err)
	ppp, err := sealed.Open(tKey, pppPurpose)
	require.NoError(t, err)

	require.NotEqual(t, user.PolymorphicPseudonym, ppp.PolymorphicPseudonym)

	original, err := pep.TripleFromHex(user.PolymorphicPseudonym)
	require.NoError(t, err)
	rerand, err := pep.TripleFromHex(ppp.PolymorphicPseudonym)
	require.NoError(t, err)

	// Rerandomizing changes the ciphertext's appearance but never its
	// plaintext: decrypting both under the combined master scalar must
	// recover the same point.
	combined := pep.NewPrivateKey(h.MasterPH.AsScalar().Mul(h.MasterT.AsScalar()))
	require.True(t, original.Decrypt(combined).Equal(rerand.Decrypt(combined)))
}

// testTSharedSealingKey mirrors Server.tSharedSealingKey from the
// Transcryptor's side of the ECDH agreement: T's own enc scalar against
// PHC's published enc key.
func testTSharedSealingKey(t *testing.T, h *testHarness) envelope.SealingKey {
	t.Helper()
	shared := h.EncT.Scale(h.Server.EncKey.PublicKey())
	return envelope.NewSealingKey(shared.Point().Bytes())
}

// buildEHPPFor simulates the Transcryptor's EHPP conversion against a
// sealed PPP PHC produced, so HHPP can be exercised without a live
// transcryptor.Server.
func buildEHPPFor(t *testing.T, h *testHarness, hubID string, sealedPPP []byte) []byte {
	t.Helper()
	tKey := testTSharedSealingKey(t, h)

	sealed, err := envelope.SealedFromBytes[PolymorphicPseudonymPackage](sealedPPP)
	require.NoError(t, err)
	ppp, err := sealed.Open(tKey, pppPurpose)
	require.NoError(t, err)

	pp, err := pep.TripleFromHex(ppp.PolymorphicPseudonym)
	require.NoError(t, err)

	factorSecret := []byte("transcryptor-factor-secret")
	sH := phccrypto.PseudonymisationFactor(factorSecret, hubID)
	kH := phccrypto.DecryptionFactor(factorSecret, hubID)
	k := h.MasterT.AsScalar().Invert().Mul(kH)
	converted := pp.RSK(sH, k)

	ehpp := EncryptedHubPseudonymPackage{
		EncryptedHubPseudonym: converted.ToHex(),
		HubNonce:              "hub-nonce-1",
		PHCNonce:              ppp.Nonce,
		IssuedAt:              time.Now(),
		HubDecryptionFactor:   kH.ToHex(),
	}
	sealedEHPP, err := envelope.Seal(tKey, ehppPurpose, ehpp)
	require.NoError(t, err)
	return sealedEHPP.Bytes()
}

func TestHHPPProducesStableHashedPseudonymPerHub(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)

	pppResp, aerr := h.Server.PPP(context.Background(), bearer)
	require.Nil(t, aerr)
	sealedEHPP := buildEHPPFor(t, h, "hub-one", pppResp.SealedPPP)

	// hubTicketDigest looks up the ticket PHC issued for the hub; fake one
	// directly in the store since HubTicket is exercised separately.
	issueFakeTicket(t, h, "hub-one")

	result, aerr := h.Server.HHPP(context.Background(), bearer, HHPPRequest{SealedEHPP: sealedEHPP, HubID: "hub-one"})
	require.Nil(t, aerr)
	require.False(t, result.RetryWithNewPpp)
	require.NotEmpty(t, result.SealedHHPP)
}

func TestHHPPRetriesOnExpiredNonce(t *testing.T) {
	h := newTestHarness(t)
	h.Server.PPNonceValidity = time.Millisecond
	bearer, _ := registerUserForTest(t, h)

	pppResp, aerr := h.Server.PPP(context.Background(), bearer)
	require.Nil(t, aerr)
	time.Sleep(5 * time.Millisecond)

	sealedEHPP := buildEHPPFor(t, h, "hub-one", pppResp.SealedPPP)
	issueFakeTicket(t, h, "hub-one")

	result, aerr := h.Server.HHPP(context.Background(), bearer, HHPPRequest{SealedEHPP: sealedEHPP, HubID: "hub-one"})
	require.Nil(t, aerr)
	require.True(t, result.RetryWithNewPpp)
}

func TestHHPPRejectsMalformedEHPP(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)
	issueFakeTicket(t, h, "hub-one")

	_, aerr := h.Server.HHPP(context.Background(), bearer, HHPPRequest{SealedEHPP: []byte("garbage"), HubID: "hub-one"})
	require.NotNil(t, aerr)
}

// openHashedHubPseudonym unseals a HHPPResult with the same ticket-derived
// key phc.HHPP used to produce it, mirroring what the hub does.
func openHashedHubPseudonym(t *testing.T, h *testHarness, hubID string, result *HHPPResult) string {
	t.Helper()
	digest := TicketDigest("fake-raw-ticket-" + hubID)
	sealed, err := envelope.SealedFromBytes[HashedHubPseudonymPackage](result.SealedHHPP)
	require.NoError(t, err)
	hhpp, err := sealed.Open(h.Server.hubSealingKey(digest), hhppPurpose)
	require.NoError(t, err)
	return hhpp.HashedHubPseudonym
}

// enterHub drives PPP->EHPP->HHPP for an already-registered user against a
// given hub, returning the hub's stable per-user identifier.
func enterHub(t *testing.T, h *testHarness, bearer, hubID string) string {
	t.Helper()
	issueFakeTicket(t, h, hubID)
	pppResp, aerr := h.Server.PPP(context.Background(), bearer)
	require.Nil(t, aerr)
	sealedEHPP := buildEHPPFor(t, h, hubID, pppResp.SealedPPP)
	result, aerr := h.Server.HHPP(context.Background(), bearer, HHPPRequest{SealedEHPP: sealedEHPP, HubID: id.HubID(hubID)})
	require.Nil(t, aerr)
	require.False(t, result.RetryWithNewPpp)
	return openHashedHubPseudonym(t, h, hubID, result)
}

// TestHashedHubPseudonymIsStablePerUserAndHub checks that repeated
// PPP->EHPP->HHPP runs for the same (user, hub) pair always yield the
// same hashed_hub_pseudonym, despite PPP rerandomizing the ciphertext on
// every call.
func TestHashedHubPseudonymIsStablePerUserAndHub(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)

	first := enterHub(t, h, bearer, "hub-one")
	second := enterHub(t, h, bearer, "hub-one")

	require.Equal(t, first, second)
}

// TestHashedHubPseudonymIsUnlinkableAcrossUsersAndHubs checks that two
// users entering the same hub get different pseudonyms, and one user
// entering two different hubs gets different pseudonyms at each.
func TestHashedHubPseudonymIsUnlinkableAcrossUsersAndHubs(t *testing.T) {
	h := newTestHarness(t)
	bearer1, _ := registerUserForTest(t, h)

	idAttr2 := attr.Attr{AttrTypeID: "email", Value: "otheruser@example.com", Identifying: true}
	result2, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, idAttr2)}}, time.Hour)
	require.Nil(t, aerr)
	bearer2 := result2.Response.AuthTokenPackage.AuthToken

	u1AtHub1 := enterHub(t, h, bearer1, "hub-one")
	u1AtHub2 := enterHub(t, h, bearer1, "hub-two")
	u2AtHub1 := enterHub(t, h, bearer2, "hub-one")

	require.NotEqual(t, u1AtHub1, u1AtHub2, "same user must get different pseudonyms at different hubs")
	require.NotEqual(t, u1AtHub1, u2AtHub1, "different users must get different pseudonyms at the same hub")
}

// TestRotatedHubSealSecretInvalidatesOldKey checks that once PHC's hub
// seal secret is rotated (e.g. via an admin config change), a hub still
// holding the sealing key from its pre-rotation ticket can no longer
// open freshly issued HHPPs.
func TestRotatedHubSealSecretInvalidatesOldKey(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)
	issueFakeTicket(t, h, "hub-one")

	digest := TicketDigest("fake-raw-ticket-hub-one")
	oldKey := h.Server.hubSealingKey(digest)

	pppResp, aerr := h.Server.PPP(context.Background(), bearer)
	require.Nil(t, aerr)
	sealedEHPP := buildEHPPFor(t, h, "hub-one", pppResp.SealedPPP)

	h.Server.HubSealSecret = []byte("rotated-hub-seal-secret")

	result, aerr := h.Server.HHPP(context.Background(), bearer, HHPPRequest{SealedEHPP: sealedEHPP, HubID: "hub-one"})
	require.Nil(t, aerr)
	require.False(t, result.RetryWithNewPpp)

	sealed, err := envelope.SealedFromBytes[HashedHubPseudonymPackage](result.SealedHHPP)
	require.NoError(t, err)
	_, err = sealed.Open(oldKey, hhppPurpose)
	require.Error(t, err)
}

// TestSubmittedPolymorphicPseudonymDiffersAcrossSessions checks that the
// raw PP' PHC hands to T differs between sessions for the same user,
// even though it decrypts to the same plaintext point.
func TestSubmittedPolymorphicPseudonymDiffersAcrossSessions(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)

	first, aerr := h.Server.PPP(context.Background(), bearer)
	require.Nil(t, aerr)
	second, aerr := h.Server.PPP(context.Background(), bearer)
	require.Nil(t, aerr)

	require.NotEqual(t, first.SealedPPP, second.SealedPPP)
}
