package phc

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/pkg/storage/memory"
	"github.com/pubhubs/pubhubs-core/server"
	"github.com/stretchr/testify/require"
)

// testHarness bundles a fully wired phc.Server with the keys needed to
// forge signed requests against it, mirroring transcryptor's
// buildTestSnapshot/Server{} pattern.
type testHarness struct {
	Server   *Server
	AsVK     envelope.SigningKey
	PHCSK    envelope.SigningKey
	MasterPH pep.PrivateKey
	MasterT  pep.PrivateKey
	EncT     pep.PrivateKey
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	phcPub, phcPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	asPub, asPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	xPHC := pep.RandomPrivateKey()
	xT := pep.RandomPrivateKey()
	encPHC := pep.RandomPrivateKey()
	encT := pep.RandomPrivateKey()
	masterEncKey := xPHC.Scale(xT.PublicKey())

	c, err := constellation.Build("https://phc.example", []constellation.ServerParams{
		{Name: constellation.PHC, URL: "https://phc.example", EncKey: encPHC.PublicKey().ToHex(), JWTKey: hexKey(phcPub), MasterEncKeyPart: xPHC.PublicKey().ToHex()},
		{Name: constellation.Transcryptor, URL: "https://t.example", EncKey: encT.PublicKey().ToHex(), MasterEncKeyPart: xT.PublicKey().ToHex()},
		{Name: constellation.AuthServer, URL: "https://as.example", JWTKey: hexKey(asPub)},
	}, masterEncKey.ToHex(), time.Now())
	require.NoError(t, err)

	snap := &server.RunningState{
		Constellation: c,
		SigningKey:    envelope.NewSigningKey(phcPriv),
		PeerVerifyingKeys: map[constellation.ServerName]envelope.VerifyingKey{
			constellation.AuthServer: envelope.NewVerifyingKey(asPub),
		},
	}

	app := server.NewApp(logger.NewDefaultLogger())
	app.EnterUpAndRunning(snap)

	s := &Server{
		App:           app,
		Store:         memory.NewStore(),
		Log:           logger.NewDefaultLogger(),
		MasterKey:     xPHC,
		EncKey:        encPHC,
		AttrSecret:    []byte("phc-attr-secret"),
		PPNonceKey:    envelope.NewSealingKey([]byte("pp-nonce-secret")),
		HubSealSecret: []byte("hub-seal-secret"),
	}

	return &testHarness{
		Server:   s,
		AsVK:     envelope.NewSigningKey(asPriv),
		PHCSK:    envelope.NewSigningKey(phcPriv),
		MasterPH: xPHC,
		MasterT:  xT,
		EncT:     encT,
	}
}

func hexKey(pub ed25519.PublicKey) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(pub)*2)
	for i, b := range pub {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}

func signedAttr(t *testing.T, sk envelope.SigningKey, a attr.Attr) string {
	t.Helper()
	signed, err := envelope.NewSigned(sk, a, time.Hour)
	require.NoError(t, err)
	return signed.String()
}

func TestEnterRegistersFreshUser(t *testing.T) {
	h := newTestHarness(t)

	idAttr := attr.Attr{AttrTypeID: "email", Value: "alice@example.com", Identifying: true}
	req := EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, idAttr)}}

	result, aerr := h.Server.Enter(context.Background(), req, time.Hour)
	require.Nil(t, aerr)
	require.Equal(t, EnterOK, result.Outcome)
	require.NotNil(t, result.Response)
	require.NotEmpty(t, result.Response.UserState.IdentifyingAttrs)
	require.NotEmpty(t, result.Response.AuthTokenPackage.AuthToken)
}

func TestEnterSameIdentifyingAttrReturnsSameUser(t *testing.T) {
	h := newTestHarness(t)

	idAttr := attr.Attr{AttrTypeID: "email", Value: "alice@example.com", Identifying: true}

	first, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, idAttr)}}, time.Hour)
	require.Nil(t, aerr)

	second, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, idAttr)}}, time.Hour)
	require.Nil(t, aerr)
	require.Equal(t, EnterOK, second.Outcome)
	require.Equal(t, first.Response.UserState.ID, second.Response.UserState.ID)
}

func TestEnterConflictingIdentifyingAttrs(t *testing.T) {
	h := newTestHarness(t)

	a1 := attr.Attr{AttrTypeID: "email", Value: "alice@example.com", Identifying: true}
	a2 := attr.Attr{AttrTypeID: "phone", Value: "+100000", Identifying: true}

	_, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, a1)}}, time.Hour)
	require.Nil(t, aerr)
	_, aerr = h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, a2)}}, time.Hour)
	require.Nil(t, aerr)

	// Presenting both identifying attrs at once, after they independently
	// resolved to two different users, must conflict rather than silently
	// picking one.
	result, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{
		signedAttr(t, h.AsVK, a1),
		signedAttr(t, h.AsVK, a2),
	}}, time.Hour)
	require.Nil(t, aerr)
	require.Equal(t, EnterConflict, result.Outcome)
}

func TestEnterRejectsBannedAttr(t *testing.T) {
	h := newTestHarness(t)

	idAttr := attr.Attr{AttrTypeID: "email", Value: "alice@example.com", Identifying: true}
	bannable := attr.Attr{AttrTypeID: "device", Value: "banned@example.com", Bannable: true}
	result, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{
		signedAttr(t, h.AsVK, idAttr),
		signedAttr(t, h.AsVK, bannable),
	}}, time.Hour)
	require.Nil(t, aerr)
	require.Equal(t, EnterOK, result.Outcome)

	aid := bannable.ComputeID(h.Server.AttrSecret)
	st, err := h.Server.Store.AttrStates().GetAttrState(context.Background(), aid)
	require.NoError(t, err)
	st.Banned = true
	require.NoError(t, h.Server.Store.AttrStates().UpsertAttrState(context.Background(), st))

	_, aerr = h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, bannable)}}, time.Hour)
	require.NotNil(t, aerr)
}

func TestEnterRegistrationWithOnlyBannableAttrRetries(t *testing.T) {
	h := newTestHarness(t)

	bannable := attr.Attr{AttrTypeID: "device", Value: "some-device-id", Bannable: true}
	result, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, bannable)}}, time.Hour)
	require.Nil(t, aerr)
	require.Equal(t, EnterRetryWithNewIdentifyingAttr, result.Outcome)
	require.Nil(t, result.Response)
}

func TestEnterRejectsForgedAttrSignature(t *testing.T) {
	h := newTestHarness(t)
	_, impostorSK, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a := attr.Attr{AttrTypeID: "email", Value: "eve@example.com", Identifying: true}
	forged := signedAttr(t, envelope.NewSigningKey(impostorSK), a)

	_, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{forged}}, time.Hour)
	require.NotNil(t, aerr)
}

func TestEnterRemoveOnlyIdentifyingAttrRetries(t *testing.T) {
	h := newTestHarness(t)
	idAttr := attr.Attr{AttrTypeID: "email", Value: "solo@example.com", Identifying: true}

	first, aerr := h.Server.Enter(context.Background(), EnterRequest{Attrs: []string{signedAttr(t, h.AsVK, idAttr)}}, time.Hour)
	require.Nil(t, aerr)
	aid := idAttr.ComputeID(h.Server.AttrSecret)

	second, aerr := h.Server.Enter(context.Background(), EnterRequest{
		BearerToken:   first.Response.AuthTokenPackage.AuthToken,
		RemoveAttrIDs: []id.AttrID{aid},
	}, time.Hour)
	require.Nil(t, aerr)
	require.Equal(t, EnterRetryWithNewIdentifyingAttr, second.Outcome)

	// The refused removal must leave the stored user untouched.
	stored, err := h.Server.Store.Users().GetUser(context.Background(), first.Response.UserState.ID)
	require.NoError(t, err)
	require.Len(t, stored.IdentifyingAttrs, 1)
	require.Equal(t, aid, stored.IdentifyingAttrs[0].AttrID)
}
