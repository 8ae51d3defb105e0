package transcryptor

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/phccrypto"
	"github.com/pubhubs/pubhubs-core/server"
	"github.com/stretchr/testify/require"
)

func TestSessionRelayPutGetExpires(t *testing.T) {
	r := NewSessionRelay()
	r.Put("sess-1", []byte("token"), 10*time.Millisecond)

	got, ok := r.Get("sess-1")
	require.True(t, ok)
	require.Equal(t, []byte("token"), got)

	time.Sleep(20 * time.Millisecond)
	_, ok = r.Get("sess-1")
	require.False(t, ok)
}

func TestNilSessionRelayIsNoOp(t *testing.T) {
	var r *SessionRelay
	r.Put("x", []byte("y"), time.Second)
	_, ok := r.Get("x")
	require.False(t, ok)
	r.Sweep()
}

func TestEHPPRSKProducesRecoverableHubPseudonym(t *testing.T) {
	xPHC := pep.RandomPrivateKey()
	xT := pep.RandomPrivateKey()
	globalPK := xPHC.Scale(xT.PublicKey())

	M := pep.RandomPoint()
	pp := globalPK.Encrypt(M)

	factorSecret := []byte("is also called server secret")
	hubID := "hub-one"

	sH := phccrypto.PseudonymisationFactor(factorSecret, hubID)
	kH := phccrypto.DecryptionFactor(factorSecret, hubID)

	k := xT.AsScalar().Invert().Mul(kH)
	converted := pp.RSK(sH, k)

	// T's own contribution cancels out, leaving PHC able to decrypt with
	// x_PHC alone combined with the k_h it learns from the sealed EHPP.
	targetSK := pep.NewPrivateKey(kH.Mul(xPHC.AsScalar()))
	got := converted.Decrypt(targetSK)

	want := pep.Mult(sH, M)
	require.True(t, want.Equal(got))
}

// buildTestSnapshot assembles a minimal two-server RunningState (PHC, T)
// sufficient to exercise Server.EHPP's shared-secret derivation. The enc
// keys are separate from the master halves, as in production.
func buildTestSnapshot(t *testing.T, xPHC, xT, encPHC, encT pep.PrivateKey) *server.RunningState {
	t.Helper()

	masterEncKey := xPHC.Scale(xT.PublicKey())

	c, err := constellation.Build("https://phc.example", []constellation.ServerParams{
		{Name: constellation.PHC, URL: "https://phc.example", EncKey: encPHC.PublicKey().ToHex(), MasterEncKeyPart: xPHC.PublicKey().ToHex()},
		{Name: constellation.Transcryptor, URL: "https://t.example", EncKey: encT.PublicKey().ToHex(), MasterEncKeyPart: xT.PublicKey().ToHex()},
	}, masterEncKey.ToHex(), time.Now())
	require.NoError(t, err)

	return &server.RunningState{Constellation: c}
}

func TestServerEHPPUnsealsConvertsAndReseals(t *testing.T) {
	xPHC := pep.RandomPrivateKey()
	xT := pep.RandomPrivateKey()
	encPHC := pep.RandomPrivateKey()
	encT := pep.RandomPrivateKey()
	globalPK := xPHC.Scale(xT.PublicKey())

	snap := buildTestSnapshot(t, xPHC, xT, encPHC, encT)

	app := server.NewApp(logger.NewDefaultLogger())
	app.EnterUpAndRunning(snap)

	s := &Server{
		App:          app,
		Log:          logger.NewDefaultLogger(),
		MasterKey:    xT,
		EncKey:       encT,
		FactorSecret: []byte("is also called server secret"),
	}

	// PHC's side of the ECDH agreement: its own enc scalar against T's
	// published enc key, the same point phc.go lands on.
	phcSharedSecret := encPHC.Scale(encT.PublicKey()).Point().Bytes()
	phcSealingKey := envelope.NewSealingKey(phcSharedSecret)

	M := pep.RandomPoint()
	pp := globalPK.Encrypt(M)
	ppp := PolymorphicPseudonymPackage{
		PolymorphicPseudonym: pp.ToHex(),
		Nonce:                []byte("opaque-phc-nonce"),
	}
	sealedPPP, err := envelope.Seal(phcSealingKey, pppPurpose, ppp)
	require.NoError(t, err)

	result, aerr := s.EHPP(context.Background(), EHPPRequest{
		HubNonce:  "nonce-abc",
		HubID:     "hub-one",
		SealedPPP: sealedPPP.Bytes(),
	})
	require.Nil(t, aerr)
	require.False(t, result.RetryWithNewPpp)
	require.NotEmpty(t, result.SealedEHPP)

	sealedEHPP, err := envelope.SealedFromBytes[EHPP](result.SealedEHPP)
	require.NoError(t, err)
	ehpp, err := sealedEHPP.Open(phcSealingKey, ehppPurpose)
	require.NoError(t, err)
	require.Equal(t, "nonce-abc", ehpp.HubNonce)
	require.Equal(t, []byte("opaque-phc-nonce"), ehpp.PHCNonce)

	encHubPseudonym, err := pep.TripleFromHex(ehpp.EncryptedHubPseudonym)
	require.NoError(t, err)

	sH := phccrypto.PseudonymisationFactor(s.FactorSecret, "hub-one")
	kH, err := pep.ScalarFromHex(ehpp.HubDecryptionFactor)
	require.NoError(t, err)
	targetSK := pep.NewPrivateKey(kH.Mul(xPHC.AsScalar()))
	gotPoint := encHubPseudonym.Decrypt(targetSK)

	wantPoint := pep.Mult(sH, M)
	require.True(t, wantPoint.Equal(gotPoint))
}

func TestServerEHPPRejectsMalformedSeal(t *testing.T) {
	xPHC := pep.RandomPrivateKey()
	xT := pep.RandomPrivateKey()
	encT := pep.RandomPrivateKey()
	snap := buildTestSnapshot(t, xPHC, xT, pep.RandomPrivateKey(), encT)

	app := server.NewApp(logger.NewDefaultLogger())
	app.EnterUpAndRunning(snap)

	s := &Server{App: app, Log: logger.NewDefaultLogger(), MasterKey: xT, EncKey: encT, FactorSecret: []byte("secret")}

	_, aerr := s.EHPP(context.Background(), EHPPRequest{HubNonce: "n", HubID: "h", SealedPPP: []byte("garbage")})
	require.NotNil(t, aerr)
}

func TestServerHubKeyTicketVerification(t *testing.T) {
	xPHC := pep.RandomPrivateKey()
	xT := pep.RandomPrivateKey()
	encT := pep.RandomPrivateKey()
	snap := buildTestSnapshot(t, xPHC, xT, pep.RandomPrivateKey(), encT)

	phcVK, phcSK, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	snap.PeerVerifyingKeys = map[constellation.ServerName]envelope.VerifyingKey{
		constellation.PHC: envelope.NewVerifyingKey(phcVK),
	}

	app := server.NewApp(logger.NewDefaultLogger())
	app.EnterUpAndRunning(snap)
	s := &Server{App: app, Log: logger.NewDefaultLogger(), MasterKey: xT, EncKey: encT, FactorSecret: []byte("secret")}

	// A ticket signed by an unrelated key must be refused.
	_, impostorSK, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signed, err := envelope.NewSigned(envelope.NewSigningKey(impostorSK), ticketContent{HubHandle: "h1"}, time.Hour)
	require.NoError(t, err)

	resp, aerr := s.HubKey(context.Background(), KeyReq{Ticket: signed.String()})
	require.Nil(t, aerr)
	require.True(t, resp.RetryWithNewTicket)
	require.Empty(t, resp.KeyPart)

	// A genuine PHC-signed ticket yields T's key part.
	genuine, err := envelope.NewSigned(envelope.NewSigningKey(phcSK), ticketContent{HubHandle: "h1"}, time.Hour)
	require.NoError(t, err)
	resp, aerr = s.HubKey(context.Background(), KeyReq{Ticket: genuine.String()})
	require.Nil(t, aerr)
	require.False(t, resp.RetryWithNewTicket)
	require.Equal(t, xT.ToHex(), resp.KeyPart)
}
