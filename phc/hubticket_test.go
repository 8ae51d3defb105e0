package phc

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/phccrypto"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
	"github.com/stretchr/testify/require"
)

// issueFakeTicket records a ticket directly in the store, standing in for
// a prior call to HubTicket, for tests that only need HHPP's ticket
// lookup to succeed.
func issueFakeTicket(t *testing.T, h *testHarness, hubID string) {
	t.Helper()
	digest := TicketDigest("fake-raw-ticket-" + hubID)
	err := h.Server.Store.Tickets().PutTicket(context.Background(), &storage.Ticket{
		HubID:     id.HubID(hubID),
		RawTicket: "fake-raw-ticket-" + hubID,
		Digest:    digest,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
}

func TestHubTicketIssuesAndRecordsTicket(t *testing.T) {
	h := newTestHarness(t)

	hubPub, hubPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	hubSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(HubInfo{Handle: "hub-one", VerifyingKey: hex.EncodeToString(hubPub)})
	}))
	defer hubSrv.Close()

	req := TicketReq{HubHandle: hubSrv.URL}
	signed, err := envelope.NewSigned(envelope.NewSigningKey(hubPriv), req, time.Hour)
	require.NoError(t, err)

	resp, aerr := h.Server.HubTicket(context.Background(), signed.String(), hubPub)
	require.Nil(t, aerr)
	require.NotEmpty(t, resp.Ticket)
	require.NotEmpty(t, resp.HubSealingKey)

	stored, err := h.Server.Store.Tickets().GetTicket(context.Background(), id.HubID(hubSrv.URL))
	require.NoError(t, err)
	require.Equal(t, resp.Ticket, stored.RawTicket)
}

func TestHubTicketRejectsKeyMismatch(t *testing.T) {
	h := newTestHarness(t)

	hubPub, hubPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	hubSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(HubInfo{Handle: "hub-one", VerifyingKey: hex.EncodeToString(otherPub)})
	}))
	defer hubSrv.Close()

	req := TicketReq{HubHandle: hubSrv.URL}
	signed, err := envelope.NewSigned(envelope.NewSigningKey(hubPriv), req, time.Hour)
	require.NoError(t, err)

	_, aerr := h.Server.HubTicket(context.Background(), signed.String(), hubPub)
	require.NotNil(t, aerr)
}

func TestHubKeyRequiresGenuineTicket(t *testing.T) {
	h := newTestHarness(t)

	content := TicketContent{HubHandle: "hub-one", VerifyingKey: "ab", IssuedAt: time.Now()}
	signed, err := envelope.NewSigned(h.PHCSK, content, time.Hour)
	require.NoError(t, err)

	resp, aerr := h.Server.HubKey(context.Background(), KeyReq{Ticket: signed.String()})
	require.Nil(t, aerr)
	require.NotEmpty(t, resp.KeyPart)

	// PHC's own key part must equal PHCHubKeyPart computed the same way
	// directly against the digest.
	digest := TicketDigest(signed.String())
	sharedSecret := h.EncT.Scale(h.Server.EncKey.PublicKey()).Point().Bytes()
	blind := phccrypto.HubKeyPartBlind(digest, sharedSecret)
	want := phccrypto.PHCHubKeyPart(blind, h.MasterPH)
	require.Equal(t, want.ToHex(), resp.KeyPart)
}

func TestHubKeyRefusesForgedTicket(t *testing.T) {
	h := newTestHarness(t)
	_, impostorSK, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	content := TicketContent{HubHandle: "hub-one", VerifyingKey: "ab", IssuedAt: time.Now()}
	signed, err := envelope.NewSigned(envelope.NewSigningKey(impostorSK), content, time.Hour)
	require.NoError(t, err)

	resp, aerr := h.Server.HubKey(context.Background(), KeyReq{Ticket: signed.String()})
	require.Nil(t, aerr)
	require.True(t, resp.RetryWithNewTicket)
	require.Empty(t, resp.KeyPart)
}

func TestHubKeyRefusesExpiredTicket(t *testing.T) {
	h := newTestHarness(t)

	content := TicketContent{HubHandle: "hub-one", VerifyingKey: "ab", IssuedAt: time.Now().Add(-2 * time.Hour)}
	signed, err := envelope.NewSigned(h.PHCSK, content, -time.Hour)
	require.NoError(t, err)

	resp, aerr := h.Server.HubKey(context.Background(), KeyReq{Ticket: signed.String()})
	require.Nil(t, aerr)
	require.True(t, resp.RetryWithNewTicket)
}
