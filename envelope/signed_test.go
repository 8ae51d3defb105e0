package envelope

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type ticketReq struct {
	HubID string `json:"hub_id"`
}

func (ticketReq) MessageCode() MessageCode { return PhcHubTicketReq }

type ticket struct {
	HubID  string `json:"hub_id"`
	Digest string `json:"digest"`
}

func (ticket) MessageCode() MessageCode { return PhcHubTicket }

func generateSigningKey(t *testing.T) SigningKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return NewSigningKey(priv)
}

func TestSignedRoundTrip(t *testing.T) {
	sk := generateSigningKey(t)

	msg := ticketReq{HubID: "hub-1"}
	signed, err := NewSigned(sk, msg, time.Minute)
	require.NoError(t, err)

	got, err := signed.Open(sk.VerifyingKey())
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestSignedRejectsWrongMessageCode(t *testing.T) {
	sk := generateSigningKey(t)

	signed, err := NewSigned(sk, ticketReq{HubID: "hub-1"}, time.Minute)
	require.NoError(t, err)

	// Reinterpret the raw token as a Signed[ticket] (different message code).
	reinterpreted := ParseSigned[ticket](signed.String())
	_, err = reinterpreted.Open(sk.VerifyingKey())
	require.Error(t, err)
}

func TestSignedRejectsWrongKey(t *testing.T) {
	sk := generateSigningKey(t)
	other := generateSigningKey(t)

	signed, err := NewSigned(sk, ticketReq{HubID: "hub-1"}, time.Minute)
	require.NoError(t, err)

	_, err = signed.Open(other.VerifyingKey())
	require.Error(t, err)
}

func TestSignedRejectsExpired(t *testing.T) {
	sk := generateSigningKey(t)

	signed, err := NewSigned(sk, ticketReq{HubID: "hub-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = signed.Open(sk.VerifyingKey())
	require.Error(t, err)
}

func TestSignedTamperedSignatureFails(t *testing.T) {
	sk := generateSigningKey(t)

	signed, err := NewSigned(sk, ticketReq{HubID: "hub-1"}, time.Minute)
	require.NoError(t, err)

	raw := signed.String()
	// Corrupt the tail of the token so the signature no longer verifies.
	tampered := raw[:len(raw)-5] + "AAAAA"

	reparsed := ParseSigned[ticketReq](tampered)
	_, err = reparsed.Open(sk.VerifyingKey())
	require.Error(t, err)
}
