package client

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/phc"
	tkey "github.com/pubhubs/pubhubs-core/transcryptor"
)

// HubKeyHeader carries the hub's current Ed25519 verifying key (hex) on a
// ticket request: PHC needs it to open the Signed<TicketReq> envelope
// before it has any other way to learn which key signed it.
const HubKeyHeader = "X-Hub-Key"

// HubClient is what a hub runs to bootstrap its own private key:
// request a ticket from PHC, then redeem it for a key part from both PHC
// and the Transcryptor, combining the two into the hub's actual scalar.
type HubClient struct {
	HTTPClient      *http.Client
	PHCURL          string
	TranscryptorURL string

	SigningKey ed25519.PrivateKey
	HubHandle  string
}

func (c *HubClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// RequestTicket signs and submits a TicketReq to PHC, returning the
// compact ticket and the hub<->PHC sealing key material PHC hands back
// alongside it.
func (c *HubClient) RequestTicket(ctx context.Context) (phc.TicketResp, error) {
	req := phc.TicketReq{HubHandle: c.HubHandle}
	signed, err := envelope.NewSigned(envelope.NewSigningKey(c.SigningKey), req, time.Hour)
	if err != nil {
		return phc.TicketResp{}, fmt.Errorf("client: sign ticket request: %w", err)
	}
	verifyingKey, ok := c.SigningKey.Public().(ed25519.PublicKey)
	if !ok {
		return phc.TicketResp{}, fmt.Errorf("client: signing key has no ed25519 public half")
	}
	headers := map[string]string{HubKeyHeader: hex.EncodeToString(verifyingKey)}
	return postRaw[phc.TicketResp](ctx, c.httpClient(), c.PHCURL+"/.ph/hubs/ticket", headers, signed.String())
}

// PrivateKey redeems ticket for a key part from both PHC and the
// Transcryptor and combines them into the hub's full private scalar:
// key = K * x_PHC * x_T, where K is the ticket-bound blinding factor
// baked into PHC's key part.
func (c *HubClient) PrivateKey(ctx context.Context, ticket string) (pep.PrivateKey, error) {
	phcPart, err := postBearer[phc.KeyResp](ctx, c.httpClient(), c.PHCURL+"/.ph/hubs/key", "", phc.KeyReq{Ticket: ticket})
	if err != nil {
		return pep.PrivateKey{}, fmt.Errorf("client: phc key part: %w", err)
	}
	tPart, err := postBearer[tkey.KeyResp](ctx, c.httpClient(), c.TranscryptorURL+"/.ph/hubs/key", "", tkey.KeyReq{Ticket: ticket})
	if err != nil {
		return pep.PrivateKey{}, fmt.Errorf("client: transcryptor key part: %w", err)
	}
	if phcPart.RetryWithNewTicket || tPart.RetryWithNewTicket {
		return pep.PrivateKey{}, fmt.Errorf("client: ticket refused; request a fresh ticket and retry")
	}

	phcScalar, err := pep.ScalarFromHex(phcPart.KeyPart)
	if err != nil {
		return pep.PrivateKey{}, fmt.Errorf("client: malformed phc key part: %w", err)
	}
	tScalar, err := pep.ScalarFromHex(tPart.KeyPart)
	if err != nil {
		return pep.PrivateKey{}, fmt.Errorf("client: malformed transcryptor key part: %w", err)
	}
	return pep.NewPrivateKey(phcScalar.Mul(tScalar)), nil
}
