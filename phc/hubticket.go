package phc

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

const defaultTicketValidity = 24 * time.Hour

// HubTicket implements POST /.ph/hubs/ticket: a hub presents a
// Signed<TicketReq>, signed with the Ed25519 key it currently holds. PHC
// fetches the hub's own info endpoint (at its handle's base URL) to
// confirm that key is the one the hub itself advertises, then issues a
// certifying Signed<TicketContent> valid for TicketValidity.
func (s *Server) HubTicket(ctx context.Context, rawReq string, requestorKey ed25519.PublicKey) (*TicketResp, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}

	req, err := envelope.ParseSigned[TicketReq](rawReq).Open(envelope.NewVerifyingKey(requestorKey))
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "invalid ticket request signature")
	}

	info, err := s.fetchHubInfo(ctx, req.HubHandle)
	if err != nil {
		return nil, apierr.New(apierr.SeveredConnection, "could not reach hub %s: %s", req.HubHandle, err)
	}
	if !strings.EqualFold(info.VerifyingKey, hex.EncodeToString(requestorKey)) {
		return nil, apierr.New(apierr.BadRequest, "hub's advertised key does not match the signing key used")
	}

	validity := s.TicketValidity
	if validity <= 0 {
		validity = defaultTicketValidity
	}
	content := TicketContent{
		HubHandle:    req.HubHandle,
		VerifyingKey: info.VerifyingKey,
		IssuedAt:     time.Now(),
	}
	signed, err := envelope.NewSigned(s.signingKey(snap), content, validity)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}
	raw := signed.String()
	digest := TicketDigest(raw)

	hubID := id.HubID(req.HubHandle)
	ticket := &storage.Ticket{
		HubID:     hubID,
		RawTicket: raw,
		Digest:    digest,
		IssuedAt:  content.IssuedAt,
		ExpiresAt: content.IssuedAt.Add(validity),
	}
	if err := s.Store.Tickets().PutTicket(ctx, ticket); err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	metrics.TicketsIssued.Inc()
	return &TicketResp{
		Ticket:        raw,
		HubSealingKey: s.hubSealingKey(digest).Bytes(),
	}, nil
}

// fetchHubInfo fetches the HubInfo a hub advertises at its own `/` info
// endpoint. hubHandle is the hub's base URL.
func (s *Server) fetchHubInfo(ctx context.Context, hubHandle string) (*HubInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(hubHandle, "/")+"/", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var info HubInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// hubTicketDigest returns the digest of the most recently issued ticket
// for hubID, as recorded by HubTicket.
func (s *Server) hubTicketDigest(ctx context.Context, hubID id.HubID) ([]byte, error) {
	t, err := s.Store.Tickets().GetTicket(ctx, hubID)
	if err != nil {
		return nil, fmt.Errorf("phc: no ticket on record for hub %s: %w", hubID, err)
	}
	return t.Digest, nil
}
