package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/phc"
)

const (
	ticketPath = "/.ph/hubs/ticket"
	keyPath    = "/.ph/hubs/key"
)

// hubKeyHeader carries the hub's current Ed25519 verifying key (hex) on
// a ticket request, so PHC can open the Signed[phc.TicketReq] body before
// it has any other way to learn which key signed it. Mirrors
// client.HubKeyHeader (this package can't import client, which exists
// for out-of-process callers of the same endpoints).
const hubKeyHeader = "X-Hub-Key"

// Bootstrap implements a hub's side of the key delivery protocol: it
// requests an entry ticket from PHC, then fetches PHC's and the
// Transcryptor's key parts in parallel, combining them into this hub's
// own private scalar. It also records the hub<->PHC sealing key carried
// back alongside the ticket, which HubSealingKey needs to open a
// Sealed[HashedHubPseudonymPackage] later. A hub calls this once at
// startup and again whenever its ticket has expired.
func (s *Server) Bootstrap(ctx context.Context) error {
	signedReq, err := envelope.NewSigned(s.SigningKey, phc.TicketReq{HubHandle: s.Handle}, time.Minute)
	if err != nil {
		return fmt.Errorf("hub: sign ticket request: %w", err)
	}

	ticketResp, err := s.requestTicket(ctx, signedReq.String())
	if err != nil {
		return fmt.Errorf("hub: request ticket: %w", err)
	}

	var phcPart, tPart phc.KeyResp
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := s.requestKeyPart(gctx, s.PHCURL, ticketResp.Ticket)
		if err != nil {
			return fmt.Errorf("phc key part: %w", err)
		}
		phcPart = *resp
		return nil
	})
	g.Go(func() error {
		resp, err := s.requestKeyPart(gctx, s.TranscryptorURL, ticketResp.Ticket)
		if err != nil {
			return fmt.Errorf("transcryptor key part: %w", err)
		}
		tPart = *resp
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("hub: fetch key parts: %w", err)
	}
	if phcPart.RetryWithNewTicket || tPart.RetryWithNewTicket {
		return fmt.Errorf("hub: ticket refused by a key-part server; request a fresh ticket and retry")
	}

	phcScalar, err := pep.ScalarFromHex(phcPart.KeyPart)
	if err != nil {
		return fmt.Errorf("hub: decode phc key part: %w", err)
	}
	tScalar, err := pep.ScalarFromHex(tPart.KeyPart)
	if err != nil {
		return fmt.Errorf("hub: decode transcryptor key part: %w", err)
	}

	s.PrivateScalar = phcScalar.Mul(tScalar)
	s.HubSealingKey = envelope.NewSealingKey(ticketResp.HubSealingKey)
	return nil
}

// requestTicket submits the compact Signed[phc.TicketReq] as the raw
// request body, with the hub's verifying key in the hubKeyHeader.
func (s *Server) requestTicket(ctx context.Context, signedReq string) (*phc.TicketResp, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.PHCURL, "/")+ticketPath, strings.NewReader(signedReq))
	if err != nil {
		return nil, err
	}
	req.Header.Set(hubKeyHeader, s.VerifyingKeyHex)

	httpResp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	var resp apierr.Resp[phc.TicketResp]
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode ticket response (status %d): %w", httpResp.StatusCode, err)
	}
	if resp.Err != nil {
		return nil, fmt.Errorf("phc: %s", *resp.Err)
	}
	return resp.Ok, nil
}

func (s *Server) requestKeyPart(ctx context.Context, baseURL, ticket string) (*phc.KeyResp, error) {
	body, err := json.Marshal(phc.KeyReq{Ticket: ticket})
	if err != nil {
		return nil, err
	}
	var resp apierr.Resp[phc.KeyResp]
	if err := s.postJSON(ctx, strings.TrimRight(baseURL, "/")+keyPath, body, &resp); err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, fmt.Errorf("%s", *resp.Err)
	}
	return resp.Ok, nil
}

func (s *Server) postJSON(ctx context.Context, url string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
