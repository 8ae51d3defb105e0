package phc

import (
	"context"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/phccrypto"
)

// HubKey implements PHC's side of POST /.ph/hubs/key: given a
// ticket a hub obtained from HubTicket, returns PHC's scalar contribution
// to the hub's private key. The hub combines this with T's equivalent
// response to get key = K * x_PHC * x_T.
func (s *Server) HubKey(ctx context.Context, req KeyReq) (*KeyResp, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}

	// Opening with PHC's own signing key both verifies the ticket is
	// genuine and unexpired; its content isn't otherwise needed here, the
	// key part is bound to the ticket purely through its digest.
	if _, err := envelope.ParseSigned[TicketContent](req.Ticket).Open(s.signingKey(snap).VerifyingKey()); err != nil {
		return &KeyResp{RetryWithNewTicket: true}, nil
	}

	digest := TicketDigest(req.Ticket)
	sharedSecret, err := s.tSharedSecretBytes(snap)
	if err != nil {
		return nil, apierr.New(apierr.Malconfigured, "%s", err)
	}

	blind := phccrypto.HubKeyPartBlind(digest, sharedSecret)
	part := phccrypto.PHCHubKeyPart(blind, s.MasterKey)

	metrics.HubKeyPartsIssued.WithLabelValues("phc").Inc()
	return &KeyResp{KeyPart: part.ToHex()}, nil
}
