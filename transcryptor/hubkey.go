package transcryptor

import (
	"context"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
)

// ticketContent mirrors phc.TicketContent's wire shape; T only needs to
// open the envelope, not construct one, so it keeps its own minimal copy
// rather than importing the phc package (which would create a cycle
// through transcryptor's eventual use from phc's tests).
type ticketContent struct {
	HubHandle    string `json:"hub_handle"`
	VerifyingKey string `json:"verifying_key"`
	IssuedAt     string `json:"issued_at"`
}

func (ticketContent) MessageCode() envelope.MessageCode { return envelope.PhcHubTicket }

// HubKey implements the Transcryptor's side of POST /.ph/hubs/key:
// given a ticket a hub obtained from PHC, returns T's scalar contribution
// to the hub's private key. Unlike PHC's side, T's part carries no blind:
// the per-hub binding already comes from PHC's K * x_PHC factor, so T
// simply hands back its master half x_T. The hub's product
// phc_part * t_part is then K * x_PHC * x_T, a single factor of K (applying the blind
// on both sides would square it).
func (s *Server) HubKey(ctx context.Context, req KeyReq) (*KeyResp, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}

	phcVK, ok := snap.PeerVerifyingKeys[constellation.PHC]
	if !ok {
		return nil, apierr.New(apierr.Malconfigured, "transcryptor: no verifying key for phc in constellation")
	}
	if _, err := envelope.ParseSigned[ticketContent](req.Ticket).Open(phcVK); err != nil {
		return &KeyResp{RetryWithNewTicket: true}, nil
	}

	part := s.MasterKey.AsScalar()

	metrics.HubKeyPartsIssued.WithLabelValues("transcryptor").Inc()
	return &KeyResp{KeyPart: part.ToHex()}, nil
}
