package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/phc"
)

// EnterComplete implements a hub's POST /.ph/enter-complete: opens
// the HubState this hub itself issued at EnterStart, opens the
// Sealed[HashedHubPseudonymPackage] PHC produced for it, checks the two
// agree on the same hub_nonce and that the pseudonym isn't stale, and
// issues a signed access token carrying the local user identifier derived
// directly from the hashed hub pseudonym's encoded bytes.
func (s *Server) EnterComplete(ctx context.Context, req EnterCompleteReq) (*EnterCompleteResp, error) {
	state, err := openHubState(s.HubStateSealingKey, req.HubState)
	if err != nil {
		return nil, fmt.Errorf("hub: invalid or expired hub state: %w", err)
	}

	sealedHHPP, err := envelope.SealedFromBytes[phc.HashedHubPseudonymPackage](req.SealedHHPP)
	if err != nil {
		return nil, fmt.Errorf("hub: malformed sealed hhpp: %w", err)
	}
	hhpp, err := sealedHHPP.Open(s.HubSealingKey, hhppPurpose)
	if err != nil {
		return nil, fmt.Errorf("hub: could not open hhpp: %w", err)
	}

	if hhpp.HubNonce != state.HubNonce {
		return nil, fmt.Errorf("hub: hub_nonce mismatch between hub state and hhpp")
	}
	if time.Since(hhpp.PPIssuedAt) > s.hhppFreshnessLimit() {
		return nil, fmt.Errorf("hub: hashed hub pseudonym is stale")
	}

	now := time.Now()
	token := AccessToken{
		UserID:    hhpp.HashedHubPseudonym,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.accessTokenValidity()),
	}
	signed, err := envelope.NewSigned(s.SigningKey, token, s.accessTokenValidity())
	if err != nil {
		return nil, fmt.Errorf("hub: sign access token: %w", err)
	}

	metrics.HubEntriesCompleted.WithLabelValues(s.Handle).Inc()
	return &EnterCompleteResp{AccessToken: signed.String()}, nil
}
