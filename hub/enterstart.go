package hub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// EnterStart implements a hub's POST /.ph/enter-start: issues a
// fresh nonce and seals it, along with any room the client asked to enter
// directly, into a HubState the client carries through PHC's PPP/HHPP
// conversion and presents back unchanged at EnterComplete.
func (s *Server) EnterStart(ctx context.Context, requestedRoom string) (*EnterStartResp, error) {
	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("hub: generate nonce: %w", err)
	}

	state := HubState{
		HubNonce:      nonce,
		RequestedRoom: requestedRoom,
		IssuedAt:      time.Now(),
	}
	sealed, err := sealHubState(s.HubStateSealingKey, state)
	if err != nil {
		return nil, fmt.Errorf("hub: seal hub state: %w", err)
	}

	return &EnterStartResp{HubNonce: nonce, HubState: sealed}, nil
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
