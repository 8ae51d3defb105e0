package hub

import (
	"time"

	"github.com/pubhubs/pubhubs-core/envelope"
)

// HubState is the hub's own sealed bookkeeping for a single entry
// attempt: the nonce handed to the client at EnterStart, which must come
// back unchanged (and matching the HHPP's own hub_nonce field) at
// EnterComplete.
type HubState struct {
	HubNonce      string    `json:"hub_nonce"`
	RequestedRoom string    `json:"requested_room,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
}

// EnterStartReq is the body of POST /.ph/enter-start.
type EnterStartReq struct {
	RequestedRoom string `json:"requested_room,omitempty"`
}

// EnterStartResp is the body of a hub's POST /.ph/enter-start response.
type EnterStartResp struct {
	HubNonce string `json:"hub_nonce"`
	HubState []byte `json:"hub_state"` // Sealed[HubState].Bytes()
}

// EnterCompleteReq is the body of POST /.ph/enter-complete: the client
// presents the Sealed[HashedHubPseudonymPackage] it obtained from PHC's
// HHPP conversion, alongside the HubState this hub handed out at
// EnterStart.
type EnterCompleteReq struct {
	SealedHHPP []byte `json:"sealed_hhpp"`
	HubState   []byte `json:"hub_state"`
}

// AccessToken is the credential a hub hands a client on a successful
// EnterComplete: a signed statement of the local user identifier this hub
// derived from the hashed hub pseudonym.
type AccessToken struct {
	UserID    string    `json:"user_id"` // hashed_hub_pseudonym, hex point
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MessageCode implements envelope.HavingMessageCode.
func (AccessToken) MessageCode() envelope.MessageCode { return envelope.HubAccessToken }

// EnterCompleteResp is the body of a successful POST /.ph/enter-complete.
type EnterCompleteResp struct {
	AccessToken string `json:"access_token"` // compact Signed[AccessToken]
}
