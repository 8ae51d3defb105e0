// Package phc implements PubHubs Central: the user registry, hub ticket
// issuer, and the PPP/HHPP ends of the pseudonymisation pipeline.
package phc

import (
	"time"

	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
)

// AuthToken authenticates a user to PHC; presented raw (the Signed JWT
// string) in an Authorization header on subsequent requests.
type AuthToken struct {
	UserID    id.UserID `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MessageCode implements envelope.HavingMessageCode: an AuthToken is the
// credential PHC hands out on completing an entry attempt.
func (AuthToken) MessageCode() envelope.MessageCode { return envelope.PhcEnterComplete }

// AuthTokenPackage is the wire shape of a successful enter response's
// credential half.
type AuthTokenPackage struct {
	AuthToken string    `json:"auth_token"` // compact Signed[AuthToken]
	ExpiresAt time.Time `json:"expires_at"`
}

// UserStateSummary is the public view of a user's PHC-held state.
type UserStateSummary struct {
	ID                   id.UserID `json:"id"`
	PolymorphicPseudonym string    `json:"polymorphic_pseudonym"` // Triple hex
	IdentifyingAttrs     []string  `json:"identifying_attrs"`
	BannableAttrs        []string  `json:"bannable_attrs"`
	StoredObjects        []string  `json:"stored_objects"`
}

// EnterRequest is the body of POST /.ph/user/enter.
type EnterRequest struct {
	// Attrs is the set of Signed<Attr> JWTs (compact form) presented for
	// this entry attempt.
	Attrs []string `json:"attrs"`
	// RemoveAttrIDs lists attr_ids the caller asks to remove from their
	// existing user record (bearer auth required for this to apply).
	RemoveAttrIDs []id.AttrID `json:"remove_attr_ids,omitempty"`
	// BearerToken, if set, is an existing compact AuthToken identifying
	// the user this request modifies rather than registering a new one.
	BearerToken string `json:"bearer_token,omitempty"`
}

// EnterResponse is the body of a successful POST /.ph/user/enter.
type EnterResponse struct {
	AuthTokenPackage AuthTokenPackage `json:"auth_token_package"`
	UserState        UserStateSummary `json:"user_state_summary"`
}

// disclosedAttr pairs a verified attr.Attr with its computed attr_id.
type disclosedAttr struct {
	Attr   attr.Attr
	AttrID id.AttrID
}

// PpNonce is PHC's own record of a PPP issuance, sealed for itself so it
// can later recognize and bound the matching HHPP request without the
// Transcryptor ever learning the user.
type PpNonce struct {
	UserID        id.UserID `json:"user_id"`
	NotValidAfter time.Time `json:"not_valid_after"`
}

// PolymorphicPseudonymPackage is PHC's PPP output, sealed for the
// Transcryptor.
type PolymorphicPseudonymPackage struct {
	PolymorphicPseudonym string `json:"polymorphic_pseudonym"` // Triple hex, rerandomized
	Nonce                []byte `json:"nonce"`                 // Sealed[PpNonce].Bytes()
}

// EncryptedHubPseudonymPackage is the Transcryptor's EHPP output, as PHC
// receives it (unsealed by PHC, so this mirrors transcryptor.EHPP).
type EncryptedHubPseudonymPackage struct {
	EncryptedHubPseudonym string    `json:"encrypted_hub_pseudonym"` // Triple hex
	HubNonce              string    `json:"hub_nonce"`
	PHCNonce              []byte    `json:"phc_nonce"` // Sealed[PpNonce].Bytes(), passed through by T
	IssuedAt              time.Time `json:"issued_at"`
	// HubDecryptionFactor is k_h (hex scalar): T already folded x_T's own
	// cancellation in with this factor when it RSK'd the triple, so PHC
	// multiplies it into x_PHC to obtain the triple's true target scalar.
	HubDecryptionFactor string `json:"hub_decryption_factor"`
}

// HHPPRequest is the body of POST /.ph/user/hhpp.
type HHPPRequest struct {
	// SealedEHPP is the wire bytes of Sealed[EncryptedHubPseudonymPackage]
	// as received from the hub (forwarded unchanged from T's response).
	SealedEHPP []byte   `json:"sealed_ehpp"`
	HubID      id.HubID `json:"hub_id"`
}

// HashedHubPseudonymPackage is PHC's HHPP output, sealed for the hub.
type HashedHubPseudonymPackage struct {
	HashedHubPseudonym string    `json:"hashed_hub_pseudonym"` // hex point
	PPIssuedAt         time.Time `json:"pp_issued_at"`
	HubNonce           string    `json:"hub_nonce"`
}

// TicketReq is a hub's signed request for an entry ticket.
type TicketReq struct {
	HubHandle string `json:"hub_handle"`
}

// MessageCode implements envelope.HavingMessageCode.
func (TicketReq) MessageCode() envelope.MessageCode { return envelope.PhcHubTicketReq }

// TicketContent is PHC's signed certification of a hub's current
// verifying key.
type TicketContent struct {
	HubHandle    string    `json:"hub_handle"`
	VerifyingKey string    `json:"verifying_key"` // hex Ed25519 public key
	IssuedAt     time.Time `json:"issued_at"`
}

// MessageCode implements envelope.HavingMessageCode.
func (TicketContent) MessageCode() envelope.MessageCode { return envelope.PhcHubTicket }

// TicketResp is the body of a successful POST /.ph/hubs/ticket: the
// signed ticket the hub presents to both key-part endpoints, plus the raw
// hub<->PHC sealing key material the hub needs to open a Sealed<HHPP>
// later. This channel is authenticated by the ticket
// request's own signature, so handing the key material back here avoids
// a second round trip or a hub-side ElGamal keypair the hub has no other
// use for.
type TicketResp struct {
	Ticket        string `json:"ticket"` // compact Signed[TicketContent]
	HubSealingKey []byte `json:"hub_sealing_key"`
}

// HubInfo is the minimal shape PHC expects back from a hub's own `/`
// info endpoint when validating a ticket request.
type HubInfo struct {
	Handle       string `json:"handle"`
	VerifyingKey string `json:"verifying_key"`
}

// KeyReq is a hub's ticket-backed request for its PHC or Transcryptor key
// part.
type KeyReq struct {
	Ticket string `json:"ticket"` // compact Signed[TicketContent]
}

// MessageCode implements envelope.HavingMessageCode.
func (KeyReq) MessageCode() envelope.MessageCode { return envelope.PhcTHubKeyReq }

// KeyResp carries one server's contribution to a hub's private key, or
// RetryWithNewTicket when the presented ticket failed to verify (expired
// or not issued by PHC's current signing key); the hub then requests a
// fresh ticket and retries. Surfaced in the body rather than as an
// apierr code, like the pipeline's RetryWithNewPpp.
type KeyResp struct {
	RetryWithNewTicket bool   `json:"retry_with_new_ticket,omitempty"`
	KeyPart            string `json:"key_part,omitempty"` // hex scalar
}

// MessageCode implements envelope.HavingMessageCode.
func (KeyResp) MessageCode() envelope.MessageCode { return envelope.PhcTHubKeyResp }
