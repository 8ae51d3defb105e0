// Package envelope implements the two wire envelope types PubHubs servers
// use to exchange messages: Signed, a JWT carrying a typed payload and a
// message code that prevents it from being replayed as a different message
// type, and Sealed, a symmetrically encrypted, purpose-labelled blob.
package envelope

import "fmt"

// MessageCode identifies the type of a Signed payload. Every type signed
// with Signed gets a fixed code so that a signature produced for one
// message type can never be replayed as another. Codes, once assigned,
// must never change or be reused for a different message type -- doing so
// breaks the signatures already issued under that code.
type MessageCode uint16

const (
	// PhcHubTicketReq is the code for a hub's request to PHC for an entry
	// ticket.
	PhcHubTicketReq MessageCode = 1
	// PhcHubTicket is the code for the PHC-signed ticket returned to a hub.
	PhcHubTicket MessageCode = 2
	// PhcTHubKeyReq is the code for a hub's request to PHC or the
	// Transcryptor for its share of the hub decryption key.
	PhcTHubKeyReq MessageCode = 3
	// PhcTHubKeyResp is the code for the response carrying a hub key part.
	PhcTHubKeyResp MessageCode = 4
	// PhcEnterStart is the code for a user's request to PHC to start an
	// entry (login) attempt.
	PhcEnterStart MessageCode = 5
	// PhcEnterComplete is the code for PHC's response completing an entry
	// attempt, carrying the user's encrypted pseudonym package.
	PhcEnterComplete MessageCode = 6
	// AsAuthStart is the code for a client's request to the authentication
	// server to begin a Yivi attribute disclosure session.
	AsAuthStart MessageCode = 7
	// AsAuthComplete is the code for the signed Attr package issued by the
	// authentication server on completion of a disclosure session.
	AsAuthComplete MessageCode = 8
	// HubAccessToken is the code for the hub-signed access token returned
	// from EnterComplete, carrying the local user identifier a hub derived
	// from a HashedHubPseudonym.
	HubAccessToken MessageCode = 9
	// AdminConfigPatchCode is the code for a signed POST /.ph/admin/config
	// request: a JSON-Pointer path plus replacement value, authenticated
	// with an out-of-band admin key rather than a constellation member's
	// key.
	AdminConfigPatchCode MessageCode = 11
)

var messageCodeNames = map[MessageCode]string{
	PhcHubTicketReq:      "PhcHubTicketReq",
	PhcHubTicket:         "PhcHubTicket",
	PhcTHubKeyReq:        "PhcTHubKeyReq",
	PhcTHubKeyResp:       "PhcTHubKeyResp",
	PhcEnterStart:        "PhcEnterStart",
	PhcEnterComplete:     "PhcEnterComplete",
	AsAuthStart:          "AsAuthStart",
	AsAuthComplete:       "AsAuthComplete",
	HubAccessToken:       "HubAccessToken",
	AdminConfigPatchCode: "AdminConfigPatchCode",
}

// String renders the numeric code followed by its name in parentheses.
func (mc MessageCode) String() string {
	name, ok := messageCodeNames[mc]
	if !ok {
		return fmt.Sprintf("%d (unknown)", uint16(mc))
	}
	return fmt.Sprintf("%d (%s)", uint16(mc), name)
}

// messageCodeClaim is the JWT claim name under which a MessageCode is
// stored in a Signed envelope.
const messageCodeClaim = "ph-mc"

// HavingMessageCode is implemented by every type that can be carried
// inside a Signed envelope, fixing which MessageCode it is signed under.
type HavingMessageCode interface {
	MessageCode() MessageCode
}
