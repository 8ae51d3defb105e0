package transcryptor

import "time"

// PolymorphicPseudonymPackage is PHC's PPP, as the Transcryptor receives
// it: a rerandomized polymorphic pseudonym plus a nonce that is opaque to
// T and only meaningful to PHC. JSON shape matches
// phc.PolymorphicPseudonymPackage field for field, since the two are the
// same wire object produced by one server and consumed by the other.
type PolymorphicPseudonymPackage struct {
	PolymorphicPseudonym string `json:"polymorphic_pseudonym"` // Triple hex, rerandomized
	Nonce                []byte `json:"nonce"`                 // opaque to T: Sealed[PpNonce].Bytes()
}

// EHPPRequest is the body of POST /.ph/ehpp.
type EHPPRequest struct {
	HubNonce  string `json:"hub_nonce"`
	HubID     string `json:"hub_id"`
	SealedPPP []byte `json:"sealed_ppp"` // Sealed[PolymorphicPseudonymPackage].Bytes(), sealed by PHC for T
}

// EHPP is the Transcryptor's output: an ElGamal encryption of the hub
// pseudonym point under the hub's decryption key, plus the nonce and hub
// identifiers PHC needs to recognize the matching HHPP request without T
// ever having learned the user. JSON shape matches
// phc.EncryptedHubPseudonymPackage field for field.
type EHPP struct {
	EncryptedHubPseudonym string    `json:"encrypted_hub_pseudonym"` // Triple hex
	HubNonce              string    `json:"hub_nonce"`
	PHCNonce              []byte    `json:"phc_nonce"` // passed through unopened from PolymorphicPseudonymPackage.Nonce
	IssuedAt              time.Time `json:"issued_at"`
	// HubDecryptionFactor is k_h (hex scalar), the per-hub decryption
	// factor T folded into the triple's target key alongside x_T's own
	// cancellation. PHC needs it to complete the decryption; this
	// field only ever travels sealed for PHC, so k_h never appears on the
	// wire in the clear.
	HubDecryptionFactor string `json:"hub_decryption_factor"`
}

// EHPPResult is the outcome of POST /.ph/ehpp. RetryWithNewPpp mirrors the
// sealed PPP having expired or failed to unseal; surfaced in the body, not
// as an apierr code, matching phc.HHPPResult's RetryWithNewPpp shape.
type EHPPResult struct {
	RetryWithNewPpp bool   `json:"retry_with_new_ppp,omitempty"`
	SealedEHPP      []byte `json:"sealed_ehpp,omitempty"` // Sealed[EHPP].Bytes(), sealed for PHC
}

// KeyReq is a hub's ticket-backed request for its Transcryptor key part;
// identical wire shape to phc.KeyReq.
type KeyReq struct {
	Ticket string `json:"ticket"` // compact Signed[TicketContent], verified against PHC's verifying key
}

// KeyResp carries T's contribution to a hub's private key, or
// RetryWithNewTicket when the presented ticket failed to verify;
// identical wire shape to phc.KeyResp.
type KeyResp struct {
	RetryWithNewTicket bool   `json:"retry_with_new_ticket,omitempty"`
	KeyPart            string `json:"key_part,omitempty"` // hex scalar
}
