package authserver

import (
	"time"

	"github.com/pubhubs/pubhubs-core/attr"
)

// WelcomeResp is the body of GET /.ph/welcome: the catalogue of attribute
// types this AS can issue and the sources that provide them.
type WelcomeResp struct {
	Catalogue []attr.TypeInfo `json:"catalogue"`
}

// AuthStartReq is the body of POST /.ph/auth/start.
type AuthStartReq struct {
	// Source selects which attr.Source to dispatch to, e.g. "yivi".
	Source string `json:"source"`
	// Handles names the requested attribute types by the caller's own
	// choice of key; each must resolve to a TypeInfo in the catalogue.
	Handles map[string]string `json:"handles"` // handle -> attr_type_id
	// ChainedSession requests that, on completion, AS keep the disclosure
	// result available for a following card-issuance session rather than
	// returning it directly.
	ChainedSession bool `json:"chained_session,omitempty"`
}

// YiviTask is the disclosure task a client must carry out against the
// Yivi server to satisfy an AuthStartReq.
type YiviTask struct {
	DisclosureRequest string `json:"disclosure_request"` // signed JWT for the Yivi server
	RequestorURL      string `json:"requestor_url"`
	NextSessionURL    string `json:"next_session_url,omitempty"`
}

// AuthStartResp is the body of a successful POST /.ph/auth/start.
type AuthStartResp struct {
	Task  YiviTask `json:"task"`
	State []byte   `json:"state"` // Sealed[AuthState].Bytes()
}

// AuthState is what AS seals between AuthStartEP and AuthCompleteEP: just
// enough to validate and label the Yivi session result without AS having
// to keep server-side session state.
type AuthState struct {
	Source string `json:"source"`
	// HandleToAttrType maps a caller-chosen handle to the attribute type
	// id requested under it.
	HandleToAttrType map[string]string `json:"handle_to_attr_type"`
	// SourceAttrIDToHandle maps the source-specific attribute identifier
	// (e.g. a Yivi credential.attribute string) back to the handle it was
	// requested under, so AuthCompleteEP can re-key the disclosed values.
	SourceAttrIDToHandle map[string]string `json:"source_attr_id_to_handle"`
	Exp                  time.Time         `json:"exp"`
	ChainedSessionID     string            `json:"chained_session_id,omitempty"`
}

// AuthCompleteReq is the body of POST /.ph/auth/complete.
type AuthCompleteReq struct {
	// Proof is the source-specific session result proof, e.g. a Yivi
	// session-result JWT's compact serialization.
	Proof []byte `json:"proof"`
	// State is the sealed AuthState returned from AuthStartEP.
	State []byte `json:"state"`
}

// AuthCompleteResp carries one Signed<Attr> per requested handle that was
// actually disclosed; handles the source failed to disclose are omitted.
type AuthCompleteResp struct {
	Attrs map[string]string `json:"attrs"` // handle -> compact Signed[attr.Attr]
}

// AttrKeysReq is the body of POST /.ph/auth/attr-keys.
type AttrKeysReq struct {
	// SignedAttr is the compact Signed<Attr> the key should be derived
	// for; only identifying attributes qualify.
	SignedAttr string `json:"signed_attr"`
	// PrevTimestamp, if set, additionally returns the key that would have
	// been derived at that earlier timestamp, letting a client re-derive
	// an old user-object key after rotating forward.
	PrevTimestamp *time.Time `json:"prev_timestamp,omitempty"`
}

// AttrKeysResp carries one or two HKDF-derived keys: Current always, Prev
// only if PrevTimestamp was supplied and valid.
type AttrKeysResp struct {
	Current []byte `json:"current"`
	Prev    []byte `json:"prev,omitempty"`
}
