package attr

import "context"

// TypeInfo describes one attribute type the welcome catalogue advertises:
// which source provides it, and under what source-specific identifier.
type TypeInfo struct {
	AttrTypeID  string `json:"attr_type_id"`
	Source      string `json:"source"`
	Bannable    bool   `json:"bannable"`
	Identifying bool   `json:"identifying"`
	// SourceAttrID is the source's own identifier for this attribute type,
	// e.g. a Yivi credential.attribute string.
	SourceAttrID string `json:"source_attr_id"`
}

// DisclosureRequest is the source-specific request AS hands back to the
// client to start a disclosure, opaque to AS beyond routing it onward.
type DisclosureRequest struct {
	// SignedJWT is the source-specific disclosure request, already signed
	// for that source's server, ready to hand to the client.
	SignedJWT string `json:"signed_jwt"`
	// RequestorURL is where the client should POST the disclosure/session
	// start, as advertised by the source.
	RequestorURL string `json:"requestor_url"`
}

// SessionResult is what a source reports back once a disclosure session
// completes: one Attr per requested handle, keyed the same way the
// request was built, or an error if disclosure failed or was incomplete.
type SessionResult struct {
	Disclosed map[string]Attr
}

// Source is the capability trait a per-provenance attribute source
// implements: building a
// disclosure request for a set of requested types, and validating the
// resulting session proof. Adding a new source (beyond Yivi) means adding
// a new Source implementation, not touching authserver's handler code.
type Source interface {
	// Name identifies this source, matching TypeInfo.Source.
	Name() string

	// BuildDisclosureRequest builds a source-specific disclosure request
	// for the given attribute types, signed for the source's server.
	BuildDisclosureRequest(ctx context.Context, types []TypeInfo) (DisclosureRequest, error)

	// ValidateSessionResult verifies a source-specific session proof
	// (opaque bytes, e.g. a signed JWT) and extracts the disclosed
	// attribute values, keyed by the source attribute id they satisfy.
	ValidateSessionResult(ctx context.Context, proof []byte, types []TypeInfo) (map[string]string, error)
}

// Registry looks up a Source by name, used by authserver to dispatch a
// disclosure request to the attribute type's configured source.
type Registry map[string]Source

// Get returns the Source registered under name, if any.
func (r Registry) Get(name string) (Source, bool) {
	s, ok := r[name]
	return s, ok
}
