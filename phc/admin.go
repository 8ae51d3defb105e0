package phc

import (
	"context"
	"encoding/json"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/envelope"
)

// AdminConfigPatch is the signed payload POST /.ph/admin/config carries.
// Pointer is an RFC 6901 JSON Pointer resolved
// against the server's own Config document; Value replaces whatever it
// points to. This JSON-Pointer-based update is the only admin config
// mutation; there is no whole-document replacement endpoint.
type AdminConfigPatch struct {
	Pointer string          `json:"pointer"`
	Value   json.RawMessage `json:"value"`
}

// MessageCode implements envelope.HavingMessageCode.
func (AdminConfigPatch) MessageCode() envelope.MessageCode { return envelope.AdminConfigPatchCode }

// ConfigPatcher applies a validated JSON-Pointer patch to the process's
// running configuration and triggers a graceful restart,
// rebuilding PHC's constellation whenever the patch changes a
// public parameter. Implemented by cmd/phc, which owns the Config value
// and the App's RunningState rebuild; phc.Server only authenticates the
// request and hands off the already-decoded patch.
type ConfigPatcher interface {
	ApplyPatch(ctx context.Context, pointer string, value json.RawMessage) error
}

// AdminConfig implements POST /.ph/admin/config: the request is verified
// against AdminVerifyingKey, an out-of-band key distinct from any
// constellation member's -- a compromised hub or peer server's signing
// key must never be sufficient to reconfigure PHC.
func (s *Server) AdminConfig(ctx context.Context, signedPatch string) *apierr.Error {
	if s.ConfigPatcher == nil {
		return apierr.New(apierr.InternalError, "admin config patching not wired")
	}

	patch, err := envelope.ParseSigned[AdminConfigPatch](signedPatch).Open(s.AdminVerifyingKey)
	if err != nil {
		return apierr.New(apierr.BadRequest, "invalid admin request: %s", err)
	}

	if err := s.ConfigPatcher.ApplyPatch(ctx, patch.Pointer, patch.Value); err != nil {
		return apierr.New(apierr.InternalError, "apply config patch: %s", err)
	}
	return nil
}
