package authserver

import (
	"context"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/envelope"
)

const defaultAuthWindow = 7 * 24 * time.Hour

// AuthComplete implements POST /.ph/auth/complete: unseals the
// AuthState from AuthStart, validates the source's session-result proof,
// and signs one Attr per handle that was actually disclosed.
func (s *Server) AuthComplete(ctx context.Context, req AuthCompleteReq) (*AuthCompleteResp, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}

	sealed, err := envelope.SealedFromBytes[AuthState](req.State)
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "malformed auth state")
	}
	state, err := sealed.Open(s.authStateSealingKey(), authStatePurpose)
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "invalid or expired auth state")
	}
	if time.Now().After(state.Exp) {
		return nil, apierr.New(apierr.BadRequest, "auth state expired")
	}

	source, ok := s.Sources.Get(state.Source)
	if !ok {
		return nil, apierr.New(apierr.Malconfigured, "auth state names unknown source %q", state.Source)
	}

	types := make([]attr.TypeInfo, 0, len(state.HandleToAttrType))
	for _, attrTypeID := range state.HandleToAttrType {
		info, ok := s.lookupType(attrTypeID)
		if !ok {
			return nil, apierr.New(apierr.Malconfigured, "auth state names unknown attribute type %q", attrTypeID)
		}
		types = append(types, info)
	}

	disclosed, err := source.ValidateSessionResult(ctx, req.Proof, types)
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "invalid disclosure proof: %s", err)
	}

	validity := s.AttrSigningValidity
	if validity <= 0 {
		validity = defaultAuthWindow
	}

	resp := AuthCompleteResp{Attrs: make(map[string]string, len(disclosed))}
	for sourceAttrID, value := range disclosed {
		handle, ok := state.SourceAttrIDToHandle[sourceAttrID]
		if !ok {
			// The source disclosed more than was requested; never trust
			// an extra disclosure.
			continue
		}
		attrTypeID := state.HandleToAttrType[handle]
		info, ok := s.lookupType(attrTypeID)
		if !ok {
			continue
		}

		a := attr.Attr{
			AttrTypeID:  info.AttrTypeID,
			Value:       value,
			Bannable:    info.Bannable,
			Identifying: info.Identifying,
		}
		signed, err := envelope.NewSigned(s.signingKey(snap), a, validity)
		if err != nil {
			return nil, apierr.New(apierr.InternalError, "%s", err)
		}
		resp.Attrs[handle] = signed.String()
	}

	if state.ChainedSessionID != "" && s.Chained != nil {
		s.Chained.MarkDisclosed(state.ChainedSessionID, req.Proof)
	}

	return &resp, nil
}
