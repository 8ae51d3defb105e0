package authserver

import (
	"context"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
)

const defaultAuthStateValidity = 10 * time.Minute

// AuthStart implements POST /.ph/auth/start: resolves the
// requested handles to known attribute types, asks the corresponding
// attr.Source to build a disclosure request, and seals an AuthState the
// client must present unchanged to AuthComplete.
func (s *Server) AuthStart(ctx context.Context, req AuthStartReq) (*AuthStartResp, *apierr.Error) {
	if _, aerr := s.snapshot(); aerr != nil {
		return nil, aerr
	}

	source, ok := s.Sources.Get(req.Source)
	if !ok {
		return nil, apierr.New(apierr.BadRequest, "unknown attribute source %q", req.Source)
	}

	types := make([]attr.TypeInfo, 0, len(req.Handles))
	sourceAttrIDToHandle := make(map[string]string, len(req.Handles))
	handleToAttrType := make(map[string]string, len(req.Handles))
	for handle, attrTypeID := range req.Handles {
		info, ok := s.lookupType(attrTypeID)
		if !ok {
			return nil, apierr.New(apierr.BadRequest, "unknown attribute type %q", attrTypeID)
		}
		if info.Source != req.Source {
			return nil, apierr.New(apierr.BadRequest, "attribute type %q is not provided by source %q", attrTypeID, req.Source)
		}
		types = append(types, info)
		sourceAttrIDToHandle[info.SourceAttrID] = handle
		handleToAttrType[handle] = attrTypeID
	}

	disclosure, err := source.BuildDisclosureRequest(ctx, types)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	validity := s.AuthStateValidity
	if validity <= 0 {
		validity = defaultAuthStateValidity
	}
	exp := time.Now().Add(validity)

	var chainedSessionID string
	var nextSessionURL string
	if req.ChainedSession && s.Chained != nil {
		chainedSessionID = string(id.NewSessionID())
		s.Chained.Register(chainedSessionID, validity)
		nextSessionURL = s.NextSessionBaseURL + YiviNextSessionPath + "?session=" + chainedSessionID
	}

	state := AuthState{
		Source:               req.Source,
		HandleToAttrType:     handleToAttrType,
		SourceAttrIDToHandle: sourceAttrIDToHandle,
		Exp:                  exp,
		ChainedSessionID:     chainedSessionID,
	}
	sealed, err := envelope.Seal(s.authStateSealingKey(), authStatePurpose, state)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	return &AuthStartResp{
		Task: YiviTask{
			DisclosureRequest: disclosure.SignedJWT,
			RequestorURL:      disclosure.RequestorURL,
			NextSessionURL:    nextSessionURL,
		},
		State: sealed.Bytes(),
	}, nil
}

func (s *Server) lookupType(attrTypeID string) (attr.TypeInfo, bool) {
	for _, t := range s.Catalogue {
		if t.AttrTypeID == attrTypeID {
			return t, true
		}
	}
	return attr.TypeInfo{}, false
}
