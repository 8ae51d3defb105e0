package authserver

import (
	"context"

	"github.com/pubhubs/pubhubs-core/apierr"
)

// YiviReleaseNextSession implements YiviReleaseNextSessionEP: a
// client polls this once it expects the chained card-issuance session's
// disclosure result to have been posted to AS's next_session callback.
func (s *Server) YiviReleaseNextSession(ctx context.Context, sessionID string) ([]byte, *apierr.Error) {
	if _, aerr := s.snapshot(); aerr != nil {
		return nil, aerr
	}
	if s.Chained == nil {
		return nil, apierr.New(apierr.BadRequest, "chained sessions are not enabled on this server")
	}
	result, ok := s.Chained.Release(sessionID)
	if !ok {
		return nil, apierr.New(apierr.PleaseRetry, "chained session result not yet available")
	}
	return result, nil
}
