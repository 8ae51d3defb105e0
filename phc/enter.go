package phc

import (
	"context"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
	"github.com/pubhubs/pubhubs-core/server"
)

// EnterOutcome discriminates EnterResult's variants, mirroring the
// domain-level responses that are surfaced inside the response
// body rather than as apierr envelope errors.
type EnterOutcome string

const (
	EnterOK                          EnterOutcome = "Ok"
	EnterRetryWithNewIdentifyingAttr EnterOutcome = "RetryWithNewIdentifyingAttr"
	EnterRetryWithNewAddAttr         EnterOutcome = "RetryWithNewAddAttr"
	EnterConflict                    EnterOutcome = "Conflict"
)

// EnterResult is the success-path body of POST /.ph/user/enter.
type EnterResult struct {
	Outcome  EnterOutcome   `json:"outcome"`
	Response *EnterResponse `json:"response,omitempty"`
}

// defaultAuthTokenValidity is used when the caller's config leaves it unset; kept
// here rather than zero so a misconfigured server fails safe to a short
// validity instead of tokens that never expire.
const defaultAuthTokenValidity = 24 * time.Hour

// Enter implements POST /.ph/user/enter's resolution order.
func (s *Server) Enter(ctx context.Context, req EnterRequest, authTokenValidity time.Duration) (*EnterResult, *apierr.Error) {
	enterStart := time.Now()
	snap, aerr := s.snapshot()
	if aerr != nil {
		metrics.PipelineStageFailures.WithLabelValues("enter_complete", string(aerr.Code)).Inc()
		return nil, aerr
	}
	if authTokenValidity <= 0 {
		authTokenValidity = defaultAuthTokenValidity
	}

	asVK, err := s.asVerifyingKey(snap)
	if err != nil {
		return nil, apierr.New(apierr.Malconfigured, "%s", err)
	}

	disclosed, aerr := s.validateAttrs(ctx, req.Attrs, asVK)
	if aerr != nil {
		return nil, aerr
	}

	candidateUser, conflict, err := s.resolveCandidateUser(ctx, disclosed)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}
	if conflict {
		return &EnterResult{Outcome: EnterConflict}, nil
	}

	var user *storage.User
	if candidateUser != nil {
		user = candidateUser
	} else if req.BearerToken != "" {
		uid, aerr := s.validateBearer(snap, req.BearerToken)
		if aerr != nil {
			return nil, aerr
		}
		user, err = s.Store.Users().GetUser(ctx, uid)
		if err != nil {
			return nil, apierr.New(apierr.InternalError, "%s", err)
		}
	} else {
		user, err = s.registerUser(ctx, snap)
		if err != nil {
			return nil, apierr.New(apierr.InternalError, "%s", err)
		}
	}

	outcome, err := s.mergeAttrs(ctx, user, disclosed, req.RemoveAttrIDs)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}
	if outcome != EnterOK {
		return &EnterResult{Outcome: outcome}, nil
	}

	pkg, aerr := s.issueAuthToken(snap, user.ID, authTokenValidity)
	if aerr != nil {
		return nil, aerr
	}

	metrics.PipelineStageDuration.WithLabelValues("enter_complete").Observe(time.Since(enterStart).Seconds())

	return &EnterResult{
		Outcome: EnterOK,
		Response: &EnterResponse{
			AuthTokenPackage: pkg,
			UserState:        summarize(user),
		},
	}, nil
}

func (s *Server) validateAttrs(ctx context.Context, raw []string, asVK envelope.VerifyingKey) ([]disclosedAttr, *apierr.Error) {
	disclosed := make([]disclosedAttr, 0, len(raw))
	for _, r := range raw {
		a, err := envelope.ParseSigned[attr.Attr](r).Open(asVK)
		if err != nil {
			return nil, apierr.New(apierr.BadRequest, "invalid attribute signature")
		}
		aid := a.ComputeID(s.AttrSecret)

		state, err := s.Store.AttrStates().GetAttrState(ctx, aid)
		if err == nil && state.Banned {
			return nil, apierr.New(apierr.BadRequest, "attribute is banned")
		}
		disclosed = append(disclosed, disclosedAttr{Attr: a, AttrID: aid})
	}
	return disclosed, nil
}

// resolveCandidateUser finds the unique user referenced by MayIdentifyUser
// of any disclosed identifying attribute.
func (s *Server) resolveCandidateUser(ctx context.Context, disclosed []disclosedAttr) (user *storage.User, conflict bool, err error) {
	seen := map[id.UserID]bool{}
	for _, d := range disclosed {
		if !d.Attr.Identifying {
			continue
		}
		state, err := s.Store.AttrStates().GetAttrState(ctx, d.AttrID)
		if err != nil || state.MayIdentifyUser == nil {
			continue
		}
		seen[*state.MayIdentifyUser] = true
	}
	if len(seen) > 1 {
		return nil, true, nil
	}
	for uid := range seen {
		u, err := s.Store.Users().GetUser(ctx, uid)
		if err != nil {
			return nil, false, err
		}
		return u, false, nil
	}
	return nil, false, nil
}

func (s *Server) registerUser(ctx context.Context, snap *server.RunningState) (*storage.User, error) {
	pp, err := s.globalPublicKey(snap)
	if err != nil {
		return nil, err
	}
	user := &storage.User{
		ID:                   id.NewUserID(),
		PolymorphicPseudonym: pp.EncryptRandom().ToHex(),
		CreatedAt:            time.Now(),
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// mergeAttrs folds disclosed attributes into user's record and applies
// any requested removals, enforcing the identity and ban rules.
// Returns EnterOK on success, or a retry outcome if a rule was violated.
func (s *Server) mergeAttrs(ctx context.Context, user *storage.User, disclosed []disclosedAttr, removeAttrIDs []id.AttrID) (EnterOutcome, error) {
	for _, d := range disclosed {
		ref := storage.AttrRef{AttrID: d.AttrID, AttrTypeID: d.Attr.AttrTypeID}

		if d.Attr.Identifying && !containsRef(user.IdentifyingAttrs, d.AttrID) {
			user.IdentifyingAttrs = append(user.IdentifyingAttrs, ref)
		}
		if d.Attr.Bannable && !containsRef(user.BannableAttrs, d.AttrID) {
			user.BannableAttrs = append(user.BannableAttrs, ref)
		}

		if d.Attr.Identifying || d.Attr.Bannable {
			st, err := s.Store.AttrStates().GetAttrState(ctx, d.AttrID)
			if err != nil {
				st = &storage.AttrState{AttrID: d.AttrID}
			}
			if d.Attr.Identifying {
				uid := user.ID
				st.MayIdentifyUser = &uid
			}
			if d.Attr.Bannable && !containsUser(st.BansUsers, user.ID) {
				st.BansUsers = append(st.BansUsers, user.ID)
			}
			if err := s.Store.AttrStates().UpsertAttrState(ctx, st); err != nil {
				return "", err
			}
		}
	}

	for _, removeID := range removeAttrIDs {
		if idx := indexOfRef(user.IdentifyingAttrs, removeID); idx >= 0 {
			if len(user.IdentifyingAttrs) == 1 {
				return EnterRetryWithNewIdentifyingAttr, nil
			}
			user.IdentifyingAttrs = removeRefAt(user.IdentifyingAttrs, idx)
		}
		if idx := indexOfRef(user.BannableAttrs, removeID); idx >= 0 {
			st, err := s.Store.AttrStates().GetAttrState(ctx, removeID)
			if err == nil && !st.CanRemove(user.ID) {
				return EnterRetryWithNewAddAttr, nil
			}
			user.BannableAttrs = removeRefAt(user.BannableAttrs, idx)
			if err == nil {
				st.BansUsers = removeUser(st.BansUsers, user.ID)
				if err := s.Store.AttrStates().UpsertAttrState(ctx, st); err != nil {
					return "", err
				}
			}
		}
	}

	// A user must carry at least one identifying attribute
	// after the operation completes. A caller disclosing only bannable or
	// other non-identifying attributes for a fresh registration would
	// otherwise leave the user with none.
	if len(user.IdentifyingAttrs) == 0 {
		return EnterRetryWithNewIdentifyingAttr, nil
	}

	newETag, err := s.Store.Users().UpdateUser(ctx, user)
	if err != nil {
		return "", err
	}
	user.ETag = newETag
	return EnterOK, nil
}

func containsRef(refs []storage.AttrRef, aid id.AttrID) bool {
	return indexOfRef(refs, aid) >= 0
}

func indexOfRef(refs []storage.AttrRef, aid id.AttrID) int {
	for i, r := range refs {
		if r.AttrID == aid {
			return i
		}
	}
	return -1
}

func removeRefAt(refs []storage.AttrRef, idx int) []storage.AttrRef {
	out := make([]storage.AttrRef, 0, len(refs)-1)
	out = append(out, refs[:idx]...)
	return append(out, refs[idx+1:]...)
}

func containsUser(users []id.UserID, u id.UserID) bool {
	for _, x := range users {
		if x == u {
			return true
		}
	}
	return false
}

func removeUser(users []id.UserID, u id.UserID) []id.UserID {
	out := make([]id.UserID, 0, len(users))
	for _, x := range users {
		if x != u {
			out = append(out, x)
		}
	}
	return out
}

func (s *Server) issueAuthToken(snap *server.RunningState, userID id.UserID, validity time.Duration) (AuthTokenPackage, *apierr.Error) {
	now := time.Now()
	token := AuthToken{UserID: userID, IssuedAt: now, ExpiresAt: now.Add(validity)}
	signed, err := envelope.NewSigned(s.signingKey(snap), token, validity)
	if err != nil {
		return AuthTokenPackage{}, apierr.New(apierr.InternalError, "%s", err)
	}
	return AuthTokenPackage{AuthToken: signed.String(), ExpiresAt: token.ExpiresAt}, nil
}

func (s *Server) validateBearer(snap *server.RunningState, raw string) (id.UserID, *apierr.Error) {
	token, err := envelope.ParseSigned[AuthToken](raw).Open(s.signingKey(snap).VerifyingKey())
	if err != nil {
		return "", apierr.New(apierr.BadRequest, "invalid auth token")
	}
	return token.UserID, nil
}

func summarize(user *storage.User) UserStateSummary {
	idAttrs := make([]string, len(user.IdentifyingAttrs))
	for i, r := range user.IdentifyingAttrs {
		idAttrs[i] = string(r.AttrID)
	}
	bAttrs := make([]string, len(user.BannableAttrs))
	for i, r := range user.BannableAttrs {
		bAttrs[i] = string(r.AttrID)
	}
	return UserStateSummary{
		ID:                   user.ID,
		PolymorphicPseudonym: user.PolymorphicPseudonym,
		IdentifyingAttrs:     idAttrs,
		BannableAttrs:        bAttrs,
		StoredObjects:        append([]string(nil), user.StoredObjectIDs...),
	}
}
