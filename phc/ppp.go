package phc

import (
	"context"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/pep"
)

// PPPResponse is the body of a successful POST /.ph/user/ppp: a
// rerandomized copy of the user's polymorphic pseudonym and a nonce PHC
// will later recognize in the matching HHPP request, sealed for the
// Transcryptor.
type PPPResponse struct {
	SealedPPP []byte `json:"sealed_ppp"` // Sealed[PolymorphicPseudonymPackage].Bytes()
}

// PPP implements POST /.ph/user/ppp: rerandomizes the bearer's stored
// polymorphic pseudonym and packages it with a self-sealed nonce so PHC
// can later bind the HHPP call that redeems it to this same user and
// issuance.
func (s *Server) PPP(ctx context.Context, bearerToken string) (*PPPResponse, *apierr.Error) {
	stageStart := time.Now()
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}
	userID, aerr := s.validateBearer(snap, bearerToken)
	if aerr != nil {
		return nil, aerr
	}

	user, err := s.Store.Users().GetUser(ctx, userID)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	pp, err := pep.TripleFromHex(user.PolymorphicPseudonym)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "stored polymorphic pseudonym is malformed: %s", err)
	}
	rerand := pp.Rerandomize()

	now := time.Now()
	nonce := PpNonce{UserID: userID, NotValidAfter: now.Add(s.ppNonceValidity())}
	sealedNonce, err := envelope.Seal(s.PPNonceKey, ppPurpose, nonce)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	ppp := PolymorphicPseudonymPackage{
		PolymorphicPseudonym: rerand.ToHex(),
		Nonce:                sealedNonce.Bytes(),
	}

	tKey, err := s.tSharedSealingKey(snap)
	if err != nil {
		return nil, apierr.New(apierr.Malconfigured, "%s", err)
	}
	sealedPPP, err := envelope.Seal(tKey, pppPurpose, ppp)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	metrics.PipelineStageDuration.WithLabelValues("ppp").Observe(time.Since(stageStart).Seconds())
	return &PPPResponse{SealedPPP: sealedPPP.Bytes()}, nil
}

func (s *Server) ppNonceValidity() time.Duration {
	if s.PPNonceValidity <= 0 {
		return 5 * time.Minute
	}
	return s.PPNonceValidity
}
