package phc

import (
	"context"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/pep"
)

// HHPPResult is the outcome of POST /.ph/user/hhpp. RetryWithNewPpp
// mirrors the PPP-side nonce having expired or not matching the bearer;
// it is surfaced in the body, not as an apierr code.
type HHPPResult struct {
	RetryWithNewPpp bool   `json:"retry_with_new_ppp,omitempty"`
	SealedHHPP      []byte `json:"sealed_hhpp,omitempty"` // Sealed[HashedHubPseudonymPackage].Bytes()
}

// HHPP implements POST /.ph/user/hhpp: unseals the Transcryptor's EHPP,
// checks the embedded nonce against the bearer and freshness window, then
// decrypts and hashes the per-hub pseudonym point, sealing the result for
// the hub that will ultimately consume it.
func (s *Server) HHPP(ctx context.Context, bearerToken string, req HHPPRequest) (*HHPPResult, *apierr.Error) {
	stageStart := time.Now()
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}
	userID, aerr := s.validateBearer(snap, bearerToken)
	if aerr != nil {
		return nil, aerr
	}

	tKey, err := s.tSharedSealingKey(snap)
	if err != nil {
		return nil, apierr.New(apierr.Malconfigured, "%s", err)
	}
	sealedEHPP, err := envelope.SealedFromBytes[EncryptedHubPseudonymPackage](req.SealedEHPP)
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "malformed sealed ehpp")
	}
	ehpp, err := sealedEHPP.Open(tKey, ehppPurpose)
	if err != nil {
		metrics.PipelineStageFailures.WithLabelValues("hhpp", string(apierr.BadRequest)).Inc()
		return nil, apierr.New(apierr.BadRequest, "could not unseal ehpp")
	}

	sealedNonce, err := envelope.SealedFromBytes[PpNonce](ehpp.PHCNonce)
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "malformed phc nonce")
	}
	nonce, err := sealedNonce.Open(s.PPNonceKey, ppPurpose)
	if err != nil {
		return &HHPPResult{RetryWithNewPpp: true}, nil
	}
	if nonce.UserID != userID || time.Now().After(nonce.NotValidAfter) {
		return &HHPPResult{RetryWithNewPpp: true}, nil
	}

	encHubPseudonym, err := pep.TripleFromHex(ehpp.EncryptedHubPseudonym)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "malformed encrypted hub pseudonym: %s", err)
	}
	kH, err := pep.ScalarFromHex(ehpp.HubDecryptionFactor)
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "malformed hub decryption factor")
	}
	decryptKey := pep.NewPrivateKey(kH.Mul(s.MasterKey.AsScalar()))
	hubPseudonymPoint := encHubPseudonym.Decrypt(decryptKey)
	hashedHubPseudonym := pep.HashToPoint(hubPseudonymPoint.Bytes())

	ticketDigest, err := s.hubTicketDigest(ctx, req.HubID)
	if err != nil {
		return nil, apierr.New(apierr.Malconfigured, "%s", err)
	}

	hhpp := HashedHubPseudonymPackage{
		HashedHubPseudonym: hashedHubPseudonym.ToHex(),
		PPIssuedAt:         ehpp.IssuedAt,
		HubNonce:           ehpp.HubNonce,
	}
	sealed, err := envelope.Seal(s.hubSealingKey(ticketDigest), hhppPurpose, hhpp)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	metrics.PipelineStageDuration.WithLabelValues("hhpp").Observe(time.Since(stageStart).Seconds())
	return &HHPPResult{SealedHHPP: sealed.Bytes()}, nil
}
