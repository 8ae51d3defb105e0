package transcryptor

import (
	"context"
	"time"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/phccrypto"
)

// EHPP implements POST /.ph/ehpp: unseals PHC's PPP, applies the
// hub-specific RSK transform using factors derived from FactorSecret and
// hub_id, and seals the result for PHC. T retains no record of this call
// once it returns.
func (s *Server) EHPP(ctx context.Context, req EHPPRequest) (*EHPPResult, *apierr.Error) {
	stageStart := time.Now()
	snap, aerr := s.snapshot()
	if aerr != nil {
		metrics.PipelineStageFailures.WithLabelValues("ehpp", string(aerr.Code)).Inc()
		return nil, aerr
	}

	phcKey, err := s.phcSharedSealingKey(snap)
	if err != nil {
		return nil, apierr.New(apierr.Malconfigured, "%s", err)
	}

	sealedPPP, err := envelope.SealedFromBytes[PolymorphicPseudonymPackage](req.SealedPPP)
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "malformed sealed ppp")
	}
	ppp, err := sealedPPP.Open(phcKey, pppPurpose)
	if err != nil {
		metrics.PipelineStageFailures.WithLabelValues("ehpp", string(apierr.BadRequest)).Inc()
		return &EHPPResult{RetryWithNewPpp: true}, nil
	}

	pp, err := pep.TripleFromHex(ppp.PolymorphicPseudonym)
	if err != nil {
		return nil, apierr.New(apierr.BadRequest, "malformed polymorphic pseudonym")
	}

	sH := phccrypto.PseudonymisationFactor(s.FactorSecret, req.HubID)
	kH := phccrypto.DecryptionFactor(s.FactorSecret, req.HubID)

	// pp still targets the combined master key x_PHC*x_T*B (PHC only
	// rerandomized it). Folding in x_T's own inverse alongside k_h leaves
	// the triple targeting k_h*x_PHC: PHC can finish the job with its own
	// half plus the k_h carried in the sealed EHPP.
	k := s.MasterKey.AsScalar().Invert().Mul(kH)
	encHubPseudonym := pp.RSK(sH, k)

	ehpp := EHPP{
		EncryptedHubPseudonym: encHubPseudonym.ToHex(),
		HubNonce:              req.HubNonce,
		PHCNonce:              ppp.Nonce,
		IssuedAt:              time.Now(),
		HubDecryptionFactor:   kH.ToHex(),
	}
	sealed, err := envelope.Seal(phcKey, ehppPurpose, ehpp)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	metrics.PipelineStageDuration.WithLabelValues("ehpp").Observe(time.Since(stageStart).Seconds())
	return &EHPPResult{SealedEHPP: sealed.Bytes()}, nil
}
