package apierr

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOnWireDemotesRemovedCodes(t *testing.T) {
	require.Equal(t, BadRequest, OnWire(InvalidSignature))
	require.Equal(t, BadRequest, OnWire(Expired))
	require.Equal(t, VersionConflict, OnWire(VersionConflict))
}

func TestRetryableClassification(t *testing.T) {
	require.True(t, New(PleaseRetry, "try again").Retryable())
	require.True(t, New(NotYetReady, "still discovering").Retryable())
	require.False(t, New(BadRequest, "nope").Retryable())
	require.False(t, New(InternalError, "boom").Retryable())
}

func TestRespEnvelopeJSON(t *testing.T) {
	type payload struct {
		Value int `json:"value"`
	}

	ok := OkResp(payload{Value: 42})
	data, err := json.Marshal(ok)
	require.NoError(t, err)
	require.JSONEq(t, `{"Ok":{"value":42}}`, string(data))

	fail := ErrResp[payload](InvalidSignature)
	data, err = json.Marshal(fail)
	require.NoError(t, err)
	require.JSONEq(t, `{"Err":"BadRequest"}`, string(data))
}

func TestFromErrorWrapsPlainErrorsAsInternalError(t *testing.T) {
	resp := FromError[int](errors.New("boom"))
	require.NotNil(t, resp.Err)
	require.Equal(t, InternalError, *resp.Err)
}

func TestFromErrorPreservesAndDemotesAPIError(t *testing.T) {
	resp := FromError[int](New(Expired, "token too old"))
	require.NotNil(t, resp.Err)
	require.Equal(t, BadRequest, *resp.Err)
}
