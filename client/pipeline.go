package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/phc"
	"github.com/pubhubs/pubhubs-core/transcryptor"
)

// EntryClient drives the PPP -> EHPP -> HHPP leg of the pseudonymization
// pipeline on behalf of an already-registered user: it never
// sees a plaintext pseudonym, only forwards the sealed packages each
// server hands it on to the next.
type EntryClient struct {
	HTTPClient      *http.Client
	PHCURL          string
	TranscryptorURL string
}

func (c *EntryClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// HubPseudonym runs the full conversion for hubID/hubNonce and returns the
// Sealed[HashedHubPseudonymPackage] bytes, still sealed for the hub -- the
// caller's job is only to deliver them there.
func (c *EntryClient) HubPseudonym(ctx context.Context, bearerToken, hubID, hubNonce string) ([]byte, bool, error) {
	pppResp, err := postBearer[phc.PPPResponse](ctx, c.httpClient(), c.PHCURL+"/.ph/user/ppp", bearerToken, nil)
	if err != nil {
		return nil, false, fmt.Errorf("client: ppp: %w", err)
	}

	ehppReq := transcryptor.EHPPRequest{HubNonce: hubNonce, HubID: hubID, SealedPPP: pppResp.SealedPPP}
	ehppResp, err := postBearer[transcryptor.EHPPResult](ctx, c.httpClient(), c.TranscryptorURL+"/.ph/ehpp", "", ehppReq)
	if err != nil {
		return nil, false, fmt.Errorf("client: ehpp: %w", err)
	}
	if ehppResp.RetryWithNewPpp {
		return nil, true, nil
	}

	hhppReq := phc.HHPPRequest{SealedEHPP: ehppResp.SealedEHPP, HubID: id.HubID(hubID)}
	hhppResp, err := postBearer[phc.HHPPResult](ctx, c.httpClient(), c.PHCURL+"/.ph/user/hhpp", bearerToken, hhppReq)
	if err != nil {
		return nil, false, fmt.Errorf("client: hhpp: %w", err)
	}
	if hhppResp.RetryWithNewPpp {
		return nil, true, nil
	}
	return hhppResp.SealedHHPP, false, nil
}

// postBearer POSTs body (or performs a bearer-only GET-style POST if body
// is nil) to url, decoding the apierr.Resp[T] envelope every PubHubs
// endpoint replies with.
func postBearer[T any](ctx context.Context, hc *http.Client, url, bearerToken string, body interface{}) (T, error) {
	return postWithHeaders[T](ctx, hc, url, bearerToken, nil, body)
}

// postWithHeaders is postBearer plus caller-supplied extra headers, used
// where a request needs to carry something beyond a bearer token.
func postWithHeaders[T any](ctx context.Context, hc *http.Client, url, bearerToken string, headers map[string]string, body interface{}) (T, error) {
	var zero T

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zero, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doAndDecode[T](hc, req, url)
}

// postRaw POSTs an uninterpreted string body (e.g. a compact Signed
// envelope posted as-is rather than JSON-wrapped), used by the hub's
// ticket request where PHC reads the raw body as the JWT itself.
func postRaw[T any](ctx context.Context, hc *http.Client, url string, headers map[string]string, body string) (T, error) {
	var zero T
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		return zero, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doAndDecode[T](hc, req, url)
}

func doAndDecode[T any](hc *http.Client, req *http.Request, url string) (T, error) {
	var zero T
	resp, err := hc.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	var wrapped apierr.Resp[T]
	if err := json.NewDecoder(resp.Body).Decode(&wrapped); err != nil {
		return zero, fmt.Errorf("decode response from %s: %w", url, err)
	}
	if wrapped.Err != nil {
		return zero, fmt.Errorf("%s: %s", url, *wrapped.Err)
	}
	if wrapped.Ok == nil {
		return zero, fmt.Errorf("%s: empty response", url)
	}
	return *wrapped.Ok, nil
}
