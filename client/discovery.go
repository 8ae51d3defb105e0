// Package client implements the HTTP-facing pieces every PubHubs process
// other than the server itself needs: the discovery transport
// constellation.Converge drives, and (in pipeline.go) the PPP/EHPP/HHPP
// round trip a hub or end-user client runs to obtain a hashed hub
// pseudonym.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pubhubs/pubhubs-core/constellation"
)

// HTTPDiscoveryClient implements constellation.Client over plain HTTP,
// used by every server role to converge on PHC's published constellation
// and by cmd/phctool to inspect a running deployment.
type HTTPDiscoveryClient struct {
	HTTPClient *http.Client
}

func (c HTTPDiscoveryClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Info fetches GET /.ph/discovery/info from serverURL.
func (c HTTPDiscoveryClient) Info(ctx context.Context, serverURL string) (constellation.Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinPath(serverURL, "/.ph/discovery/info"), nil)
	if err != nil {
		return constellation.Info{}, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return constellation.Info{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return constellation.Info{}, fmt.Errorf("client: discovery info from %s: status %d", serverURL, resp.StatusCode)
	}
	var info constellation.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return constellation.Info{}, fmt.Errorf("client: decode discovery info from %s: %w", serverURL, err)
	}
	return info, nil
}

// Run triggers POST /.ph/discovery/run on serverURL, asking that server to
// re-fetch and adopt PHC's current constellation.
func (c HTTPDiscoveryClient) Run(ctx context.Context, serverURL string) (constellation.RunOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinPath(serverURL, "/.ph/discovery/run"), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("client: discovery run on %s: status %d", serverURL, resp.StatusCode)
	}
	var body struct {
		Outcome constellation.RunOutcome `json:"outcome"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("client: decode discovery run response from %s: %w", serverURL, err)
	}
	return body.Outcome, nil
}

func joinPath(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}
