// Package followboot is the constellation-following half of process
// wiring shared by the Transcryptor and authentication server: unlike
// PHC, neither assembles a constellation of its own, they only adopt
// whatever PHC currently publishes.
package followboot

import (
	"context"
	"fmt"

	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/server"
)

// DiscoveryClient is the subset of constellation.Client a Follower needs.
type DiscoveryClient interface {
	Info(ctx context.Context, serverURL string) (constellation.Info, error)
}

// Follower builds a *server.RunningState by fetching PHC's published
// constellation and decoding the verifying keys of the peers this
// server's own business logic needs to talk to.
type Follower struct {
	Self       constellation.ServerName
	PHCURL     string
	SigningKey envelope.SigningKey
	Discovery  DiscoveryClient
	// Peers lists which other servers' verifying keys this server's own
	// RunningState.PeerVerifyingKeys must carry.
	Peers []constellation.ServerName

	// BaseURL and Aliases identify which constellation URLs this server
	// accepts as naming itself; a published constellation whose entry for
	// Self points elsewhere is rejected rather than adopted.
	BaseURL string
	Aliases constellation.HostAliases
}

// Build fetches PHC's current discovery info and, once it has published a
// constellation, assembles this server's own RunningState from it.
func (f *Follower) Build(ctx context.Context) (*server.RunningState, error) {
	info, err := f.Discovery.Info(ctx, f.PHCURL)
	if err != nil {
		return nil, fmt.Errorf("followboot: fetch phc discovery info: %w", err)
	}
	if info.Constellation == nil {
		return nil, fmt.Errorf("followboot: phc has not published a constellation yet")
	}
	c := *info.Constellation

	self, ok := c.ServerByName(f.Self)
	if !ok {
		return nil, fmt.Errorf("followboot: constellation has no entry for %s", f.Self)
	}
	if f.BaseURL != "" && !f.Aliases.Matches(f.BaseURL, self.URL) {
		return nil, fmt.Errorf("followboot: constellation names %s at %s, which is not this server's base url or a configured host alias", f.Self, self.URL)
	}
	if want := f.SigningKey.VerifyingKey().ToHex(); self.JWTKey != want {
		return nil, fmt.Errorf("followboot: constellation carries a different jwt key for %s", f.Self)
	}

	peerKeys := make(map[constellation.ServerName]envelope.VerifyingKey, len(f.Peers))
	for _, name := range f.Peers {
		sp, ok := c.ServerByName(name)
		if !ok {
			return nil, fmt.Errorf("followboot: constellation has no entry for %s", name)
		}
		vk, err := envelope.VerifyingKeyFromHex(sp.JWTKey)
		if err != nil {
			return nil, fmt.Errorf("followboot: decode %s verifying key: %w", name, err)
		}
		peerKeys[name] = vk
	}

	return &server.RunningState{
		Constellation:     c,
		SigningKey:        f.SigningKey,
		PeerVerifyingKeys: peerKeys,
		SealingKeys:       map[string]envelope.SealingKey{},
	}, nil
}
