package followboot

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/stretchr/testify/require"
)

// fakeDiscovery serves a fixed Info for every URL.
type fakeDiscovery struct {
	info constellation.Info
}

func (f fakeDiscovery) Info(ctx context.Context, serverURL string) (constellation.Info, error) {
	return f.info, nil
}

func newKeys(t *testing.T) (envelope.SigningKey, string) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sk := envelope.NewSigningKey(priv)
	return sk, sk.VerifyingKey().ToHex()
}

func buildConstellation(t *testing.T, tURL, tJWTKey, phcJWTKey string) constellation.Constellation {
	t.Helper()
	c, err := constellation.Build("https://phc.example", []constellation.ServerParams{
		{Name: constellation.PHC, URL: "https://phc.example", JWTKey: phcJWTKey},
		{Name: constellation.Transcryptor, URL: tURL, JWTKey: tJWTKey},
	}, "combined", time.Now())
	require.NoError(t, err)
	return c
}

func TestFollowerAdoptsMatchingConstellation(t *testing.T) {
	tSK, tJWT := newKeys(t)
	_, phcJWT := newKeys(t)
	c := buildConstellation(t, "https://t.example", tJWT, phcJWT)

	f := &Follower{
		Self:       constellation.Transcryptor,
		PHCURL:     "https://phc.example",
		SigningKey: tSK,
		Discovery:  fakeDiscovery{info: constellation.Info{Constellation: &c}},
		Peers:      []constellation.ServerName{constellation.PHC},
		BaseURL:    "https://t.example",
	}

	snap, err := f.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, c.ID, snap.Constellation.ID)
	require.Contains(t, snap.PeerVerifyingKeys, constellation.PHC)
}

func TestFollowerRejectsForeignBaseURLUnlessAliased(t *testing.T) {
	tSK, tJWT := newKeys(t)
	_, phcJWT := newKeys(t)
	c := buildConstellation(t, "https://t.proxy.example", tJWT, phcJWT)

	f := &Follower{
		Self:       constellation.Transcryptor,
		PHCURL:     "https://phc.example",
		SigningKey: tSK,
		Discovery:  fakeDiscovery{info: constellation.Info{Constellation: &c}},
		Peers:      []constellation.ServerName{constellation.PHC},
		BaseURL:    "https://t.example",
	}

	_, err := f.Build(context.Background())
	require.Error(t, err)

	f.Aliases = constellation.HostAliases{"https://t.proxy.example"}
	_, err = f.Build(context.Background())
	require.NoError(t, err)
}

func TestFollowerRejectsForeignJWTKey(t *testing.T) {
	tSK, _ := newKeys(t)
	_, otherJWT := newKeys(t)
	_, phcJWT := newKeys(t)
	c := buildConstellation(t, "https://t.example", otherJWT, phcJWT)

	f := &Follower{
		Self:       constellation.Transcryptor,
		PHCURL:     "https://phc.example",
		SigningKey: tSK,
		Discovery:  fakeDiscovery{info: constellation.Info{Constellation: &c}},
		Peers:      []constellation.ServerName{constellation.PHC},
		BaseURL:    "https://t.example",
	}

	_, err := f.Build(context.Background())
	require.Error(t, err)
}
