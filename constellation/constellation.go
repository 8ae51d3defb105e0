// Package constellation models the set of server public parameters that
// PHC, the Transcryptor, and the authentication server must agree on
// before any of them will serve inter-server traffic.
package constellation

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pubhubs/pubhubs-core/id"
)

// ServerName identifies a server's role in the constellation.
type ServerName string

const (
	PHC          ServerName = "phc"
	Transcryptor ServerName = "transcryptor"
	AuthServer   ServerName = "authserver"
)

// ServerParams is one server's contribution to a Constellation: the public
// parameters the other servers need in order to talk to it.
type ServerParams struct {
	Name ServerName `json:"name"`
	URL  string     `json:"url"`

	// JWTKey is the Ed25519 verifying key this server signs Signed
	// envelopes with, hex encoded.
	JWTKey string `json:"jwt_key"`
	// EncKey is this server's ElGamal public key, hex encoded.
	EncKey string `json:"enc_key"`

	// MasterEncKeyPart is this server's contribution to the master
	// encryption public key. Only PHC and the Transcryptor may set this;
	// discovery must hard-reject it from any other server.
	MasterEncKeyPart string `json:"master_enc_key_part,omitempty"`
}

// Constellation is the full set of agreed-upon server parameters, as
// published by PHC. Two servers that independently compute the same
// Constellation arrive at the same ID, since ID is a pure digest of
// PHCURL, Servers and MasterEncKey in that order; CreatedAt is not part
// of the digest.
type Constellation struct {
	ID        id.ConstellationID `json:"id"`
	CreatedAt time.Time          `json:"created_at"`

	PHCURL string `json:"phc_url"`

	Servers []ServerParams `json:"servers"`

	// MasterEncKey is the combined master encryption public key,
	// x_PHC * x_T * B, computed once both halves are known.
	MasterEncKey string `json:"master_enc_key"`
}

// digestFields is the subset of Constellation that feeds the ID digest,
// in a fixed struct field order so two independent builders hash the same
// bytes for the same constellation.
type digestFields struct {
	PHCURL       string         `json:"phc_url"`
	Servers      []ServerParams `json:"servers"`
	MasterEncKey string         `json:"master_enc_key"`
}

// Build assembles a Constellation from phcURL, servers and the combined
// master key, computing its ID and stamping CreatedAt as now.
func Build(phcURL string, servers []ServerParams, masterEncKey string, now time.Time) (Constellation, error) {
	digested, err := id.DigestConstellation(digestFields{
		PHCURL:       phcURL,
		Servers:      servers,
		MasterEncKey: masterEncKey,
	})
	if err != nil {
		return Constellation{}, err
	}
	return Constellation{
		ID:           digested,
		CreatedAt:    now,
		PHCURL:       phcURL,
		Servers:      servers,
		MasterEncKey: masterEncKey,
	}, nil
}

// ServerByName returns the ServerParams for name, if present.
func (c Constellation) ServerByName(name ServerName) (ServerParams, bool) {
	for _, s := range c.Servers {
		if s.Name == name {
			return s, true
		}
	}
	return ServerParams{}, false
}

// NewerThan reports whether c was created after other. Nothing in this
// module calls it: followboot.Follower adopts whatever constellation PHC
// publishes without comparing its CreatedAt to the one already held.
func (c Constellation) NewerThan(other Constellation) bool {
	return c.CreatedAt.After(other.CreatedAt)
}

// HostAliases is the set of additional externally-visible base URLs a
// server accepts as referring to itself, for deployments behind a reverse
// proxy where the constellation may name the server by a different
// hostname than the one it knows itself by.
type HostAliases []string

// Matches reports whether url names this server: either its own base URL
// or any configured alias.
func (a HostAliases) Matches(own, url string) bool {
	if url == own {
		return true
	}
	for _, alias := range a {
		if url == alias {
			return true
		}
	}
	return false
}

// SelfCheckCode derives the value a server publishes in its own discovery
// info as self_check_code: a short digest of the public parameters it
// believes are its own, so a peer that already knows what this server
// should look like can detect configuration drift without comparing the
// full set of fields.
func SelfCheckCode(jwtKeyHex, baseURL string) string {
	sum := sha256.Sum256([]byte(jwtKeyHex + "|" + baseURL))
	return hex.EncodeToString(sum[:8])
}
