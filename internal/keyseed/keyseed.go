// Package keyseed turns the hex seed strings every server role's YAML
// config carries into the actual Ed25519 and Ristretto keys those
// servers sign and encrypt with. Each cmd/ main calls this once at
// startup; no seed is ever logged or round-tripped back to config.
package keyseed

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pubhubs/pubhubs-core/pep"
)

// Decode hex-decodes a config seed string, rejecting the empty seed a
// misconfigured deployment would otherwise silently derive keys from.
func Decode(seedHex string) ([]byte, error) {
	if seedHex == "" {
		return nil, fmt.Errorf("keyseed: empty seed")
	}
	raw, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("keyseed: invalid hex seed: %w", err)
	}
	return raw, nil
}

// Ed25519KeyFromSeed derives a signing keypair from seedHex. Seeds of any
// length are hashed down to the 32 bytes ed25519.NewKeyFromSeed requires,
// so operators aren't constrained to exactly-32-byte hex literals.
func Ed25519KeyFromSeed(seedHex string) (ed25519.PrivateKey, error) {
	raw, err := Decode(seedHex)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	return ed25519.NewKeyFromSeed(sum[:]), nil
}

// RistrettoKeyFromSeed derives a Ristretto ElGamal private key from
// seedHex, domain-separated by label via pep.DeriveScalar so the same
// config seed could never collide across two distinct derived keys.
func RistrettoKeyFromSeed(seedHex string, label string) (pep.PrivateKey, error) {
	raw, err := Decode(seedHex)
	if err != nil {
		return pep.PrivateKey{}, err
	}
	return pep.NewPrivateKey(pep.DeriveScalar(raw, label)), nil
}
