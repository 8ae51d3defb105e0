// Package id defines the typed identifiers passed between PubHubs
// servers, so that a UserID can never be mistaken for a HubID at compile
// time even though both are backed by a string on the wire.
package id

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// UserID identifies a registered user, stable across all their pseudonyms.
type UserID string

// NewUserID generates a fresh random UserID.
func NewUserID() UserID { return UserID(prefixedUUID("u")) }

// HubID identifies a hub (a PubHubs-federated chat service).
type HubID string

// NewHubID generates a fresh random HubID.
func NewHubID() HubID { return HubID(prefixedUUID("h")) }

// AttrID identifies a single disclosed attribute instance (e.g. one Yivi
// attribute disclosure).
type AttrID string

// NewAttrID generates a fresh random AttrID.
func NewAttrID() AttrID { return AttrID(prefixedUUID("a")) }

// SessionID identifies an in-progress authentication session at the
// authentication server.
type SessionID string

// NewSessionID generates a fresh random SessionID.
func NewSessionID() SessionID { return SessionID(prefixedUUID("s")) }

// ConstellationID identifies a specific agreed-upon constellation of
// server public parameters. Unlike the other ids in this package it is not
// random: it is a content digest of the constellation's canonical fields,
// so that two servers that independently compute the same constellation
// arrive at the same id.
type ConstellationID string

// DigestConstellation computes a ConstellationID as the hex-encoded
// SHA-256 digest of the canonical JSON encoding of fields, which callers
// must populate in a stable, deterministic order (e.g. a struct with
// fixed field order, never a map).
func DigestConstellation(fields interface{}) (ConstellationID, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return ConstellationID(hex.EncodeToString(sum[:])), nil
}

func prefixedUUID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
