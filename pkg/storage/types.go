// Package storage defines PHC's persistence contracts: registered users
// (with their polymorphic pseudonym and attribute bookkeeping), the opaque
// object store clients use to stash encrypted blobs, and per-attribute
// ban/identification state. Two implementations are provided: an
// in-memory one (pkg/storage/memory) for tests and single-process
// deployments, and a pgx-backed one (pkg/storage/postgres).
package storage

import (
	"time"

	"github.com/pubhubs/pubhubs-core/id"
)

// AttrRef identifies one attribute a user presented, by its computed
// AttrID and the attribute type it was issued for.
type AttrRef struct {
	AttrID     id.AttrID `json:"attr_id"`
	AttrTypeID string    `json:"attr_type_id"`
}

// User is PHC's persisted record for a registered user.
type User struct {
	ID                   id.UserID `json:"id"`
	PolymorphicPseudonym string    `json:"polymorphic_pseudonym"` // pep.Triple hex
	IdentifyingAttrs     []AttrRef `json:"identifying_attrs"`
	BannableAttrs        []AttrRef `json:"bannable_attrs"`
	StoredObjectIDs      []string  `json:"stored_object_ids"`
	CreatedAt            time.Time `json:"created_at"`

	// ETag is the opaque optimistic-concurrency version token:
	// UpdateUser fails with ErrVersionConflict if the caller's ETag does
	// not match the currently stored one.
	ETag string `json:"etag"`
}

// Object is an opaque, client-encrypted blob PHC stores on a user's
// behalf without ever decrypting it.
type Object struct {
	ID     string    `json:"id"`
	UserID id.UserID `json:"user_id"`
	Data   []byte    `json:"data"`
	ETag   string    `json:"etag"`
}

// Ticket is PHC's record of a hub entry ticket it issued, kept so a later
// key-part or HHPP request can be tied back to the exact ticket a hub is
// presenting.
type Ticket struct {
	HubID     id.HubID  `json:"hub_id"`
	RawTicket string    `json:"raw_ticket"` // compact Signed[TicketContent]
	Digest    []byte    `json:"digest"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AttrState is PHC's per-attribute bookkeeping record, keyed by the
// attr_id computed as H(secret, attr_type_id, value).
type AttrState struct {
	AttrID id.AttrID `json:"attr_id"`
	// Banned, if true, means presenting this attribute's attr_id always
	// refuses entry.
	Banned bool `json:"banned"`
	// MayIdentifyUser, if non-nil, is the user this identifying attribute
	// currently resolves to.
	MayIdentifyUser *id.UserID `json:"may_identify_user,omitempty"`
	// BansUsers lists users who depend on this bannable attribute still
	// being present; removing it while this is non-empty is forbidden.
	BansUsers []id.UserID `json:"bans_users,omitempty"`
}

// DependsOn reports whether user is recorded as depending on this
// bannable attribute.
func (a AttrState) DependsOn(user id.UserID) bool {
	for _, u := range a.BansUsers {
		if u == user {
			return true
		}
	}
	return false
}

// CanRemove reports whether a bannable attribute may be removed from
// removingUser's record: forbidden while any other user still depends on
// it, since removing it would let that other user's ban lapse.
func (a AttrState) CanRemove(removingUser id.UserID) bool {
	for _, u := range a.BansUsers {
		if u != removingUser {
			return false
		}
	}
	return true
}
