package storage

import (
	"context"
	"errors"

	"github.com/pubhubs/pubhubs-core/id"
)

// ErrNotFound is returned by Get-style methods when the requested record
// does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrVersionConflict is returned when a caller's ETag no longer matches
// the stored record; translated to apierr.VersionConflict at the HTTP
// boundary.
var ErrVersionConflict = errors.New("storage: version conflict")

// ErrAlreadyExists is returned by Create-style methods on a duplicate key.
var ErrAlreadyExists = errors.New("storage: already exists")

// UserStore persists User records. Identifying-attribute resolution goes
// through AttrStateStore (AttrState.MayIdentifyUser), not a user scan.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID id.UserID) (*User, error)
	// UpdateUser persists user, failing with ErrVersionConflict unless
	// user.ETag matches the currently stored ETag; on success the stored
	// record's ETag is refreshed and returned.
	UpdateUser(ctx context.Context, user *User) (newETag string, err error)
}

// ObjectStore persists opaque per-user blobs.
type ObjectStore interface {
	GetObject(ctx context.Context, userID id.UserID, objectID string) (*Object, error)
	ListObjects(ctx context.Context, userID id.UserID) ([]string, error)
	// NewObject creates a fresh object, failing with ErrAlreadyExists if
	// objectID is already in use for this user.
	NewObject(ctx context.Context, obj *Object) (etag string, err error)
	// OverwriteObject replaces an existing object's data, failing with
	// ErrVersionConflict unless obj.ETag matches the stored one.
	OverwriteObject(ctx context.Context, obj *Object) (newETag string, err error)
}

// AttrStateStore persists AttrState records.
type AttrStateStore interface {
	GetAttrState(ctx context.Context, attrID id.AttrID) (*AttrState, error)
	UpsertAttrState(ctx context.Context, state *AttrState) error
}

// TicketStore persists the most recently issued Ticket per hub, so a
// later key-part or HHPP request can be matched back to it.
type TicketStore interface {
	PutTicket(ctx context.Context, ticket *Ticket) error
	GetTicket(ctx context.Context, hubID id.HubID) (*Ticket, error)
}

// Store combines the persistence contracts PHC needs plus connection
// lifecycle management, mirroring the combined-store shape used
// throughout the pack.
type Store interface {
	Users() UserStore
	Objects() ObjectStore
	AttrStates() AttrStateStore
	Tickets() TicketStore

	Close() error
	Ping(ctx context.Context) error
}
