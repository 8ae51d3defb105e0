// Package memory is an in-memory storage.Store, used by tests and
// single-process deployments where Postgres isn't worth standing up.
package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

// Store implements storage.Store backed by guarded maps.
type Store struct {
	users   *userStore
	objects *objectStore
	attrs   *attrStateStore
	tickets *ticketStore
}

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{
		users:   &userStore{byID: make(map[string]*storage.User)},
		objects: &objectStore{byKey: make(map[string]*storage.Object)},
		attrs:   &attrStateStore{byID: make(map[string]*storage.AttrState)},
		tickets: &ticketStore{byHub: make(map[string]*storage.Ticket)},
	}
}

func (s *Store) Users() storage.UserStore           { return s.users }
func (s *Store) Objects() storage.ObjectStore       { return s.objects }
func (s *Store) AttrStates() storage.AttrStateStore { return s.attrs }
func (s *Store) Tickets() storage.TicketStore       { return s.tickets }

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error { return nil }

func newETag() string { return uuid.NewString() }
