package memory

import (
	"context"
	"sync"

	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

type ticketStore struct {
	mu    sync.RWMutex
	byHub map[string]*storage.Ticket
}

func (s *ticketStore) PutTicket(ctx context.Context, ticket *storage.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ticket
	cp.Digest = append([]byte(nil), ticket.Digest...)
	s.byHub[string(ticket.HubID)] = &cp
	return nil
}

func (s *ticketStore) GetTicket(ctx context.Context, hubID id.HubID) (*storage.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byHub[string(hubID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	cp.Digest = append([]byte(nil), t.Digest...)
	return &cp, nil
}
