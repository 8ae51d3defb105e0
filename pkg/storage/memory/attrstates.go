package memory

import (
	"context"
	"sync"

	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

type attrStateStore struct {
	mu   sync.RWMutex
	byID map[string]*storage.AttrState
}

func (s *attrStateStore) GetAttrState(ctx context.Context, attrID id.AttrID) (*storage.AttrState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.byID[string(attrID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyAttrState(st), nil
}

func (s *attrStateStore) UpsertAttrState(ctx context.Context, state *storage.AttrState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[string(state.AttrID)] = copyAttrState(state)
	return nil
}

func copyAttrState(a *storage.AttrState) *storage.AttrState {
	cp := *a
	if a.MayIdentifyUser != nil {
		u := *a.MayIdentifyUser
		cp.MayIdentifyUser = &u
	}
	cp.BansUsers = append([]id.UserID(nil), a.BansUsers...)
	return &cp
}
