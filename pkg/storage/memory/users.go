package memory

import (
	"context"
	"sync"

	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

type userStore struct {
	mu   sync.RWMutex
	byID map[string]*storage.User
}

func (s *userStore) CreateUser(ctx context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(user.ID)
	if _, exists := s.byID[key]; exists {
		return storage.ErrAlreadyExists
	}

	cp := copyUser(user)
	cp.ETag = newETag()
	s.byID[key] = cp
	user.ETag = cp.ETag
	return nil
}

func (s *userStore) GetUser(ctx context.Context, userID id.UserID) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[string(userID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *userStore) UpdateUser(ctx context.Context, user *storage.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[string(user.ID)]
	if !ok {
		return "", storage.ErrNotFound
	}
	if existing.ETag != user.ETag {
		return "", storage.ErrVersionConflict
	}

	cp := copyUser(user)
	cp.ETag = newETag()
	s.byID[string(user.ID)] = cp
	return cp.ETag, nil
}

func copyUser(u *storage.User) *storage.User {
	cp := *u
	cp.IdentifyingAttrs = append([]storage.AttrRef(nil), u.IdentifyingAttrs...)
	cp.BannableAttrs = append([]storage.AttrRef(nil), u.BannableAttrs...)
	cp.StoredObjectIDs = append([]string(nil), u.StoredObjectIDs...)
	return &cp
}
