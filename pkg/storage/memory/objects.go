package memory

import (
	"context"
	"sync"

	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

type objectStore struct {
	mu    sync.RWMutex
	byKey map[string]*storage.Object // key: userID + "/" + objectID
}

func objectKey(userID id.UserID, objectID string) string {
	return string(userID) + "/" + objectID
}

func (s *objectStore) GetObject(ctx context.Context, userID id.UserID, objectID string) (*storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.byKey[objectKey(userID, objectID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyObject(obj), nil
}

func (s *objectStore) ListObjects(ctx context.Context, userID id.UserID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	prefix := string(userID) + "/"
	for key, obj := range s.byKey {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			ids = append(ids, obj.ID)
		}
	}
	return ids, nil
}

func (s *objectStore) NewObject(ctx context.Context, obj *storage.Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := objectKey(obj.UserID, obj.ID)
	if _, exists := s.byKey[key]; exists {
		return "", storage.ErrAlreadyExists
	}

	cp := copyObject(obj)
	cp.ETag = newETag()
	s.byKey[key] = cp
	return cp.ETag, nil
}

func (s *objectStore) OverwriteObject(ctx context.Context, obj *storage.Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := objectKey(obj.UserID, obj.ID)
	existing, ok := s.byKey[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	if existing.ETag != obj.ETag {
		return "", storage.ErrVersionConflict
	}

	cp := copyObject(obj)
	cp.ETag = newETag()
	s.byKey[key] = cp
	return cp.ETag, nil
}

func copyObject(o *storage.Object) *storage.Object {
	cp := *o
	cp.Data = append([]byte(nil), o.Data...)
	return &cp
}
