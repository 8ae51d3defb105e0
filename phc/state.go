package phc

import (
	"context"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

// ObjectView is the wire shape of a stored object: opaque ciphertext plus
// its current ETag for optimistic concurrency.
type ObjectView struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
	ETag string `json:"etag"`
}

// NewObjectRequest is the body of a PHC object creation call.
type NewObjectRequest struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
}

// OverwriteObjectRequest is the body of a PHC object overwrite call; ETag
// must match the currently stored value or the call fails with
// apierr.VersionConflict.
type OverwriteObjectRequest struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
	ETag string `json:"etag"`
}

// State implements GET /.ph/user/state: the bearer token identifies the
// user, and the full UserStateSummary (including stored_objects ids) is
// returned.
func (s *Server) State(ctx context.Context, bearerToken string) (*UserStateSummary, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}
	userID, aerr := s.validateBearer(snap, bearerToken)
	if aerr != nil {
		return nil, aerr
	}
	user, err := s.Store.Users().GetUser(ctx, userID)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}
	summary := summarize(user)

	// The object store is authoritative for stored object ids; the user
	// record's own copy can lag a concurrent NewObject.
	if ids, err := s.Store.Objects().ListObjects(ctx, userID); err == nil {
		summary.StoredObjects = ids
	}
	return &summary, nil
}

// GetObject implements the read side of object CRUD: bearer + id -> opaque
// bytes. PHC never decrypts the data it stores.
func (s *Server) GetObject(ctx context.Context, bearerToken, objectID string) (*ObjectView, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}
	userID, aerr := s.validateBearer(snap, bearerToken)
	if aerr != nil {
		return nil, aerr
	}
	obj, err := s.Store.Objects().GetObject(ctx, userID, objectID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, apierr.New(apierr.BadRequest, "no such object")
		}
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}
	return &ObjectView{ID: obj.ID, Data: obj.Data, ETag: obj.ETag}, nil
}

// NewObject creates a fresh opaque object for the bearer's user, and
// records its id on the user's StoredObjectIDs.
func (s *Server) NewObject(ctx context.Context, bearerToken string, req NewObjectRequest) (*ObjectView, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}
	userID, aerr := s.validateBearer(snap, bearerToken)
	if aerr != nil {
		return nil, aerr
	}

	obj := &storage.Object{ID: req.ID, UserID: userID, Data: req.Data}
	etag, err := s.Store.Objects().NewObject(ctx, obj)
	if err != nil {
		if err == storage.ErrAlreadyExists {
			return nil, apierr.New(apierr.BadRequest, "object id already in use")
		}
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}

	user, err := s.Store.Users().GetUser(ctx, userID)
	if err != nil {
		return nil, apierr.New(apierr.InternalError, "%s", err)
	}
	if !containsString(user.StoredObjectIDs, req.ID) {
		user.StoredObjectIDs = append(user.StoredObjectIDs, req.ID)
		if _, err := s.Store.Users().UpdateUser(ctx, user); err != nil {
			return nil, apierr.New(apierr.InternalError, "%s", err)
		}
	}

	return &ObjectView{ID: req.ID, Data: req.Data, ETag: etag}, nil
}

// OverwriteObject implements the ETag-checked write side of object CRUD:
// two concurrent overwrites of the same ETag leave exactly one winner,
// the other gets VersionConflict.
func (s *Server) OverwriteObject(ctx context.Context, bearerToken string, req OverwriteObjectRequest) (*ObjectView, *apierr.Error) {
	snap, aerr := s.snapshot()
	if aerr != nil {
		return nil, aerr
	}
	userID, aerr := s.validateBearer(snap, bearerToken)
	if aerr != nil {
		return nil, aerr
	}

	obj := &storage.Object{ID: req.ID, UserID: userID, Data: req.Data, ETag: req.ETag}
	newETag, err := s.Store.Objects().OverwriteObject(ctx, obj)
	if err != nil {
		switch err {
		case storage.ErrVersionConflict:
			return nil, apierr.New(apierr.VersionConflict, "stale etag for object %s", req.ID)
		case storage.ErrNotFound:
			return nil, apierr.New(apierr.BadRequest, "no such object")
		default:
			return nil, apierr.New(apierr.InternalError, "%s", err)
		}
	}
	return &ObjectView{ID: req.ID, Data: req.Data, ETag: newETag}, nil
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
