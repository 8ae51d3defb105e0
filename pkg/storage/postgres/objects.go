package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

type objectStore struct {
	db *pgxpool.Pool
}

func (s *objectStore) GetObject(ctx context.Context, userID id.UserID, objectID string) (*storage.Object, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, object_id, data, etag FROM objects WHERE user_id = $1 AND object_id = $2`,
		string(userID), objectID)

	var obj storage.Object
	var uid string
	err := row.Scan(&uid, &obj.ID, &obj.Data, &obj.ETag)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	obj.UserID = id.UserID(uid)
	return &obj, nil
}

func (s *objectStore) ListObjects(ctx context.Context, userID id.UserID) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT object_id FROM objects WHERE user_id = $1`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var objID string
		if err := rows.Scan(&objID); err != nil {
			return nil, err
		}
		ids = append(ids, objID)
	}
	return ids, rows.Err()
}

func (s *objectStore) NewObject(ctx context.Context, obj *storage.Object) (string, error) {
	etag := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO objects (user_id, object_id, data, etag) VALUES ($1, $2, $3, $4)`,
		string(obj.UserID), obj.ID, obj.Data, etag)
	if err != nil {
		if isUniqueViolation(err) {
			return "", storage.ErrAlreadyExists
		}
		return "", err
	}
	return etag, nil
}

func (s *objectStore) OverwriteObject(ctx context.Context, obj *storage.Object) (string, error) {
	newETag := uuid.NewString()
	tag, err := s.db.Exec(ctx, `
		UPDATE objects SET data = $1, etag = $2 WHERE user_id = $3 AND object_id = $4 AND etag = $5`,
		obj.Data, newETag, string(obj.UserID), obj.ID, obj.ETag)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		existing, err := s.GetObject(ctx, obj.UserID, obj.ID)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return "", storage.ErrVersionConflict
		}
		return "", storage.ErrNotFound
	}
	return newETag, nil
}
