package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

type userStore struct {
	db *pgxpool.Pool
}

func (s *userStore) CreateUser(ctx context.Context, user *storage.User) error {
	identifying, err := json.Marshal(user.IdentifyingAttrs)
	if err != nil {
		return err
	}
	bannable, err := json.Marshal(user.BannableAttrs)
	if err != nil {
		return err
	}
	objects, err := json.Marshal(user.StoredObjectIDs)
	if err != nil {
		return err
	}

	etag := uuid.NewString()
	_, err = s.db.Exec(ctx, `
		INSERT INTO users (id, polymorphic_pseudonym, identifying_attrs, bannable_attrs, stored_object_ids, created_at, etag)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(user.ID), user.PolymorphicPseudonym, identifying, bannable, objects, user.CreatedAt, etag)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return err
	}
	user.ETag = etag
	return nil
}

func (s *userStore) GetUser(ctx context.Context, userID id.UserID) (*storage.User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, polymorphic_pseudonym, identifying_attrs, bannable_attrs, stored_object_ids, created_at, etag
		FROM users WHERE id = $1`, string(userID))
	return scanUser(row)
}

func (s *userStore) UpdateUser(ctx context.Context, user *storage.User) (string, error) {
	identifying, err := json.Marshal(user.IdentifyingAttrs)
	if err != nil {
		return "", err
	}
	bannable, err := json.Marshal(user.BannableAttrs)
	if err != nil {
		return "", err
	}
	objects, err := json.Marshal(user.StoredObjectIDs)
	if err != nil {
		return "", err
	}

	newETag := uuid.NewString()
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET polymorphic_pseudonym = $1, identifying_attrs = $2, bannable_attrs = $3,
			stored_object_ids = $4, etag = $5
		WHERE id = $6 AND etag = $7`,
		user.PolymorphicPseudonym, identifying, bannable, objects, newETag, string(user.ID), user.ETag)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		exists, err := s.GetUser(ctx, user.ID)
		if err != nil {
			return "", err
		}
		if exists != nil {
			return "", storage.ErrVersionConflict
		}
		return "", storage.ErrNotFound
	}
	return newETag, nil
}

func scanUser(row pgx.Row) (*storage.User, error) {
	var u storage.User
	var userID, etag string
	var identifying, bannable, objects []byte

	err := row.Scan(&userID, &u.PolymorphicPseudonym, &identifying, &bannable, &objects, &u.CreatedAt, &etag)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.ID = id.UserID(userID)
	u.ETag = etag
	if err := json.Unmarshal(identifying, &u.IdentifyingAttrs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bannable, &u.BannableAttrs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(objects, &u.StoredObjectIDs); err != nil {
		return nil, err
	}
	return &u, nil
}
