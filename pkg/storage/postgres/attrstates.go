package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

type attrStateStore struct {
	db *pgxpool.Pool
}

func (s *attrStateStore) GetAttrState(ctx context.Context, attrID id.AttrID) (*storage.AttrState, error) {
	row := s.db.QueryRow(ctx, `
		SELECT attr_id, banned, may_identify_user, bans_users FROM attr_states WHERE attr_id = $1`,
		string(attrID))

	var st storage.AttrState
	var aid string
	var mayIdentify *string
	var bansUsers []byte

	err := row.Scan(&aid, &st.Banned, &mayIdentify, &bansUsers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	st.AttrID = id.AttrID(aid)
	if mayIdentify != nil {
		u := id.UserID(*mayIdentify)
		st.MayIdentifyUser = &u
	}
	if len(bansUsers) > 0 {
		if err := json.Unmarshal(bansUsers, &st.BansUsers); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

func (s *attrStateStore) UpsertAttrState(ctx context.Context, state *storage.AttrState) error {
	bansUsers, err := json.Marshal(state.BansUsers)
	if err != nil {
		return err
	}
	var mayIdentify *string
	if state.MayIdentifyUser != nil {
		s := string(*state.MayIdentifyUser)
		mayIdentify = &s
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO attr_states (attr_id, banned, may_identify_user, bans_users)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (attr_id) DO UPDATE SET
			banned = EXCLUDED.banned,
			may_identify_user = EXCLUDED.may_identify_user,
			bans_users = EXCLUDED.bans_users`,
		string(state.AttrID), state.Banned, mayIdentify, bansUsers)
	return err
}
