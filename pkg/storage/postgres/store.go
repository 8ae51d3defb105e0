// Package postgres is a pgx-backed storage.Store, the production
// persistence layer for PHC.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

// Store implements storage.Store against a pgxpool.Pool.
type Store struct {
	pool    *pgxpool.Pool
	users   *userStore
	objects *objectStore
	attrs   *attrStateStore
	tickets *ticketStore
}

// Config holds the connection parameters for NewStore.
type Config struct {
	DSN      string
	MaxConns int
}

// Schema is the DDL NewStore expects to already be applied (via migration
// tooling outside this package's scope); kept here for operator reference.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id                 TEXT PRIMARY KEY,
	polymorphic_pseudonym TEXT NOT NULL,
	identifying_attrs  JSONB NOT NULL DEFAULT '[]',
	bannable_attrs     JSONB NOT NULL DEFAULT '[]',
	stored_object_ids  JSONB NOT NULL DEFAULT '[]',
	created_at         TIMESTAMPTZ NOT NULL,
	etag               TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS objects (
	user_id   TEXT NOT NULL,
	object_id TEXT NOT NULL,
	data      BYTEA NOT NULL,
	etag      TEXT NOT NULL,
	PRIMARY KEY (user_id, object_id)
);

CREATE TABLE IF NOT EXISTS attr_states (
	attr_id           TEXT PRIMARY KEY,
	banned            BOOLEAN NOT NULL DEFAULT FALSE,
	may_identify_user TEXT,
	bans_users        JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS tickets (
	hub_id      TEXT PRIMARY KEY,
	raw_ticket  TEXT NOT NULL,
	digest      BYTEA NOT NULL,
	issued_at   TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
);
`

// NewStore opens a connection pool to cfg.DSN and pings it.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Store{
		pool:    pool,
		users:   &userStore{db: pool},
		objects: &objectStore{db: pool},
		attrs:   &attrStateStore{db: pool},
		tickets: &ticketStore{db: pool},
	}, nil
}

func (s *Store) Users() storage.UserStore           { return s.users }
func (s *Store) Objects() storage.ObjectStore       { return s.objects }
func (s *Store) AttrStates() storage.AttrStateStore { return s.attrs }
func (s *Store) Tickets() storage.TicketStore       { return s.tickets }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
