package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pubhubs/pubhubs-core/id"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
)

type ticketStore struct {
	db *pgxpool.Pool
}

func (s *ticketStore) PutTicket(ctx context.Context, ticket *storage.Ticket) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tickets (hub_id, raw_ticket, digest, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hub_id) DO UPDATE SET
			raw_ticket = EXCLUDED.raw_ticket,
			digest     = EXCLUDED.digest,
			issued_at  = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at`,
		string(ticket.HubID), ticket.RawTicket, ticket.Digest, ticket.IssuedAt, ticket.ExpiresAt)
	return err
}

func (s *ticketStore) GetTicket(ctx context.Context, hubID id.HubID) (*storage.Ticket, error) {
	row := s.db.QueryRow(ctx, `
		SELECT hub_id, raw_ticket, digest, issued_at, expires_at FROM tickets WHERE hub_id = $1`,
		string(hubID))

	var t storage.Ticket
	var hid string
	err := row.Scan(&hid, &t.RawTicket, &t.Digest, &t.IssuedAt, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.HubID = id.HubID(hid)
	return &t, nil
}
