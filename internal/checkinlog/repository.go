package checkinlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access methods for the log.
type RepositoryPort interface {
	Insert(ctx context.Context, entry Entry) error
	Window(ctx context.Context, eventID uuid.UUID, action string, offset, limit int) ([]Entry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends a log entry.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO checkin_logs (id, event_id, guest_id, guest_name, actor, action, detail, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.EventID, entry.GuestID, entry.GuestName, entry.Actor, entry.Action, entry.Detail, entry.At,
	)
	return err
}

// Window returns a page of entries, newest first. Zero-value filters are
// ignored.
func (r *Repository) Window(ctx context.Context, eventID uuid.UUID, action string, offset, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, guest_id, guest_name, actor, action, detail, at
		 FROM checkin_logs
		 WHERE ($1::uuid IS NULL OR event_id = $1)
		   AND ($2 = '' OR action = $2)
		 ORDER BY id DESC
		 OFFSET $3 LIMIT $4`,
		nullableUUID(eventID), action, offset, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EventID, &e.GuestID, &e.GuestName, &e.Actor, &e.Action, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteOlderThan prunes entries before the cutoff and reports how many
// rows were removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM checkin_logs WHERE at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

var _ RepositoryPort = (*Repository)(nil)
