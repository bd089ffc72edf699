package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// RepositoryPort defines data access methods for events.
type RepositoryPort interface {
	List(ctx context.Context) ([]Event, error)
	Get(ctx context.Context, id uuid.UUID) (*Event, error)
	Insert(ctx context.Context, event *Event) error
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	Display(ctx context.Context, id uuid.UUID) (*DisplayInfo, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, name, venue, starts_at, wifi_network, wifi_password, cover_url, public, created_by, created_at, updated_at`

// List returns all events ordered by start time, soonest first.
func (r *Repository) List(ctx context.Context) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Event
	for rows.Next() {
		var e Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// Get fetches an event by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	var e Event
	err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Insert creates an event.
func (r *Repository) Insert(ctx context.Context, event *Event) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO events (id, name, venue, starts_at, wifi_network, wifi_password, cover_url, public, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		event.ID, event.Name, event.Venue, event.StartsAt, event.WifiNetwork,
		event.WifiPassword, event.CoverURL, event.Public, event.CreatedBy,
	)
	return err
}

// Update overwrites the mutable event fields.
func (r *Repository) Update(ctx context.Context, event *Event) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET name = $2, venue = $3, starts_at = $4, wifi_network = $5,
		 wifi_password = $6, cover_url = $7, public = $8, updated_at = NOW() WHERE id = $1`,
		event.ID, event.Name, event.Venue, event.StartsAt, event.WifiNetwork,
		event.WifiPassword, event.CoverURL, event.Public,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an event and, via FK cascade, its guests.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Display returns the public screen data for an event marked public.
func (r *Repository) Display(ctx context.Context, id uuid.UUID) (*DisplayInfo, error) {
	var d DisplayInfo
	err := r.pool.QueryRow(ctx,
		`SELECT e.name, e.venue, e.wifi_network, e.wifi_password, e.cover_url,
		        COUNT(g.id), COUNT(g.id) FILTER (WHERE g.checked_in)
		 FROM events e LEFT JOIN guests g ON g.event_id = e.id
		 WHERE e.id = $1 AND e.public
		 GROUP BY e.id`,
		id,
	).Scan(&d.Name, &d.Venue, &d.WifiNetwork, &d.WifiPassword, &d.CoverURL, &d.GuestCount, &d.CheckedIn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanEvent(row pgx.Row, e *Event) error {
	return row.Scan(&e.ID, &e.Name, &e.Venue, &e.StartsAt, &e.WifiNetwork,
		&e.WifiPassword, &e.CoverURL, &e.Public, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
}

var _ RepositoryPort = (*Repository)(nil)
