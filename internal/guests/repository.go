package guests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatekeeper-events/gatekeeper/internal/platform/db"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// RepositoryPort defines data access methods for guests.
type RepositoryPort interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID, foldedSearch string) ([]Guest, error)
	Get(ctx context.Context, id uuid.UUID) (*Guest, error)
	Insert(ctx context.Context, guest *Guest) error
	InsertBatch(ctx context.Context, guests []Guest) (inserted int, err error)
	Update(ctx context.Context, guest *Guest) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetCheckin(ctx context.Context, id uuid.UUID, checked bool, at time.Time) (*Guest, error)
	FindByFoldedNameOrEmail(ctx context.Context, eventID uuid.UUID, folded, email string) (*Guest, error)
	EventIsPublic(ctx context.Context, eventID uuid.UUID) (bool, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const guestColumns = `id, event_id, name, name_folded, email, phone, company, table_label, source, checked_in, checked_in_at, created_at, updated_at`

// ListByEvent returns guests for an event, optionally filtered by a folded
// search term matched against name, email and company.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, foldedSearch string) ([]Guest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+guestColumns+` FROM guests
		 WHERE event_id = $1
		   AND ($2 = '' OR name_folded LIKE '%' || $2 || '%' OR lower(email) LIKE '%' || $2 || '%' OR lower(company) LIKE '%' || $2 || '%')
		 ORDER BY name`,
		eventID, foldedSearch,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var guests []Guest
	for rows.Next() {
		var g Guest
		if err := scanGuest(rows, &g); err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return guests, nil
}

// Get fetches a guest by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Guest, error) {
	var g Guest
	err := scanGuest(r.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = $1`, id), &g)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Insert creates a guest. A folded-name collision on the same event
// surfaces as ErrDuplicateGuest.
func (r *Repository) Insert(ctx context.Context, guest *Guest) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO guests (id, event_id, name, name_folded, email, phone, company, table_label, source, checked_in, checked_in_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		guest.ID, guest.EventID, guest.Name, guest.NameFolded, guest.Email, guest.Phone,
		guest.Company, guest.TableLabel, guest.Source, guest.CheckedIn, guest.CheckedInAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateGuest
		}
		return err
	}
	return nil
}

// InsertBatch writes guests in one transaction. Rows colliding on folded
// name are skipped; the returned count covers actual inserts.
func (r *Repository) InsertBatch(ctx context.Context, guests []Guest) (int, error) {
	inserted := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range guests {
			g := &guests[i]
			tag, err := tx.Exec(ctx,
				`INSERT INTO guests (id, event_id, name, name_folded, email, phone, company, table_label, source, checked_in, checked_in_at, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
				 ON CONFLICT (event_id, name_folded) DO NOTHING`,
				g.ID, g.EventID, g.Name, g.NameFolded, g.Email, g.Phone,
				g.Company, g.TableLabel, g.Source, g.CheckedIn, g.CheckedInAt,
			)
			if err != nil {
				return err
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Update overwrites the editable guest fields.
func (r *Repository) Update(ctx context.Context, guest *Guest) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE guests SET name = $2, name_folded = $3, email = $4, phone = $5,
		 company = $6, table_label = $7, updated_at = NOW() WHERE id = $1`,
		guest.ID, guest.Name, guest.NameFolded, guest.Email, guest.Phone,
		guest.Company, guest.TableLabel,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateGuest
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a guest row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM guests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetCheckin flips the check-in state and returns the updated row.
func (r *Repository) SetCheckin(ctx context.Context, id uuid.UUID, checked bool, at time.Time) (*Guest, error) {
	var g Guest
	err := scanGuest(r.pool.QueryRow(ctx,
		`UPDATE guests SET checked_in = $2, checked_in_at = CASE WHEN $2 THEN $3 ELSE NULL END, updated_at = NOW()
		 WHERE id = $1 RETURNING `+guestColumns,
		id, checked, at,
	), &g)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindByFoldedNameOrEmail locates a guest for self check-in.
func (r *Repository) FindByFoldedNameOrEmail(ctx context.Context, eventID uuid.UUID, folded, email string) (*Guest, error) {
	var g Guest
	err := scanGuest(r.pool.QueryRow(ctx,
		`SELECT `+guestColumns+` FROM guests
		 WHERE event_id = $1 AND (name_folded = $2 OR ($3 <> '' AND lower(email) = $3))
		 LIMIT 1`,
		eventID, folded, email,
	), &g)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &g, nil
}

// EventIsPublic reports whether the event allows public flows.
func (r *Repository) EventIsPublic(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var public bool
	err := r.pool.QueryRow(ctx, `SELECT public FROM events WHERE id = $1`, eventID).Scan(&public)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, shared.ErrNotFound
		}
		return false, err
	}
	return public, nil
}

func scanGuest(row pgx.Row, g *Guest) error {
	return row.Scan(&g.ID, &g.EventID, &g.Name, &g.NameFolded, &g.Email, &g.Phone,
		&g.Company, &g.TableLabel, &g.Source, &g.CheckedIn, &g.CheckedInAt,
		&g.CreatedAt, &g.UpdatedAt)
}

var _ RepositoryPort = (*Repository)(nil)
