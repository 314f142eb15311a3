package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChrisaMendoza/pilates-core/internal/model"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// methods serve inside and outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore over a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool}
}

const bookingColumns = `id, status, created_at, cancelled_at, user_id, event_id`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.Status, &b.CreatedAt, &b.CancelledAt, &b.UserID, &b.EventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking", model.ErrNotFound)
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	return &b, nil
}

// GetBooking returns a single booking or ErrNotFound.
func (s *PostgresStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// ListBookings returns every booking ordered by creation time.
func (s *PostgresStore) ListBookings(ctx context.Context) ([]model.Booking, error) {
	return s.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at ASC, id ASC`)
}

// ListBookingsByUser returns one user's bookings ordered by creation time.
func (s *PostgresStore) ListBookingsByUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	return s.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at ASC, id ASC`,
		userID)
}

func (s *PostgresStore) listBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.Status, &b.CreatedAt, &b.CancelledAt, &b.UserID, &b.EventID); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// CountBookingsByEventAndStatus counts bookings in the given status for an
// event. Called under LockEvent during admission.
func (s *PostgresStore) CountBookingsByEventAndStatus(ctx context.Context, eventID string, status model.BookingStatus) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE event_id = $1 AND status = $2`,
		eventID, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

// CreateBooking inserts a new booking.
func (s *PostgresStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO bookings (id, status, created_at, cancelled_at, user_id, event_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.Status, b.CreatedAt, b.CancelledAt, b.UserID, b.EventID,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// UpdateBooking replaces every mutable field of an existing booking.
func (s *PostgresStore) UpdateBooking(ctx context.Context, b *model.Booking) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE bookings
		 SET status = $2, created_at = $3, cancelled_at = $4, user_id = $5, event_id = $6
		 WHERE id = $1`,
		b.ID, b.Status, b.CreatedAt, b.CancelledAt, b.UserID, b.EventID,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: booking", model.ErrNotFound)
	}
	return nil
}

// MarkCancelled flips a booking to CANCELLED unless it already is. The WHERE
// clause makes the transition a compare-and-set: of two racing cancellations
// only one sees a row change.
func (s *PostgresStore) MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE bookings SET status = $2, cancelled_at = $3
		 WHERE id = $1 AND status <> $2`,
		id, model.StatusCancelled, at,
	)
	if err != nil {
		return false, fmt.Errorf("mark cancelled: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteBooking hard-removes a booking.
func (s *PostgresStore) DeleteBooking(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: booking", model.ErrNotFound)
	}
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(ctx,
		`SELECT id, start_at, end_at, capacity, waitlist_open, status
		 FROM events WHERE id = $1`, id,
	).Scan(&e.ID, &e.StartAt, &e.EndAt, &e.Capacity, &e.WaitlistOpen, &e.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: event", model.ErrNotFound)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// LockEvent acquires an exclusive row-level lock on the event. Inside a
// transaction the lock is held until commit or rollback, which serializes
// the count-then-insert sequence of concurrent admissions for that event.
func (s *PostgresStore) LockEvent(ctx context.Context, id string) error {
	var got string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM events WHERE id = $1 FOR UPDATE`, id,
	).Scan(&got)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: event", model.ErrNotFound)
		}
		return fmt.Errorf("lock event row: %w", err)
	}
	return nil
}

// GetUser returns a ledger user or ErrNotFound.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(ctx,
		`SELECT id, balance_cents FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.BalanceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", model.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// SaveUser upserts a ledger user.
func (s *PostgresStore) SaveUser(ctx context.Context, u *model.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, balance_cents) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET balance_cents = EXCLUDED.balance_cents`,
		u.ID, u.BalanceCents,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// InTx runs fn inside a database transaction. When the store is already
// transaction-scoped, fn joins the enclosing transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
