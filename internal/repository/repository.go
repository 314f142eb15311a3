// Package repository implements persistence for bookings and for the
// event/user records the engines read. Two backends exist: PostgreSQL via
// pgx (no ORM) and an in-memory store for tests and local development.
package repository

import (
	"context"
	"time"

	"github.com/ChrisaMendoza/pilates-core/internal/model"
)

// Store is the persistence surface the booking service works against.
//
// InTx runs fn against a transactional view of the store: either every write
// fn performs is committed, or none is. MarkCancelled is a compare-and-set on
// the booking status, so concurrent cancellations of the same booking resolve
// to exactly one transition (and therefore at most one penalty debit).
// LockEvent serializes transactions touching the same event; on Postgres it
// takes a row lock that is held until the transaction ends.
type Store interface {
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	ListBookingsByUser(ctx context.Context, userID int64) ([]model.Booking, error)
	CountBookingsByEventAndStatus(ctx context.Context, eventID string, status model.BookingStatus) (int, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	UpdateBooking(ctx context.Context, b *model.Booking) error
	MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteBooking(ctx context.Context, id string) error

	GetEvent(ctx context.Context, id string) (*model.Event, error)
	LockEvent(ctx context.Context, id string) error

	GetUser(ctx context.Context, id int64) (*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error

	InTx(ctx context.Context, fn func(Store) error) error
}
