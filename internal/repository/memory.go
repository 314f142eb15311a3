package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ChrisaMendoza/pilates-core/internal/model"
)

// MemStore is an in-memory Store used by tests and by STORE=memory
// development mode. Records are held by value, so callers always receive
// copies.
type MemStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	bookings map[string]model.Booking
	events   map[string]model.Event
	users    map[int64]model.User
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		bookings: make(map[string]model.Booking),
		events:   make(map[string]model.Event),
		users:    make(map[int64]model.User),
	}
}

// PutEvent seeds or replaces an event. The catalog is external in
// production, so this only exists on the memory backend.
func (s *MemStore) PutEvent(e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

// PutUser seeds or replaces a ledger user.
func (s *MemStore) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// GetBooking returns a single booking or ErrNotFound.
func (s *MemStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking", model.ErrNotFound)
	}
	return &b, nil
}

// ListBookings returns every booking ordered by creation time.
func (s *MemStore) ListBookings(ctx context.Context) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(model.Booking) bool { return true }), nil
}

// ListBookingsByUser returns one user's bookings ordered by creation time.
func (s *MemStore) ListBookingsByUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (s *MemStore) collect(keep func(model.Booking) bool) []model.Booking {
	var out []model.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CountBookingsByEventAndStatus counts bookings in the given status for an event.
func (s *MemStore) CountBookingsByEventAndStatus(ctx context.Context, eventID string, status model.BookingStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, b := range s.bookings {
		if b.EventID == eventID && b.Status == status {
			count++
		}
	}
	return count, nil
}

// CreateBooking inserts a new booking.
func (s *MemStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[b.ID]; exists {
		return fmt.Errorf("%w: booking id already exists", model.ErrConflict)
	}
	s.bookings[b.ID] = *b
	return nil
}

// UpdateBooking replaces an existing booking.
func (s *MemStore) UpdateBooking(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return fmt.Errorf("%w: booking", model.ErrNotFound)
	}
	s.bookings[b.ID] = *b
	return nil
}

// MarkCancelled flips a booking to CANCELLED unless it already is.
func (s *MemStore) MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return false, fmt.Errorf("%w: booking", model.ErrNotFound)
	}
	if b.Status == model.StatusCancelled {
		return false, nil
	}
	b.Status = model.StatusCancelled
	cancelled := at
	b.CancelledAt = &cancelled
	s.bookings[id] = b
	return true, nil
}

// DeleteBooking hard-removes a booking.
func (s *MemStore) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return fmt.Errorf("%w: booking", model.ErrNotFound)
	}
	delete(s.bookings, id)
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (s *MemStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event", model.ErrNotFound)
	}
	return &e, nil
}

// LockEvent verifies the event exists. Serialization is provided by the
// transaction mutex in InTx, so no per-row lock is needed here.
func (s *MemStore) LockEvent(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("%w: event", model.ErrNotFound)
	}
	return nil
}

// GetUser returns a ledger user or ErrNotFound.
func (s *MemStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user", model.ErrNotFound)
	}
	return &u, nil
}

// SaveUser upserts a ledger user.
func (s *MemStore) SaveUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

// InTx serializes transactional units and rolls all writes back when fn
// returns an error. Transactions must not be nested.
func (s *MemStore) InTx(ctx context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapBookings := make(map[string]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		snapBookings[k] = v
	}
	snapUsers := make(map[int64]model.User, len(s.users))
	for k, v := range s.users {
		snapUsers[k] = v
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.bookings = snapBookings
		s.users = snapUsers
		s.mu.Unlock()
		return err
	}
	return nil
}
