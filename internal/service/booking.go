// Package service implements the booking admission and cancellation engines
// and the remaining booking operations, orchestrating between HTTP handlers
// and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ChrisaMendoza/pilates-core/internal/auth"
	"github.com/ChrisaMendoza/pilates-core/internal/model"
	"github.com/ChrisaMendoza/pilates-core/internal/repository"
)

const (
	// PenaltyCents is the fixed debit for cancelling inside the penalty window.
	PenaltyCents = 500
	// PenaltyWindow is the period before event start during which cancelling
	// incurs the penalty. Cancelling at exactly the window boundary is free.
	PenaltyWindow = 12 * time.Hour
)

// BookingService carries out all booking operations.
type BookingService struct {
	store repository.Store
	guard auth.Guard
	locks eventLocks
	log   zerolog.Logger

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(store repository.Store, log zerolog.Logger) *BookingService {
	return &BookingService{
		store: store,
		log:   log.With().Str("component", "booking").Logger(),
		now:   time.Now,
	}
}

// Admit decides the outcome of a new reservation request: a seat (BOOKED), a
// waitlist slot (FULL) when capacity is exhausted but the waitlist is open,
// or ErrConflict otherwise.
//
// The count-then-decide sequence is a check-then-act race, so it runs under a
// per-event mutex and, on Postgres, additionally under a row lock on the
// event inside the insert transaction. Both guarantee count(BOOKED) never
// exceeds capacity.
func (s *BookingService) Admit(ctx context.Context, actor auth.Actor, req model.CreateBookingRequest) (*model.Booking, error) {
	if req.EventID == "" {
		return nil, fmt.Errorf("%w: event_id is required", model.ErrInvalidArgument)
	}

	userID, err := s.guard.EffectiveCreateUser(actor, req.UserID)
	if err != nil {
		return nil, err
	}

	event, err := s.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !event.StartAt.After(now) {
		return nil, fmt.Errorf("%w: cannot book past or ongoing event", model.ErrInvalidArgument)
	}

	mu := s.locks.forEvent(event.ID)
	mu.Lock()
	defer mu.Unlock()

	var booking *model.Booking
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.LockEvent(ctx, event.ID); err != nil {
			return err
		}

		booked, err := tx.CountBookingsByEventAndStatus(ctx, event.ID, model.StatusBooked)
		if err != nil {
			return err
		}

		status := model.StatusBooked
		switch {
		case booked < event.Capacity:
			// seat available
		case event.WaitlistOpen:
			status = model.StatusFull
		default:
			return fmt.Errorf("%w: capacity exhausted and waitlist closed", model.ErrConflict)
		}

		booking = &model.Booking{
			ID:        uuid.New().String(),
			Status:    status,
			CreatedAt: now,
			UserID:    userID,
			EventID:   event.ID,
		}
		return tx.CreateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("booking_id", booking.ID).
		Str("event_id", event.ID).
		Int64("user_id", userID).
		Str("status", string(booking.Status)).
		Msg("booking admitted")
	return booking, nil
}

// Cancel transitions a booking to CANCELLED and, when less than the penalty
// window remains before event start, debits the fixed penalty from the
// booking owner's balance. Cancelling an already-cancelled booking is a
// no-op and never re-applies the penalty.
func (s *BookingService) Cancel(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AssertCanActOnBooking(actor, booking); err != nil {
		return nil, err
	}
	if booking.Status == model.StatusCancelled {
		return booking, nil
	}

	event, err := s.store.GetEvent(ctx, booking.EventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: linked event not found", model.ErrInvalidArgument)
		}
		return nil, err
	}

	now := s.now()
	remaining := event.StartAt.Sub(now)
	penalty := remaining >= 0 && remaining < PenaltyWindow

	// Status flip and penalty debit are one transaction: either both commit
	// or neither does. MarkCancelled is a compare-and-set, so a concurrent
	// cancel that lost the race skips the debit.
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		changed, err := tx.MarkCancelled(ctx, id, now)
		if err != nil {
			return err
		}
		if !changed || !penalty {
			return nil
		}

		user, err := tx.GetUser(ctx, booking.UserID)
		if err != nil {
			return fmt.Errorf("debit cancellation penalty: %w", err)
		}
		user.BalanceCents -= PenaltyCents
		return tx.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("booking_id", id).
		Bool("penalty", penalty).
		Dur("until_start", remaining).
		Msg("booking cancelled")
	return s.store.GetBooking(ctx, id)
}

// FindAll returns every booking for admins and only the actor's own
// bookings otherwise.
func (s *BookingService) FindAll(ctx context.Context, actor auth.Actor) ([]model.Booking, error) {
	if actor.Admin {
		return s.store.ListBookings(ctx)
	}
	return s.store.ListBookingsByUser(ctx, actor.UserID)
}

// FindOne returns a single booking after the ownership check.
func (s *BookingService) FindOne(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AssertCanActOnBooking(actor, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// Replace fully overwrites a booking. Admin only. The body id must match the
// addressed booking, and a cancelled booking cannot leave CANCELLED.
func (s *BookingService) Replace(ctx context.Context, actor auth.Actor, id string, b model.Booking) (*model.Booking, error) {
	if b.ID == "" {
		return nil, fmt.Errorf("%w: id is required", model.ErrInvalidArgument)
	}
	if b.ID != id {
		return nil, fmt.Errorf("%w: id mismatch", model.ErrInvalidArgument)
	}
	if err := s.guard.AssertAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkNoResurrect(existing.Status, b.Status); err != nil {
		return nil, err
	}

	if err := s.store.UpdateBooking(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Merge partially updates a booking, ignoring nil patch fields. Admin only.
func (s *BookingService) Merge(ctx context.Context, actor auth.Actor, id string, patch model.BookingPatch) (*model.Booking, error) {
	if patch.ID == "" {
		return nil, fmt.Errorf("%w: id is required", model.ErrInvalidArgument)
	}
	if patch.ID != id {
		return nil, fmt.Errorf("%w: id mismatch", model.ErrInvalidArgument)
	}
	if err := s.guard.AssertAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if patch.Status != nil {
		if err := checkNoResurrect(existing.Status, *patch.Status); err != nil {
			return nil, err
		}
		merged.Status = *patch.Status
	}
	if patch.CreatedAt != nil {
		merged.CreatedAt = *patch.CreatedAt
	}
	if patch.CancelledAt != nil {
		merged.CancelledAt = patch.CancelledAt
	}
	if patch.UserID != nil {
		merged.UserID = *patch.UserID
	}
	if patch.EventID != nil {
		merged.EventID = *patch.EventID
	}

	if err := s.store.UpdateBooking(ctx, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Delete hard-removes a booking after the ownership check. Unlike Cancel it
// keeps no history.
func (s *BookingService) Delete(ctx context.Context, actor auth.Actor, id string) error {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.AssertCanActOnBooking(actor, booking); err != nil {
		return err
	}
	return s.store.DeleteBooking(ctx, id)
}

// checkNoResurrect rejects status edits that would pull a booking out of the
// terminal CANCELLED state.
func checkNoResurrect(current, next model.BookingStatus) error {
	if current == model.StatusCancelled && next != model.StatusCancelled {
		return fmt.Errorf("%w: cancelled booking cannot be reinstated", model.ErrInvalidArgument)
	}
	return nil
}
