package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisaMendoza/pilates-core/internal/model"
	"github.com/ChrisaMendoza/pilates-core/internal/repository"
)

// TestConcurrentAdmission hammers a single event from many goroutines and
// verifies the capacity invariant holds: count(BOOKED) never exceeds
// capacity, regardless of interleaving.
func TestConcurrentAdmission(t *testing.T) {
	const (
		capacity = 10
		attempts = 100
	)
	ctx := context.Background()

	t.Run("waitlist closed", func(t *testing.T) {
		store := repository.NewMemStore()
		seedEvent(store, "ev", 24*time.Hour, capacity, false)
		svc := newTestService(store)

		var booked, rejected atomic.Int64
		var g errgroup.Group
		for i := 0; i < attempts; i++ {
			g.Go(func() error {
				_, err := svc.Admit(ctx, admin, model.CreateBookingRequest{EventID: "ev"})
				switch {
				case err == nil:
					booked.Add(1)
				case errors.Is(err, model.ErrConflict):
					rejected.Add(1)
				default:
					return fmt.Errorf("unexpected admit error: %w", err)
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int64(capacity), booked.Load())
		assert.Equal(t, int64(attempts-capacity), rejected.Load())

		count, err := store.CountBookingsByEventAndStatus(ctx, "ev", model.StatusBooked)
		require.NoError(t, err)
		assert.Equal(t, capacity, count)
	})

	t.Run("waitlist open", func(t *testing.T) {
		store := repository.NewMemStore()
		seedEvent(store, "ev", 24*time.Hour, capacity, true)
		svc := newTestService(store)

		var g errgroup.Group
		for i := 0; i < attempts; i++ {
			g.Go(func() error {
				_, err := svc.Admit(ctx, admin, model.CreateBookingRequest{EventID: "ev"})
				return err
			})
		}
		require.NoError(t, g.Wait())

		booked, err := store.CountBookingsByEventAndStatus(ctx, "ev", model.StatusBooked)
		require.NoError(t, err)
		full, err := store.CountBookingsByEventAndStatus(ctx, "ev", model.StatusFull)
		require.NoError(t, err)
		assert.Equal(t, capacity, booked, "exactly capacity seats granted")
		assert.Equal(t, attempts-capacity, full, "overflow goes to the waitlist")
	})

	t.Run("independent events admit in parallel", func(t *testing.T) {
		store := repository.NewMemStore()
		for i := 0; i < 4; i++ {
			seedEvent(store, fmt.Sprintf("ev-%d", i), 24*time.Hour, capacity, false)
		}
		svc := newTestService(store)

		var g errgroup.Group
		for i := 0; i < 4; i++ {
			eventID := fmt.Sprintf("ev-%d", i)
			for j := 0; j < capacity; j++ {
				g.Go(func() error {
					_, err := svc.Admit(ctx, admin, model.CreateBookingRequest{EventID: eventID})
					return err
				})
			}
		}
		require.NoError(t, g.Wait())

		for i := 0; i < 4; i++ {
			count, err := store.CountBookingsByEventAndStatus(ctx, fmt.Sprintf("ev-%d", i), model.StatusBooked)
			require.NoError(t, err)
			assert.Equal(t, capacity, count)
		}
	})
}

// TestConcurrentCancel verifies racing cancellations of one booking converge
// to a single penalty debit.
func TestConcurrentCancel(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemStore()
	seedEvent(store, "ev", 6*time.Hour, 10, false)
	store.PutUser(model.User{ID: member.UserID, BalanceCents: 1000})
	svc := newTestService(store)

	booking, err := svc.Admit(ctx, member, model.CreateBookingRequest{EventID: "ev"})
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := svc.Cancel(ctx, member, booking.ID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	user, err := store.GetUser(ctx, member.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), user.BalanceCents, "penalty applied exactly once")
}
