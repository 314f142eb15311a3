// Package model defines the core domain types for the booking system.
package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	// StatusBooked means the booking holds a confirmed seat.
	StatusBooked BookingStatus = "BOOKED"
	// StatusFull means the booking was accepted onto the waitlist
	// because the event's capacity was exhausted.
	StatusFull BookingStatus = "FULL"
	// StatusCancelled is terminal; a cancelled booking is never resurrected.
	StatusCancelled BookingStatus = "CANCELLED"
)

// Booking is a user's claim on a seat or waitlist slot of an event.
type Booking struct {
	ID          string        `json:"id"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CancelledAt *time.Time    `json:"cancelled_at"`
	UserID      int64         `json:"user_id"`
	EventID     string        `json:"event_id"`
}

// Event is a scheduled, capacity-limited session. The catalog owning it is
// external; this service only reads it.
type Event struct {
	ID           string    `json:"id"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	Capacity     int       `json:"capacity"`
	WaitlistOpen bool      `json:"waitlist_open"`
	Status       string    `json:"status"`
}

// User carries the credit balance the cancellation penalty is debited from.
// The balance is allowed to go negative.
type User struct {
	ID           int64 `json:"id"`
	BalanceCents int64 `json:"balance_cents"`
}

// CreateBookingRequest is the payload for POST /bookings. UserID is optional:
// admins may book for any user, everyone else only for themselves.
type CreateBookingRequest struct {
	EventID string `json:"event_id"`
	UserID  *int64 `json:"user_id"`
}

// BookingPatch is the payload for PATCH /bookings/{id}. Nil fields are left
// untouched, so "absent" and "explicitly set" stay distinguishable.
type BookingPatch struct {
	ID          string         `json:"id"`
	Status      *BookingStatus `json:"status"`
	CreatedAt   *time.Time     `json:"created_at"`
	CancelledAt *time.Time     `json:"cancelled_at"`
	UserID      *int64         `json:"user_id"`
	EventID     *string        `json:"event_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
