package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitializeSchema creates the tables this service needs if they are missing.
// Events and users are owned by external systems in production; the tables
// here double as the local stand-in for those collaborators.
func InitializeSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	start_at TIMESTAMP WITH TIME ZONE NOT NULL,
	end_at TIMESTAMP WITH TIME ZONE NOT NULL,
	capacity INTEGER NOT NULL,
	waitlist_open BOOLEAN NOT NULL DEFAULT FALSE,
	status VARCHAR(32) NOT NULL DEFAULT 'SCHEDULED'
);`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	_, err = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT PRIMARY KEY,
	balance_cents BIGINT NOT NULL DEFAULT 0
);`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	_, err = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	status VARCHAR(16) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	cancelled_at TIMESTAMP WITH TIME ZONE,
	user_id BIGINT NOT NULL,
	event_id UUID NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("create bookings table: %w", err)
	}

	_, err = pool.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_bookings_event_status ON bookings (event_id, status);`)
	if err != nil {
		return fmt.Errorf("create bookings index: %w", err)
	}
	return nil
}
