// Package backend is the reference implementation of the remote trip
// API. It exists so the client engine can be developed and exercised
// end to end; it is a test double with realistic behavior, not a
// production matcher.
package backend

import (
	"context"
	"errors"

	"ridesync/internal/domain"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// TripStore defines the persistence operations of the reference backend.
type TripStore interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// Update overwrites an existing trip.
	Update(ctx context.Context, trip *domain.Trip) error

	// GetByPassengerID retrieves a passenger's trips, oldest first.
	GetByPassengerID(ctx context.Context, passengerID string) ([]*domain.Trip, error)
}
