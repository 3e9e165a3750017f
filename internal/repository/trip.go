package repository

import (
	"context"

	"ridesync/internal/domain"
)

// RideRequest contains the parameters for requesting a new ride.
type RideRequest struct {
	PassengerID    string
	Origin         domain.Location
	Destination    domain.Location
	PaymentMethod  domain.PaymentMethod
	IdempotencyKey string
}

// TripRepository is the uniform adapter over the remote trip operations.
// Implementations never panic and never leak raw transport faults: every
// error returned is classified with a fault.Kind.
type TripRepository interface {
	// RequestRide creates a new trip on the remote system.
	RequestRide(ctx context.Context, req RideRequest) (*domain.Trip, error)

	// GetTripByID retrieves a single trip.
	GetTripByID(ctx context.Context, id string) (*domain.Trip, error)

	// CancelTrip cancels a trip and returns its updated state.
	CancelTrip(ctx context.Context, tripID, idempotencyKey string) (*domain.Trip, error)

	// PayTrip settles a trip with the given payment method.
	PayTrip(ctx context.Context, tripID string, method domain.PaymentMethod, idempotencyKey string) (*domain.Trip, error)

	// RateTrip records the passenger's rating for a completed trip.
	RateTrip(ctx context.Context, tripID string, rating int, comment, idempotencyKey string) (*domain.Trip, error)

	// GetUserTrips retrieves every trip of the passenger.
	GetUserTrips(ctx context.Context, passengerID string) ([]*domain.Trip, error)

	// GetTripsByStatus filters the passenger's trips by canonical status.
	GetTripsByStatus(ctx context.Context, passengerID string, status domain.TripStatus) ([]*domain.Trip, error)

	// GetActiveTrip returns the passenger's first non-terminal trip, or
	// nil if none exists.
	GetActiveTrip(ctx context.Context, passengerID string) (*domain.Trip, error)

	// GetAvailableDrivers lists candidates for driver selection.
	GetAvailableDrivers(ctx context.Context) ([]*domain.DriverCandidate, error)

	// SelectDriver proposes a driver for the trip. Confirmation arrives
	// asynchronously and is observed by polling GetTripByID.
	SelectDriver(ctx context.Context, tripID, driverID string) error
}
