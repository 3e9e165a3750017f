package service

import (
	"context"
	"sync"
	"sync/atomic"

	"ridesync/internal/domain"
	"ridesync/internal/fault"
	"ridesync/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of repository.TripRepository.
type MockTripRepository struct {
	mu      sync.RWMutex
	trips   map[string]*domain.Trip
	drivers []*domain.DriverCandidate

	// Counters for verification
	RequestRideCallCount  int32
	GetTripCallCount      int32
	CancelTripCallCount   int32
	PayTripCallCount      int32
	RateTripCallCount     int32
	GetUserTripsCallCount int32
	SelectDriverCallCount int32

	// Error injection. The *Errors slices are consumed one per call,
	// letting a test script "fail twice, then succeed"; when a slice is
	// exhausted the corresponding *Error field applies to every call.
	RequestRideError   error
	RequestRideErrors  []error
	GetTripError       error
	CancelTripError    error
	CancelTripErrors   []error
	PayTripError       error
	RateTripError      error
	GetUserTripsError  error
	SelectDriverError  error
	GetActiveTripError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

var _ repository.TripRepository = (*MockTripRepository)(nil)

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

// AddDriver adds a driver candidate to the mock repository.
func (m *MockTripRepository) AddDriver(d *domain.DriverCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers = append(m.drivers, d)
}

// GetTrip returns a stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

// CountTrips returns the number of stored trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// nextError pops the next scripted error, falling back to the fixed one.
func (m *MockTripRepository) nextError(scripted *[]error, fixed error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(*scripted) > 0 {
		err := (*scripted)[0]
		*scripted = (*scripted)[1:]
		return err
	}
	return fixed
}

func (m *MockTripRepository) RequestRide(ctx context.Context, req repository.RideRequest) (*domain.Trip, error) {
	atomic.AddInt32(&m.RequestRideCallCount, 1)
	if err := m.nextError(&m.RequestRideErrors, m.RequestRideError); err != nil {
		return nil, err
	}

	trip := &domain.Trip{
		ID:            req.IdempotencyKey,
		PassengerID:   req.PassengerID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		Status:        domain.TripStatusRequested,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: domain.PaymentStatusPending,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	return trip, nil
}

func (m *MockTripRepository) GetTripByID(ctx context.Context, id string) (*domain.Trip, error) {
	atomic.AddInt32(&m.GetTripCallCount, 1)
	if m.GetTripError != nil {
		return nil, m.GetTripError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, fault.Wrap(fault.KindRemote, "viaje no encontrado", repository.ErrNotFound)
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) CancelTrip(ctx context.Context, tripID, idempotencyKey string) (*domain.Trip, error) {
	atomic.AddInt32(&m.CancelTripCallCount, 1)
	if err := m.nextError(&m.CancelTripErrors, m.CancelTripError); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, fault.Wrap(fault.KindRemote, "viaje no encontrado", repository.ErrNotFound)
	}
	trip.Status = domain.TripStatusCancelled
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) PayTrip(ctx context.Context, tripID string, method domain.PaymentMethod, idempotencyKey string) (*domain.Trip, error) {
	atomic.AddInt32(&m.PayTripCallCount, 1)
	if m.PayTripError != nil {
		return nil, m.PayTripError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, fault.Wrap(fault.KindRemote, "viaje no encontrado", repository.ErrNotFound)
	}
	trip.PaymentMethod = method
	trip.PaymentStatus = domain.PaymentStatusPaid
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) RateTrip(ctx context.Context, tripID string, rating int, comment, idempotencyKey string) (*domain.Trip, error) {
	atomic.AddInt32(&m.RateTripCallCount, 1)
	if m.RateTripError != nil {
		return nil, m.RateTripError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, fault.Wrap(fault.KindRemote, "viaje no encontrado", repository.ErrNotFound)
	}
	trip.PassengerRating = &rating
	trip.Comment = comment
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetUserTrips(ctx context.Context, passengerID string) ([]*domain.Trip, error) {
	atomic.AddInt32(&m.GetUserTripsCallCount, 1)
	if m.GetUserTripsError != nil {
		return nil, m.GetUserTripsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0, len(m.trips))
	for _, trip := range m.trips {
		if trip.PassengerID != passengerID {
			continue
		}
		copy := *trip
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockTripRepository) GetTripsByStatus(ctx context.Context, passengerID string, status domain.TripStatus) ([]*domain.Trip, error) {
	trips, err := m.GetUserTrips(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	filtered := make([]*domain.Trip, 0, len(trips))
	for _, trip := range trips {
		if trip.Status == status {
			filtered = append(filtered, trip)
		}
	}
	return filtered, nil
}

func (m *MockTripRepository) GetActiveTrip(ctx context.Context, passengerID string) (*domain.Trip, error) {
	if m.GetActiveTripError != nil {
		return nil, m.GetActiveTripError
	}
	trips, err := m.GetUserTrips(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	for _, trip := range trips {
		if trip.IsActive() {
			return trip, nil
		}
	}
	return nil, nil
}

func (m *MockTripRepository) GetAvailableDrivers(ctx context.Context) ([]*domain.DriverCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.DriverCandidate(nil), m.drivers...), nil
}

func (m *MockTripRepository) SelectDriver(ctx context.Context, tripID, driverID string) error {
	atomic.AddInt32(&m.SelectDriverCallCount, 1)
	if m.SelectDriverError != nil {
		return m.SelectDriverError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return fault.Wrap(fault.KindRemote, "viaje no encontrado", repository.ErrNotFound)
	}
	trip.DriverID = driverID
	return nil
}
