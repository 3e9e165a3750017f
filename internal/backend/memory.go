package backend

import (
	"context"
	"sync"

	"ridesync/internal/domain"
)

// MemoryStore is the default in-process TripStore.
type MemoryStore struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip
	order []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[string]*domain.Trip)}
}

var _ TripStore = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *trip
	m.trips[trip.ID] = &cp
	m.order = append(m.order, trip.ID)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *trip
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return ErrNotFound
	}
	cp := *trip
	m.trips[trip.ID] = &cp
	return nil
}

func (m *MemoryStore) GetByPassengerID(ctx context.Context, passengerID string) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Trip
	for _, id := range m.order {
		trip := m.trips[id]
		if trip.PassengerID == passengerID {
			cp := *trip
			out = append(out, &cp)
		}
	}
	return out, nil
}

// seedDrivers is the static candidate pool served by the reference
// backend.
var seedDrivers = []*domain.DriverCandidate{
	{
		ID:      "driver-ana",
		Profile: domain.DriverProfile{Name: "Ana Morales", Phone: "+52 55 1234 0001"},
		Vehicle: domain.VehicleInfo{Make: "Nissan", Model: "Versa", Color: "gris", Plate: "MEX-481-A"},
		Rating:  4.9,
	},
	{
		ID:      "driver-luis",
		Profile: domain.DriverProfile{Name: "Luis Herrera", Phone: "+52 55 1234 0002"},
		Vehicle: domain.VehicleInfo{Make: "Chevrolet", Model: "Aveo", Color: "blanco", Plate: "MEX-207-B"},
		Rating:  4.7,
	},
	{
		ID:      "driver-sofia",
		Profile: domain.DriverProfile{Name: "Sofía Castillo", Phone: "+52 55 1234 0003"},
		Vehicle: domain.VehicleInfo{Make: "Kia", Model: "Rio", Color: "rojo", Plate: "MEX-954-C"},
		Rating:  4.8,
	},
}
