package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridesync/internal/backend"
	"ridesync/internal/domain"
)

// TripStore is a PostgreSQL implementation of backend.TripStore.
type TripStore struct {
	db *sql.DB
}

// NewTripStore creates a PostgreSQL trip store.
func NewTripStore(db *sql.DB) *TripStore {
	return &TripStore{db: db}
}

var _ backend.TripStore = (*TripStore)(nil)

const tripColumns = `id, passenger_id, driver_id,
	origin_address, origin_lat, origin_lng,
	destination_address, destination_lat, destination_lng,
	status, fare, distance, duration,
	payment_method, payment_status,
	passenger_rating, driver_rating, comment,
	created_at, updated_at`

func (s *TripStore) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := s.db.ExecContext(ctx, query,
		trip.ID, trip.PassengerID, trip.DriverID,
		trip.Origin.Address, trip.Origin.Lat, trip.Origin.Lng,
		trip.Destination.Address, trip.Destination.Lat, trip.Destination.Lng,
		string(trip.Status), trip.Fare, trip.Distance, trip.Duration,
		string(trip.PaymentMethod), string(trip.PaymentStatus),
		nullableInt(trip.PassengerRating), nullableInt(trip.DriverRating), trip.Comment,
		trip.CreatedAt, trip.UpdatedAt,
	)
	return err
}

func (s *TripStore) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	trip, err := scanTrip(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrNotFound
	}
	return trip, err
}

func (s *TripStore) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips SET
			driver_id = $2, status = $3, fare = $4, distance = $5, duration = $6,
			payment_method = $7, payment_status = $8,
			passenger_rating = $9, driver_rating = $10, comment = $11,
			updated_at = $12
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		trip.ID, trip.DriverID, string(trip.Status),
		trip.Fare, trip.Distance, trip.Duration,
		string(trip.PaymentMethod), string(trip.PaymentStatus),
		nullableInt(trip.PassengerRating), nullableInt(trip.DriverRating), trip.Comment,
		trip.UpdatedAt,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

func (s *TripStore) GetByPassengerID(ctx context.Context, passengerID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE passenger_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, passengerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var status, method, payStatus string
	var passengerRating, driverRating sql.NullInt64

	err := row.Scan(
		&trip.ID, &trip.PassengerID, &trip.DriverID,
		&trip.Origin.Address, &trip.Origin.Lat, &trip.Origin.Lng,
		&trip.Destination.Address, &trip.Destination.Lat, &trip.Destination.Lng,
		&status, &trip.Fare, &trip.Distance, &trip.Duration,
		&method, &payStatus,
		&passengerRating, &driverRating, &trip.Comment,
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.Status = domain.TripStatus(status)
	trip.PaymentMethod = domain.PaymentMethod(method)
	trip.PaymentStatus = domain.PaymentStatus(payStatus)
	if passengerRating.Valid {
		v := int(passengerRating.Int64)
		trip.PassengerRating = &v
	}
	if driverRating.Valid {
		v := int(driverRating.Int64)
		trip.DriverRating = &v
	}
	return &trip, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
