package domain

import (
	"fmt"
	"time"
)

// TripRecord is the plain structural form of a trip used for local storage
// and transport. Field names match the wire contract of the backend.
type TripRecord struct {
	ID              string  `json:"id"`
	PassengerID     string  `json:"passenger_id"`
	DriverID        string  `json:"driver_id,omitempty"`
	OriginAddress   string  `json:"origin_address"`
	OriginLat       float64 `json:"origin_lat"`
	OriginLng       float64 `json:"origin_lng"`
	DestAddress     string  `json:"destination_address"`
	DestLat         float64 `json:"destination_lat"`
	DestLng         float64 `json:"destination_lng"`
	Status          string  `json:"status"`
	Fare            float64 `json:"fare,omitempty"`
	Distance        float64 `json:"distance,omitempty"`
	Duration        float64 `json:"duration,omitempty"`
	PaymentMethod   string  `json:"payment_method"`
	PaymentStatus   string  `json:"payment_status"`
	PassengerRating *int    `json:"passenger_rating,omitempty"`
	DriverRating    *int    `json:"driver_rating,omitempty"`
	Comment         string  `json:"comment,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
	UpdatedAt       string  `json:"updated_at,omitempty"`
}

// Record converts the trip to its plain structural form.
func (t *Trip) Record() TripRecord {
	rec := TripRecord{
		ID:              t.ID,
		PassengerID:     t.PassengerID,
		DriverID:        t.DriverID,
		OriginAddress:   t.Origin.Address,
		OriginLat:       t.Origin.Lat,
		OriginLng:       t.Origin.Lng,
		DestAddress:     t.Destination.Address,
		DestLat:         t.Destination.Lat,
		DestLng:         t.Destination.Lng,
		Status:          string(t.Status),
		Fare:            t.Fare,
		Distance:        t.Distance,
		Duration:        t.Duration,
		PaymentMethod:   string(t.PaymentMethod),
		PaymentStatus:   string(t.PaymentStatus),
		PassengerRating: t.PassengerRating,
		DriverRating:    t.DriverRating,
		Comment:         t.Comment,
	}
	if !t.CreatedAt.IsZero() {
		rec.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !t.UpdatedAt.IsZero() {
		rec.UpdatedAt = t.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return rec
}

// TripFromRecord rebuilds a trip entity from its structural form, mapping
// the status token through the boundary translation table.
func TripFromRecord(rec TripRecord) (*Trip, error) {
	status, err := ParseTripStatus(rec.Status)
	if err != nil {
		return nil, err
	}

	trip := &Trip{
		ID:          rec.ID,
		PassengerID: rec.PassengerID,
		DriverID:    rec.DriverID,
		Origin: Location{
			Address: rec.OriginAddress,
			Lat:     rec.OriginLat,
			Lng:     rec.OriginLng,
		},
		Destination: Location{
			Address: rec.DestAddress,
			Lat:     rec.DestLat,
			Lng:     rec.DestLng,
		},
		Status:          status,
		Fare:            rec.Fare,
		Distance:        rec.Distance,
		Duration:        rec.Duration,
		PaymentMethod:   PaymentMethod(rec.PaymentMethod),
		PaymentStatus:   PaymentStatus(rec.PaymentStatus),
		PassengerRating: rec.PassengerRating,
		DriverRating:    rec.DriverRating,
		Comment:         rec.Comment,
	}

	if rec.CreatedAt != "" {
		trip.CreatedAt, err = time.Parse(time.RFC3339, rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at: %w", err)
		}
	}
	if rec.UpdatedAt != "" {
		trip.UpdatedAt, err = time.Parse(time.RFC3339, rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid updated_at: %w", err)
		}
	}

	return trip, nil
}
