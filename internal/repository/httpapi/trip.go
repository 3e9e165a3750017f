package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ridesync/internal/domain"
	"ridesync/internal/fault"
	"ridesync/internal/repository"
)

// TripRepository is an HTTP implementation of repository.TripRepository.
type TripRepository struct {
	client *Client
}

// NewTripRepository creates an HTTP trip repository.
func NewTripRepository(baseURL string, timeout time.Duration) *TripRepository {
	return &TripRepository{client: NewClient(baseURL, timeout)}
}

var _ repository.TripRepository = (*TripRepository)(nil)

// classify maps a wire error into the fault taxonomy. Transport failures
// and gateway-style statuses are connectivity; everything else the
// backend said is a business failure and is surfaced verbatim.
func classify(op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fault.Wrap(fault.KindNetwork, op, err)
		case http.StatusNotFound:
			return fault.Wrap(fault.KindRemote, apiErr.Message, repository.ErrNotFound)
		}
		return fault.Wrap(fault.KindRemote, apiErr.Message, err)
	}
	return fault.Wrap(fault.KindNetwork, op, err)
}

func decodeTrip(rec domain.TripRecord) (*domain.Trip, error) {
	trip, err := domain.TripFromRecord(rec)
	if err != nil {
		// An unmappable status token is a backend contract violation.
		return nil, fault.Wrap(fault.KindRemote, "invalid trip payload", err)
	}
	return trip, nil
}

func (r *TripRepository) RequestRide(ctx context.Context, req repository.RideRequest) (*domain.Trip, error) {
	body := struct {
		PassengerID   string  `json:"passenger_id"`
		OriginAddress string  `json:"origin_address"`
		OriginLat     float64 `json:"origin_lat"`
		OriginLng     float64 `json:"origin_lng"`
		DestAddress   string  `json:"destination_address"`
		DestLat       float64 `json:"destination_lat"`
		DestLng       float64 `json:"destination_lng"`
		PaymentMethod string  `json:"payment_method"`
	}{
		PassengerID:   req.PassengerID,
		OriginAddress: req.Origin.Address,
		OriginLat:     req.Origin.Lat,
		OriginLng:     req.Origin.Lng,
		DestAddress:   req.Destination.Address,
		DestLat:       req.Destination.Lat,
		DestLng:       req.Destination.Lng,
		PaymentMethod: string(req.PaymentMethod),
	}

	var rec domain.TripRecord
	if err := r.client.do(ctx, http.MethodPost, "/v1/trips", req.IdempotencyKey, body, &rec); err != nil {
		return nil, classify("request ride", err)
	}
	return decodeTrip(rec)
}

func (r *TripRepository) GetTripByID(ctx context.Context, id string) (*domain.Trip, error) {
	var rec domain.TripRecord
	path := "/v1/trips/" + url.PathEscape(id)
	if err := r.client.do(ctx, http.MethodGet, path, "", nil, &rec); err != nil {
		return nil, classify("get trip", err)
	}
	return decodeTrip(rec)
}

func (r *TripRepository) CancelTrip(ctx context.Context, tripID, idempotencyKey string) (*domain.Trip, error) {
	var rec domain.TripRecord
	path := fmt.Sprintf("/v1/trips/%s/cancel", url.PathEscape(tripID))
	if err := r.client.do(ctx, http.MethodPost, path, idempotencyKey, nil, &rec); err != nil {
		return nil, classify("cancel trip", err)
	}
	return decodeTrip(rec)
}

func (r *TripRepository) PayTrip(ctx context.Context, tripID string, method domain.PaymentMethod, idempotencyKey string) (*domain.Trip, error) {
	body := struct {
		PaymentMethod string `json:"payment_method"`
	}{PaymentMethod: string(method)}

	var rec domain.TripRecord
	path := fmt.Sprintf("/v1/trips/%s/pay", url.PathEscape(tripID))
	if err := r.client.do(ctx, http.MethodPost, path, idempotencyKey, body, &rec); err != nil {
		return nil, classify("pay trip", err)
	}
	return decodeTrip(rec)
}

func (r *TripRepository) RateTrip(ctx context.Context, tripID string, rating int, comment, idempotencyKey string) (*domain.Trip, error) {
	body := struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment,omitempty"`
	}{Rating: rating, Comment: comment}

	var rec domain.TripRecord
	path := fmt.Sprintf("/v1/trips/%s/rate", url.PathEscape(tripID))
	if err := r.client.do(ctx, http.MethodPost, path, idempotencyKey, body, &rec); err != nil {
		return nil, classify("rate trip", err)
	}
	return decodeTrip(rec)
}

func (r *TripRepository) GetUserTrips(ctx context.Context, passengerID string) ([]*domain.Trip, error) {
	var recs []domain.TripRecord
	path := "/v1/trips?passenger_id=" + url.QueryEscape(passengerID)
	if err := r.client.do(ctx, http.MethodGet, path, "", nil, &recs); err != nil {
		return nil, classify("get user trips", err)
	}

	trips := make([]*domain.Trip, 0, len(recs))
	for _, rec := range recs {
		trip, err := decodeTrip(rec)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

func (r *TripRepository) GetTripsByStatus(ctx context.Context, passengerID string, status domain.TripStatus) ([]*domain.Trip, error) {
	trips, err := r.GetUserTrips(ctx, passengerID)
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

// GetActiveTrip scans the user's trips for the first non-terminal one.
// Per-user trip counts are small, so the linear scan is fine.
func (r *TripRepository) GetActiveTrip(ctx context.Context, passengerID string) (*domain.Trip, error) {
	trips, err := r.GetUserTrips(ctx, passengerID)
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

func (r *TripRepository) GetAvailableDrivers(ctx context.Context) ([]*domain.DriverCandidate, error) {
	var candidates []*domain.DriverCandidate
	if err := r.client.do(ctx, http.MethodGet, "/v1/drivers/available", "", nil, &candidates); err != nil {
		return nil, classify("get available drivers", err)
	}
	return candidates, nil
}

func (r *TripRepository) SelectDriver(ctx context.Context, tripID, driverID string) error {
	body := struct {
		DriverID string `json:"driver_id"`
	}{DriverID: driverID}

	path := fmt.Sprintf("/v1/trips/%s/driver", url.PathEscape(tripID))
	if err := r.client.do(ctx, http.MethodPost, path, "", body, nil); err != nil {
		return classify("select driver", err)
	}
	return nil
}
