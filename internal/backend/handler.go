package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ridesync/internal/domain"
)

// Sentinel errors for HTTP status mapping.
var (
	ErrTripNotCancellable = errors.New("el viaje ya no puede cancelarse")
	ErrTripNotRatable     = errors.New("el viaje no puede calificarse")
	ErrDriverUnknown      = errors.New("conductor desconocido")
)

// localizedStatus maps canonical statuses to the Spanish tokens this
// backend reports on the wire. The client translates them back through
// its boundary table.
var localizedStatus = map[domain.TripStatus]string{
	domain.TripStatusRequested:  "solicitado",
	domain.TripStatusAccepted:   "aceptado",
	domain.TripStatusArriving:   "en_camino",
	domain.TripStatusInProgress: "en_curso",
	domain.TripStatusCompleted:  "completado",
	domain.TripStatusCancelled:  "cancelado",
}

// TripHandler handles the trip API of the reference backend.
type TripHandler struct {
	store       TripStore
	acceptDelay time.Duration
}

// NewTripHandler creates a TripHandler. acceptDelay is how long a
// selected driver "thinks" before accepting.
func NewTripHandler(store TripStore, acceptDelay time.Duration) *TripHandler {
	return &TripHandler{store: store, acceptDelay: acceptDelay}
}

func tripJSON(trip *domain.Trip) domain.TripRecord {
	rec := trip.Record()
	rec.Status = localizedStatus[trip.Status]
	return rec
}

// createTripRequest is the body of POST /v1/trips.
type createTripRequest struct {
	PassengerID   string  `json:"passenger_id" binding:"required"`
	OriginAddress string  `json:"origin_address" binding:"required"`
	OriginLat     float64 `json:"origin_lat"`
	OriginLng     float64 `json:"origin_lng"`
	DestAddress   string  `json:"destination_address" binding:"required"`
	DestLat       float64 `json:"destination_lat"`
	DestLng       float64 `json:"destination_lng"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	now := time.Now()
	trip := &domain.Trip{
		ID:          uuid.New().String(),
		PassengerID: req.PassengerID,
		Origin: domain.Location{
			Address: req.OriginAddress, Lat: req.OriginLat, Lng: req.OriginLng,
		},
		Destination: domain.Location{
			Address: req.DestAddress, Lat: req.DestLat, Lng: req.DestLng,
		},
		Status:        domain.TripStatusRequested,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if result := trip.Validate(); !result.IsValid {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: strings.Join(result.Errors, "; ")})
		return
	}

	if err := h.store.Create(c.Request.Context(), trip); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tripJSON(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tripJSON(trip))
}

// ListTrips handles GET /v1/trips?passenger_id=...
func (h *TripHandler) ListTrips(c *gin.Context) {
	passengerID := c.Query("passenger_id")
	trips, err := h.store.GetByPassengerID(c.Request.Context(), passengerID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]domain.TripRecord, 0, len(trips))
	for _, trip := range trips {
		out = append(out, tripJSON(trip))
	}
	c.JSON(http.StatusOK, out)
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	ctx := c.Request.Context()
	trip, err := h.store.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !trip.CanBeCancelled() {
		respondError(c, ErrTripNotCancellable)
		return
	}

	trip.Status = domain.TripStatusCancelled
	trip.UpdatedAt = time.Now()
	if err := h.store.Update(ctx, trip); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tripJSON(trip))
}

// payTripRequest is the body of POST /v1/trips/:id/pay.
type payTripRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// PayTrip handles POST /v1/trips/:id/pay
func (h *TripHandler) PayTrip(c *gin.Context) {
	var req payTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	trip, err := h.store.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	trip.PaymentMethod = domain.PaymentMethod(req.PaymentMethod)
	trip.PaymentStatus = domain.PaymentStatusPaid
	trip.UpdatedAt = time.Now()
	if err := h.store.Update(ctx, trip); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tripJSON(trip))
}

// rateTripRequest is the body of POST /v1/trips/:id/rate.
type rateTripRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// RateTrip handles POST /v1/trips/:id/rate
func (h *TripHandler) RateTrip(c *gin.Context) {
	var req rateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	trip, err := h.store.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !trip.CanBeRated() {
		respondError(c, ErrTripNotRatable)
		return
	}

	rating := req.Rating
	trip.PassengerRating = &rating
	trip.Comment = req.Comment
	trip.UpdatedAt = time.Now()
	if err := h.store.Update(ctx, trip); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tripJSON(trip))
}

// ListDrivers handles GET /v1/drivers/available
func (h *TripHandler) ListDrivers(c *gin.Context) {
	c.JSON(http.StatusOK, seedDrivers)
}

// selectDriverRequest is the body of POST /v1/trips/:id/driver.
type selectDriverRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// SelectDriver handles POST /v1/trips/:id/driver. The driver is assigned
// tentatively; after acceptDelay the backend flips the trip to accepted,
// which the client's negotiation session observes by polling.
func (h *TripHandler) SelectDriver(c *gin.Context) {
	var req selectDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if !knownDriver(req.DriverID) {
		respondError(c, ErrDriverUnknown)
		return
	}

	ctx := c.Request.Context()
	trip, err := h.store.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	trip.DriverID = req.DriverID
	trip.UpdatedAt = time.Now()
	if err := h.store.Update(ctx, trip); err != nil {
		respondError(c, err)
		return
	}

	h.scheduleAcceptance(trip.ID, req.DriverID)
	c.Status(http.StatusNoContent)
}

func (h *TripHandler) scheduleAcceptance(tripID, driverID string) {
	time.AfterFunc(h.acceptDelay, func() {
		ctx := context.Background()
		trip, err := h.store.GetByID(ctx, tripID)
		if err != nil {
			return
		}
		// The passenger may have cancelled or reselected meanwhile.
		if trip.Status != domain.TripStatusRequested || trip.DriverID != driverID {
			return
		}
		trip.Status = domain.TripStatusAccepted
		trip.UpdatedAt = time.Now()
		_ = h.store.Update(ctx, trip)
	})
}

func knownDriver(driverID string) bool {
	for _, d := range seedDrivers {
		if d.ID == driverID {
			return true
		}
	}
	return false
}
