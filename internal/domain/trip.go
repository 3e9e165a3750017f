package domain

import (
	"fmt"
	"strings"
	"time"
)

// TripStatus represents the current status of a trip.
// These are the canonical tokens; everything read off the wire or out of
// local storage goes through ParseTripStatus first.
type TripStatus string

const (
	TripStatusRequested  TripStatus = "requested"
	TripStatusAccepted   TripStatus = "accepted"
	TripStatusArriving   TripStatus = "arriving"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

// statusAliases maps every status token observed across subsystems to the
// canonical enum: the backend reports localized Spanish tokens, and older
// deployments reported uppercase English ones.
var statusAliases = map[string]TripStatus{
	"requested":   TripStatusRequested,
	"solicitado":  TripStatusRequested,
	"pendiente":   TripStatusRequested,
	"accepted":    TripStatusAccepted,
	"aceptado":    TripStatusAccepted,
	"asignado":    TripStatusAccepted,
	"arriving":    TripStatusArriving,
	"en_camino":   TripStatusArriving,
	"in_progress": TripStatusInProgress,
	"en_curso":    TripStatusInProgress,
	"completed":   TripStatusCompleted,
	"completado":  TripStatusCompleted,
	"cancelled":   TripStatusCancelled,
	"canceled":    TripStatusCancelled,
	"cancelado":   TripStatusCancelled,
}

// ParseTripStatus translates a remote or stored status token into the
// canonical enum. Unknown tokens are an error, never a silent guess.
func ParseTripStatus(token string) (TripStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(token))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if status, ok := statusAliases[normalized]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown trip status token: %q", token)
}

// IsValid reports whether the status is one of the canonical values.
func (s TripStatus) IsValid() bool {
	switch s {
	case TripStatusRequested, TripStatusAccepted, TripStatusArriving,
		TripStatusInProgress, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// PaymentMethod represents the payment method for a trip.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// PaymentStatus represents the current status of a trip's payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Location is a named point on the map.
type Location struct {
	Address string
	Lat     float64
	Lng     float64
}

// Trip represents one ride's lifecycle from request to completion or
// cancellation. Instances are only mutated through remote confirmation;
// the client never flips a status on its own.
type Trip struct {
	ID              string
	PassengerID     string
	DriverID        string
	Origin          Location
	Destination     Location
	Status          TripStatus
	Fare            float64
	Distance        float64 // kilometers
	Duration        float64 // minutes
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	PassengerRating *int // 1..5, nil until the passenger rates
	DriverRating    *int
	Comment         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validation messages are user-facing and therefore localized, matching the
// rest of the product surface.
const (
	MsgOriginRequired      = "la dirección de origen es obligatoria"
	MsgDestinationRequired = "la dirección de destino es obligatoria"
	MsgSameAddress         = "el origen y el destino no pueden ser iguales"
	MsgNegativeFare        = "la tarifa no puede ser negativa"
	MsgNegativeDistance    = "la distancia no puede ser negativa"
	MsgNegativeDuration    = "la duración no puede ser negativa"
	MsgRatingOutOfRange    = "la calificación debe estar entre 1 y 5"
)

// ValidationResult is the outcome of validating a trip entity.
type ValidationResult struct {
	IsValid bool
	Errors  []string
}

// Validate checks every trip invariant and collects all violations rather
// than stopping at the first one.
func (t *Trip) Validate() ValidationResult {
	var errs []string

	if strings.TrimSpace(t.Origin.Address) == "" {
		errs = append(errs, MsgOriginRequired)
	}
	if strings.TrimSpace(t.Destination.Address) == "" {
		errs = append(errs, MsgDestinationRequired)
	}
	if strings.TrimSpace(t.Origin.Address) != "" &&
		strings.EqualFold(strings.TrimSpace(t.Origin.Address), strings.TrimSpace(t.Destination.Address)) {
		errs = append(errs, MsgSameAddress)
	}
	if !t.Status.IsValid() {
		errs = append(errs, fmt.Sprintf("estado de viaje no reconocido: %q", t.Status))
	}
	if t.Fare < 0 {
		errs = append(errs, MsgNegativeFare)
	}
	if t.Distance < 0 {
		errs = append(errs, MsgNegativeDistance)
	}
	if t.Duration < 0 {
		errs = append(errs, MsgNegativeDuration)
	}
	if t.PassengerRating != nil && (*t.PassengerRating < 1 || *t.PassengerRating > 5) {
		errs = append(errs, MsgRatingOutOfRange)
	}
	if t.DriverRating != nil && (*t.DriverRating < 1 || *t.DriverRating > 5) {
		errs = append(errs, MsgRatingOutOfRange)
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// CanBeCancelled reports whether the passenger may still cancel the trip.
func (t *Trip) CanBeCancelled() bool {
	switch t.Status {
	case TripStatusRequested, TripStatusAccepted, TripStatusArriving:
		return true
	}
	return false
}

// CanBeRated reports whether the trip is completed and not yet rated by
// the passenger.
func (t *Trip) CanBeRated() bool {
	return t.Status == TripStatusCompleted && t.PassengerRating == nil
}

// CanBeCompleted reports whether the trip is currently in progress.
func (t *Trip) CanBeCompleted() bool {
	return t.Status == TripStatusInProgress
}

// IsActive reports whether the trip still occupies the passenger: any
// non-terminal status counts.
func (t *Trip) IsActive() bool {
	switch t.Status {
	case TripStatusRequested, TripStatusAccepted, TripStatusArriving, TripStatusInProgress:
		return true
	}
	return false
}
