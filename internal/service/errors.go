package service

import "errors"

// User-facing errors are localized, matching the rest of the product
// surface. Callers match on the sentinel, not the text.
var (
	// ErrTripIDRequired is returned when a trip ID is empty.
	ErrTripIDRequired = errors.New("el identificador del viaje es obligatorio")

	// ErrPaymentMethodRequired is returned when no payment method is given.
	ErrPaymentMethodRequired = errors.New("el método de pago es obligatorio")

	// ErrDriverIDRequired is returned when a driver ID is empty.
	ErrDriverIDRequired = errors.New("el identificador del conductor es obligatorio")

	// ErrRatingOutOfRange is returned when a rating is outside [1,5].
	ErrRatingOutOfRange = errors.New("la calificación debe estar entre 1 y 5")

	// ErrTripCannotBeCancelled is returned when the trip's current status
	// no longer admits cancellation.
	ErrTripCannotBeCancelled = errors.New("el viaje ya no puede cancelarse")

	// ErrTripCannotBeRated is returned when the trip is not completed or
	// was already rated.
	ErrTripCannotBeRated = errors.New("solo puede calificarse un viaje completado y sin calificación previa")

	// ErrNoLocalData is returned when the device is offline and no cached
	// trip list exists.
	ErrNoLocalData = errors.New("sin conexión y sin datos locales disponibles")

	// ErrServiceClosed is returned when an operation is attempted after
	// Close.
	ErrServiceClosed = errors.New("trip service is closed")
)
