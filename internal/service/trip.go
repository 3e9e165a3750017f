package service

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ridesync/internal/config"
	"ridesync/internal/domain"
	"ridesync/internal/fault"
	"ridesync/internal/repository"
	"ridesync/internal/storage"
)

// TripService orchestrates the trip lifecycle for one passenger session:
// it validates input, estimates fares, owns the offline queue and the
// trip cache, and runs the background sync loop. It is created at session
// start and torn down with Close at logout; there is no package-level
// state.
type TripService struct {
	repo        repository.TripRepository
	store       storage.KVStore
	queue       *OfflineQueue
	cache       *TripCache
	cfg         config.EngineConfig
	logger      *slog.Logger
	passengerID string

	online     atomic.Bool
	refreshing atomic.Bool
	closed     atomic.Bool

	// drainMu serializes drain passes: queued operations execute strictly
	// one at a time, never concurrently.
	drainMu sync.Mutex

	// lifeMu orders goroutine spawns against Close, so wg.Add never races
	// wg.Wait.
	lifeMu sync.Mutex

	statusMu     sync.Mutex
	lastSyncAt   time.Time
	stalled      bool
	deadLettered int

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewTripService constructs the orchestrator, loads any persisted queue
// state, and starts the background sync loop.
func NewTripService(
	ctx context.Context,
	repo repository.TripRepository,
	store storage.KVStore,
	cfg config.EngineConfig,
	passengerID string,
	logger *slog.Logger,
) (*TripService, error) {
	queue, err := NewOfflineQueue(ctx, store)
	if err != nil {
		return nil, err
	}

	s := &TripService{
		repo:        repo,
		store:       store,
		queue:       queue,
		cache:       NewTripCache(store),
		cfg:         cfg,
		logger:      logger,
		passengerID: passengerID,
		done:        make(chan struct{}),
	}
	s.online.Store(true)

	s.wg.Add(1)
	go s.syncLoop()

	return s, nil
}

// Close stops the background sync loop and waits for in-flight work.
func (s *TripService) Close() {
	s.closeOnce.Do(func() {
		s.lifeMu.Lock()
		s.closed.Store(true)
		close(s.done)
		s.lifeMu.Unlock()
	})
	s.wg.Wait()
}

// spawn starts fn as a tracked goroutine, unless the service is already
// closed. It reports whether the goroutine started.
func (s *TripService) spawn(fn func()) bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
	return true
}

// SetOnline records the device's connectivity as reported by the
// platform. Going online kicks an immediate drain pass.
func (s *TripService) SetOnline(online bool) {
	wasOnline := s.online.Swap(online)
	if online && !wasOnline {
		s.spawn(func() {
			s.SyncNow(context.Background())
		})
	}
}

// Online reports the engine's current connectivity assumption.
func (s *TripService) Online() bool { return s.online.Load() }

// RequestTrip validates the ride input, estimates fare and duration, and
// either applies the request remotely or defers it into the offline
// queue. Invalid input fails before any I/O.
func (s *TripService) RequestTrip(ctx context.Context, origin, destination domain.Location, method domain.PaymentMethod) (Outcome, error) {
	if s.closed.Load() {
		return Outcome{}, fault.From(fault.KindValidation, ErrServiceClosed)
	}
	if msgs := validateRideInput(origin, destination, method); len(msgs) > 0 {
		return Outcome{}, fault.New(fault.KindValidation, strings.Join(msgs, "; "))
	}

	distance := haversineKm(origin, destination)
	now := time.Now()
	trip := &domain.Trip{
		ID:            uuid.New().String(),
		PassengerID:   s.passengerID,
		Origin:        origin,
		Destination:   destination,
		Status:        domain.TripStatusRequested,
		Fare:          s.estimateFare(distance),
		Distance:      distance,
		Duration:      s.estimateDurationMin(distance),
		PaymentMethod: method,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if result := trip.Validate(); !result.IsValid {
		return Outcome{}, fault.New(fault.KindValidation, strings.Join(result.Errors, "; "))
	}

	payload := RequestTripPayload{Origin: origin, Destination: destination, PaymentMethod: method}
	if !s.Online() {
		return s.enqueueDeferred(ctx, OpRequestTrip, payload)
	}

	created, err := s.repo.RequestRide(ctx, repository.RideRequest{
		PassengerID:    s.passengerID,
		Origin:         origin,
		Destination:    destination,
		PaymentMethod:  method,
		IdempotencyKey: trip.ID,
	})
	if err != nil {
		if fault.IsNetwork(err) {
			s.online.Store(false)
			return s.enqueueDeferred(ctx, OpRequestTrip, payload)
		}
		return Outcome{}, err
	}
	return applied(created), nil
}

// CancelTrip cancels a trip after asserting it is still cancellable.
func (s *TripService) CancelTrip(ctx context.Context, tripID string) (Outcome, error) {
	if strings.TrimSpace(tripID) == "" {
		return Outcome{}, fault.From(fault.KindValidation, ErrTripIDRequired)
	}

	payload := CancelTripPayload{TripID: tripID}
	if !s.Online() {
		// Offline the predicate is asserted best-effort against the
		// cached snapshot; an unknown trip is queued optimistically.
		if trip, ok := s.cache.Lookup(ctx, tripID); ok && !trip.CanBeCancelled() {
			return Outcome{}, fault.From(fault.KindState, ErrTripCannotBeCancelled)
		}
		return s.enqueueDeferred(ctx, OpCancelTrip, payload)
	}

	trip, err := s.repo.GetTripByID(ctx, tripID)
	if err != nil {
		if fault.IsNetwork(err) {
			s.online.Store(false)
			return s.enqueueDeferred(ctx, OpCancelTrip, payload)
		}
		return Outcome{}, err
	}
	if !trip.CanBeCancelled() {
		return Outcome{}, fault.From(fault.KindState, ErrTripCannotBeCancelled)
	}

	updated, err := s.repo.CancelTrip(ctx, tripID, uuid.New().String())
	if err != nil {
		if fault.IsNetwork(err) {
			s.online.Store(false)
			return s.enqueueDeferred(ctx, OpCancelTrip, payload)
		}
		return Outcome{}, err
	}
	return applied(updated), nil
}

// PayTrip settles a trip with the given payment method.
func (s *TripService) PayTrip(ctx context.Context, tripID string, method domain.PaymentMethod) (Outcome, error) {
	if strings.TrimSpace(tripID) == "" {
		return Outcome{}, fault.From(fault.KindValidation, ErrTripIDRequired)
	}
	if strings.TrimSpace(string(method)) == "" {
		return Outcome{}, fault.From(fault.KindValidation, ErrPaymentMethodRequired)
	}

	payload := PayTripPayload{TripID: tripID, PaymentMethod: method}
	if !s.Online() {
		return s.enqueueDeferred(ctx, OpPayTrip, payload)
	}

	updated, err := s.repo.PayTrip(ctx, tripID, method, uuid.New().String())
	if err != nil {
		if fault.IsNetwork(err) {
			s.online.Store(false)
			return s.enqueueDeferred(ctx, OpPayTrip, payload)
		}
		return Outcome{}, err
	}
	return applied(updated), nil
}

// RateTrip records the passenger's rating for a completed trip.
func (s *TripService) RateTrip(ctx context.Context, tripID string, rating int, comment string) (Outcome, error) {
	if strings.TrimSpace(tripID) == "" {
		return Outcome{}, fault.From(fault.KindValidation, ErrTripIDRequired)
	}
	if rating < 1 || rating > 5 {
		return Outcome{}, fault.From(fault.KindValidation, ErrRatingOutOfRange)
	}

	payload := RateTripPayload{TripID: tripID, Rating: rating, Comment: comment}
	if !s.Online() {
		if trip, ok := s.cache.Lookup(ctx, tripID); ok && !trip.CanBeRated() {
			return Outcome{}, fault.From(fault.KindState, ErrTripCannotBeRated)
		}
		return s.enqueueDeferred(ctx, OpRateTrip, payload)
	}

	trip, err := s.repo.GetTripByID(ctx, tripID)
	if err != nil {
		if fault.IsNetwork(err) {
			s.online.Store(false)
			return s.enqueueDeferred(ctx, OpRateTrip, payload)
		}
		return Outcome{}, err
	}
	if !trip.CanBeRated() {
		return Outcome{}, fault.From(fault.KindState, ErrTripCannotBeRated)
	}

	updated, err := s.repo.RateTrip(ctx, tripID, rating, comment, uuid.New().String())
	if err != nil {
		if fault.IsNetwork(err) {
			s.online.Store(false)
			return s.enqueueDeferred(ctx, OpRateTrip, payload)
		}
		return Outcome{}, err
	}
	return applied(updated), nil
}

// GetUserTripsWithCache reads the trip list through the cache. With a
// snapshot present it returns immediately and refreshes in the
// background; the next read observes fresh data.
func (s *TripService) GetUserTripsWithCache(ctx context.Context) (TripsResult, error) {
	cached, ok := s.cache.Get(ctx)

	if ok && s.Online() {
		s.scheduleRefresh()
		return TripsResult{Trips: cached, FromCache: true}, nil
	}
	if !s.Online() {
		if ok {
			return TripsResult{Trips: cached, FromCache: true}, nil
		}
		return TripsResult{}, fault.From(fault.KindNetwork, ErrNoLocalData)
	}

	// No snapshot: direct fetch, then populate the cache.
	trips, err := s.repo.GetUserTrips(ctx, s.passengerID)
	if err != nil {
		if fault.IsNetwork(err) {
			s.online.Store(false)
		}
		return TripsResult{}, err
	}
	if err := s.cache.Set(ctx, trips); err != nil {
		s.logger.Warn("trip cache write failed", "error", err)
	}
	return TripsResult{Trips: trips, FromCache: false}, nil
}

// GetActiveTrip returns the passenger's current non-terminal trip, or nil.
func (s *TripService) GetActiveTrip(ctx context.Context) (*domain.Trip, error) {
	return s.repo.GetActiveTrip(ctx, s.passengerID)
}

// AvailableDrivers lists driver candidates for selection.
func (s *TripService) AvailableDrivers(ctx context.Context) ([]*domain.DriverCandidate, error) {
	return s.repo.GetAvailableDrivers(ctx)
}

// SelectDriver proposes a driver for a trip. The asynchronous decision is
// observed through a negotiation session polling GetTripByID.
func (s *TripService) SelectDriver(ctx context.Context, tripID, driverID string) error {
	if strings.TrimSpace(tripID) == "" {
		return fault.From(fault.KindValidation, ErrTripIDRequired)
	}
	if strings.TrimSpace(driverID) == "" {
		return fault.From(fault.KindValidation, ErrDriverIDRequired)
	}
	return s.repo.SelectDriver(ctx, tripID, driverID)
}

// SyncStatus returns a snapshot of the engine's sync state.
func (s *TripService) SyncStatus() SyncStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return SyncStatus{
		Online:       s.Online(),
		QueueDepth:   s.queue.Len(),
		LastSyncAt:   s.lastSyncAt,
		Stalled:      s.stalled,
		DeadLettered: s.deadLettered,
	}
}

// enqueueDeferred enqueues the operation and reports it as deferred. The call
// never blocks or fails because of connectivity.
func (s *TripService) enqueueDeferred(ctx context.Context, opType OperationType, payload any) (Outcome, error) {
	opID, err := s.queue.Enqueue(ctx, opType, payload)
	if err != nil {
		// Local persistence failing is not a connectivity problem.
		return Outcome{}, fault.Wrap(fault.KindRemote, "no se pudo guardar la operación pendiente", err)
	}
	s.logger.Info("operation deferred to offline queue", "type", string(opType), "op_id", opID)
	return deferred(opID), nil
}

func (s *TripService) scheduleRefresh() {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	started := s.spawn(func() {
		defer s.refreshing.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		defer cancel()

		trips, err := s.repo.GetUserTrips(ctx, s.passengerID)
		if err != nil {
			if fault.IsNetwork(err) {
				s.online.Store(false)
			}
			s.logger.Debug("background trip refresh failed", "error", err)
			return
		}
		if err := s.cache.Set(ctx, trips); err != nil {
			s.logger.Warn("trip cache write failed", "error", err)
		}
	})
	if !started {
		s.refreshing.Store(false)
	}
}

func validateRideInput(origin, destination domain.Location, method domain.PaymentMethod) []string {
	var msgs []string
	originAddr := strings.TrimSpace(origin.Address)
	destAddr := strings.TrimSpace(destination.Address)

	if originAddr == "" {
		msgs = append(msgs, domain.MsgOriginRequired)
	}
	if destAddr == "" {
		msgs = append(msgs, domain.MsgDestinationRequired)
	}
	if originAddr != "" && strings.EqualFold(originAddr, destAddr) {
		msgs = append(msgs, domain.MsgSameAddress)
	}
	if strings.TrimSpace(string(method)) == "" {
		msgs = append(msgs, ErrPaymentMethodRequired.Error())
	}
	return msgs
}

func (s *TripService) estimateFare(distanceKm float64) float64 {
	return s.cfg.BaseFare + s.cfg.PerKmRate*distanceKm
}

func (s *TripService) estimateDurationMin(distanceKm float64) float64 {
	if s.cfg.AverageSpeedKmh <= 0 {
		return 0
	}
	return distanceKm / s.cfg.AverageSpeedKmh * 60
}

// haversineKm computes the great-circle distance between the two
// locations in kilometers.
func haversineKm(a, b domain.Location) float64 {
	const earthRadiusKm = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
