// Package negotiation implements the driver-negotiation protocol: after a
// passenger selects a driver, a bounded-time polling state machine waits
// for the remote decision.
package negotiation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ridesync/internal/domain"
	"ridesync/internal/metrics"
)

// State is the session state. WAITING is the only non-terminal state.
type State string

const (
	StateWaiting   State = "WAITING"
	StateConfirmed State = "CONFIRMED"
	StateRejected  State = "REJECTED"
	StateTimedOut  State = "TIMED_OUT"
)

// allowedTransitions configures the session's state graph. WAITING is
// entered on driver selection; the three terminal states admit nothing.
var allowedTransitions = map[State][]State{
	StateWaiting:   {StateConfirmed, StateRejected, StateTimedOut},
	StateConfirmed: {},
	StateRejected:  {},
	StateTimedOut:  {},
}

func canTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TripFetcher is the slice of the repository the session needs.
type TripFetcher interface {
	GetTripByID(ctx context.Context, id string) (*domain.Trip, error)
}

// Result is the terminal outcome of a session. Trip carries the last
// observed trip state when one was available.
type Result struct {
	State State
	Trip  *domain.Trip
}

// Config holds the session's timing parameters.
type Config struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// Session is one driver negotiation: it polls the trip until the driver
// confirms, the trip is released back to selection, or the timeout
// fires. Exactly one of {poll-detected signal, timeout, manual cancel}
// ends a session, and every exit path stops both the poll ticker and the
// timeout timer.
type Session struct {
	tripID   string
	driverID string
	fetcher  TripFetcher
	cfg      Config
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	startedAt time.Time

	done     chan Result
	stop     chan struct{}
	stopOnce sync.Once
}

// Start creates a session in WAITING and begins polling.
func Start(fetcher TripFetcher, tripID, driverID string, cfg Config, logger *slog.Logger) *Session {
	s := &Session{
		tripID:    tripID,
		driverID:  driverID,
		fetcher:   fetcher,
		cfg:       cfg,
		logger:    logger,
		state:     StateWaiting,
		startedAt: time.Now(),
		done:      make(chan Result, 1),
		stop:      make(chan struct{}),
	}
	go s.run()
	return s
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TripID returns the trip under negotiation.
func (s *Session) TripID() string { return s.tripID }

// DriverID returns the selected driver.
func (s *Session) DriverID() string { return s.driverID }

// Done delivers the terminal result. The channel is closed without a
// value when the session was cancelled manually: cancellation carries no
// trip-status judgement.
func (s *Session) Done() <-chan Result { return s.done }

// Cancel ends the session manually. Safe to call more than once and
// after the session has already terminated.
func (s *Session) Cancel() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// run is the session's single goroutine. Both the poll ticker and the
// timeout timer are stopped on every exit path by the deferred calls.
func (s *Session) run() {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			if s.State() == StateWaiting {
				metrics.NegotiationOutcomes.WithLabelValues("cancelled").Inc()
				s.logger.Info("negotiation cancelled", "trip_id", s.tripID)
				close(s.done)
			}
			return

		case <-timer.C:
			if s.transition(StateTimedOut) {
				metrics.NegotiationOutcomes.WithLabelValues("timed_out").Inc()
				s.logger.Info("negotiation timed out",
					"trip_id", s.tripID, "driver_id", s.driverID)
				s.done <- Result{State: StateTimedOut}
			}
			return

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PollInterval)
			trip, err := s.fetcher.GetTripByID(ctx, s.tripID)
			cancel()
			if err != nil {
				// Transient poll failures keep the session alive; the
				// timeout bounds the total wait either way.
				s.logger.Debug("negotiation poll failed", "trip_id", s.tripID, "error", err)
				continue
			}

			if trip.Status == domain.TripStatusCancelled {
				// The trip disappeared under the session (cancelled from
				// another surface). Exit without a terminal judgement,
				// like a manual cancel.
				metrics.NegotiationOutcomes.WithLabelValues("cancelled").Inc()
				s.logger.Info("trip cancelled during negotiation", "trip_id", s.tripID)
				close(s.done)
				return
			}

			switch interpret(trip, s.driverID) {
			case StateConfirmed:
				if s.transition(StateConfirmed) {
					metrics.NegotiationOutcomes.WithLabelValues("confirmed").Inc()
					s.logger.Info("driver confirmed",
						"trip_id", s.tripID, "driver_id", s.driverID)
					s.done <- Result{State: StateConfirmed, Trip: trip}
				}
				return
			case StateRejected:
				if s.transition(StateRejected) {
					metrics.NegotiationOutcomes.WithLabelValues("rejected").Inc()
					s.logger.Info("driver rejected, back to selection",
						"trip_id", s.tripID, "driver_id", s.driverID)
					s.done <- Result{State: StateRejected, Trip: trip}
				}
				return
			}
		}
	}
}

// interpret maps an observed trip state onto a session signal. An
// accepted (or later) status confirms the driver; a requested trip with
// no driver assigned means the proposal was released back to selection.
// StateWaiting means no terminal signal yet.
func interpret(trip *domain.Trip, driverID string) State {
	switch trip.Status {
	case domain.TripStatusAccepted, domain.TripStatusArriving, domain.TripStatusInProgress:
		return StateConfirmed
	case domain.TripStatusRequested:
		if trip.DriverID == "" {
			return StateRejected
		}
	}
	return StateWaiting
}

func (s *Session) transition(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.state, to) {
		return false
	}
	s.state = to
	return true
}
