package negotiation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ridesync/internal/domain"
	"ridesync/internal/fault"
)

// mockFetcher serves a scripted sequence of trip snapshots, repeating the
// last one once the script runs out.
type mockFetcher struct {
	mu        sync.Mutex
	snapshots []*domain.Trip
	errs      []error
	CallCount int32
}

func (m *mockFetcher) GetTripByID(ctx context.Context, id string) (*domain.Trip, error) {
	atomic.AddInt32(&m.CallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(m.snapshots) == 0 {
		return nil, fault.New(fault.KindRemote, "viaje no encontrado")
	}
	trip := m.snapshots[0]
	if len(m.snapshots) > 1 {
		m.snapshots = m.snapshots[1:]
	}
	return trip, nil
}

func waiting(driverID string) *domain.Trip {
	return &domain.Trip{ID: "trip-1", Status: domain.TripStatusRequested, DriverID: driverID}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig() Config {
	return Config{PollInterval: 5 * time.Millisecond, Timeout: time.Second}
}

func TestSession_ConfirmedAfterPolling(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{snapshots: []*domain.Trip{
		waiting("driver-1"),
		waiting("driver-1"),
		{ID: "trip-1", Status: domain.TripStatusAccepted, DriverID: "driver-1"},
	}}

	session := Start(fetcher, "trip-1", "driver-1", fastConfig(), testLogger())

	select {
	case result, ok := <-session.Done():
		if !ok {
			t.Fatal("expected a terminal result, channel was closed")
		}
		if result.State != StateConfirmed {
			t.Errorf("expected CONFIRMED, got %s", result.State)
		}
		if result.Trip == nil || result.Trip.Status != domain.TripStatusAccepted {
			t.Errorf("result must carry the confirming snapshot, got %+v", result.Trip)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate")
	}

	if got := atomic.LoadInt32(&fetcher.CallCount); got < 3 {
		t.Errorf("expected at least 3 polls, got %d", got)
	}
	if session.State() != StateConfirmed {
		t.Errorf("session state = %s, want CONFIRMED", session.State())
	}
}

func TestSession_RejectedWhenTripReleased(t *testing.T) {
	t.Parallel()

	// A requested trip with no driver assigned means the proposal was
	// released back to selection.
	fetcher := &mockFetcher{snapshots: []*domain.Trip{
		waiting("driver-1"),
		waiting(""),
	}}

	session := Start(fetcher, "trip-1", "driver-1", fastConfig(), testLogger())

	select {
	case result, ok := <-session.Done():
		if !ok {
			t.Fatal("expected a terminal result, channel was closed")
		}
		if result.State != StateRejected {
			t.Errorf("expected REJECTED, got %s", result.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate")
	}
}

func TestSession_TimesOut(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{snapshots: []*domain.Trip{waiting("driver-1")}}
	cfg := Config{PollInterval: 5 * time.Millisecond, Timeout: 40 * time.Millisecond}

	session := Start(fetcher, "trip-1", "driver-1", cfg, testLogger())

	select {
	case result, ok := <-session.Done():
		if !ok {
			t.Fatal("expected a terminal result, channel was closed")
		}
		if result.State != StateTimedOut {
			t.Errorf("expected TIMED_OUT, got %s", result.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate")
	}
	if session.State() != StateTimedOut {
		t.Errorf("session state = %s, want TIMED_OUT", session.State())
	}
}

func TestSession_ManualCancelClosesDone(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{snapshots: []*domain.Trip{waiting("driver-1")}}
	session := Start(fetcher, "trip-1", "driver-1", fastConfig(), testLogger())

	session.Cancel()
	// A second cancel must be safe.
	session.Cancel()

	select {
	case _, ok := <-session.Done():
		if ok {
			t.Error("manual cancellation must close the channel without a result")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate")
	}
	if session.State() != StateWaiting {
		t.Errorf("cancellation carries no judgement, state = %s", session.State())
	}
}

func TestSession_SurvivesPollErrors(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{
		errs: []error{
			fault.New(fault.KindNetwork, "timeout"),
			fault.New(fault.KindNetwork, "timeout"),
		},
		snapshots: []*domain.Trip{
			{ID: "trip-1", Status: domain.TripStatusAccepted, DriverID: "driver-1"},
		},
	}

	session := Start(fetcher, "trip-1", "driver-1", fastConfig(), testLogger())

	select {
	case result, ok := <-session.Done():
		if !ok {
			t.Fatal("expected a terminal result, channel was closed")
		}
		if result.State != StateConfirmed {
			t.Errorf("transient poll failures must not end the session, got %s", result.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate")
	}
}

func TestSession_RemoteCancellationEndsSession(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{snapshots: []*domain.Trip{
		waiting("driver-1"),
		{ID: "trip-1", Status: domain.TripStatusCancelled},
	}}

	session := Start(fetcher, "trip-1", "driver-1", fastConfig(), testLogger())

	select {
	case _, ok := <-session.Done():
		if ok {
			t.Error("a trip cancelled elsewhere must end the session without a judgement")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate")
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	terminal := []State{StateConfirmed, StateRejected, StateTimedOut}
	for _, to := range terminal {
		if !canTransition(StateWaiting, to) {
			t.Errorf("WAITING must admit %s", to)
		}
	}
	for _, from := range terminal {
		for _, to := range append(terminal, StateWaiting) {
			if canTransition(from, to) {
				t.Errorf("terminal state %s must admit nothing, admitted %s", from, to)
			}
		}
	}
}
