package service

import (
	"context"
	"testing"

	"ridesync/internal/domain"
	"ridesync/internal/storage"
)

func TestOfflineQueue_FIFO(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	queue, err := NewOfflineQueue(ctx, storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := queue.Enqueue(ctx, OpRequestTrip, RequestTripPayload{
		Origin:        testOrigin,
		Destination:   testDestination,
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := queue.Enqueue(ctx, OpCancelTrip, CancelTripPayload{TripID: "trip-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	head, ok := queue.Head()
	if !ok || head.ID != first {
		t.Fatalf("expected %s at the head, got %+v", first, head)
	}
	if err := queue.RemoveHead(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	head, ok = queue.Head()
	if !ok || head.ID != second {
		t.Errorf("expected %s at the head after removal, got %+v", second, head)
	}
	if queue.Len() != 1 {
		t.Errorf("expected 1 remaining operation, got %d", queue.Len())
	}
}

func TestOfflineQueue_LoadsPersistedState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()

	queue, err := NewOfflineQueue(ctx, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opID, err := queue.Enqueue(ctx, OpRateTrip, RateTripPayload{TripID: "trip-1", Rating: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded, err := NewOfflineQueue(ctx, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	head, ok := reloaded.Head()
	if !ok || head.ID != opID {
		t.Errorf("expected persisted operation %s, got %+v", opID, head)
	}
}

func TestOfflineQueue_UpdateHeadRejectsStaleOperation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	queue, err := NewOfflineQueue(ctx, storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := queue.Enqueue(ctx, OpCancelTrip, CancelTripPayload{TripID: "trip-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale := OfflineOperation{ID: "not-the-head", Type: OpCancelTrip, HeadFailures: 1}
	if err := queue.UpdateHead(ctx, stale); err == nil {
		t.Error("updating with an operation that is not at the head must fail")
	}
}

func TestOfflineQueue_RemoveHeadOnEmptyQueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	queue, err := NewOfflineQueue(ctx, storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := queue.RemoveHead(ctx); err != nil {
		t.Errorf("removing from an empty queue must be a no-op, got %v", err)
	}
}
