package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ridesync/internal/domain"
	"ridesync/internal/metrics"
	"ridesync/internal/storage"
)

// OperationType identifies a deferrable mutating operation.
type OperationType string

const (
	OpRequestTrip OperationType = "requestTrip"
	OpCancelTrip  OperationType = "cancelTrip"
	OpPayTrip     OperationType = "payTrip"
	OpRateTrip    OperationType = "rateTrip"
)

// OfflineOperation is one not-yet-synchronized mutating operation. The ID
// doubles as the idempotency key sent when the operation is replayed.
type OfflineOperation struct {
	ID           string          `json:"id"`
	Type         OperationType   `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	HeadFailures int             `json:"head_failures,omitempty"`
}

// RequestTripPayload is the queued form of a ride request.
type RequestTripPayload struct {
	Origin        domain.Location      `json:"origin"`
	Destination   domain.Location      `json:"destination"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

// CancelTripPayload is the queued form of a cancellation.
type CancelTripPayload struct {
	TripID string `json:"trip_id"`
}

// PayTripPayload is the queued form of a payment.
type PayTripPayload struct {
	TripID        string               `json:"trip_id"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

// RateTripPayload is the queued form of a rating.
type RateTripPayload struct {
	TripID  string `json:"trip_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// OfflineQueue is the ordered, persisted list of pending operations.
// Every mutation is written through to the local store so the queue
// survives process restarts.
type OfflineQueue struct {
	mu    sync.Mutex
	store storage.KVStore
	ops   []OfflineOperation
}

// NewOfflineQueue creates a queue backed by the given store, loading any
// operations persisted by a previous session.
func NewOfflineQueue(ctx context.Context, store storage.KVStore) (*OfflineQueue, error) {
	q := &OfflineQueue{store: store}

	data, err := store.GetItem(ctx, storage.KeyOfflineQueue)
	if err != nil {
		return nil, fmt.Errorf("load offline queue: %w", err)
	}
	if data != nil {
		if err := json.Unmarshal(data, &q.ops); err != nil {
			return nil, fmt.Errorf("decode offline queue: %w", err)
		}
	}
	metrics.QueueDepth.Set(float64(len(q.ops)))
	return q, nil
}

// Enqueue appends an operation to the tail and persists the queue.
// It returns the new operation's ID.
func (q *OfflineQueue) Enqueue(ctx context.Context, opType OperationType, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	op := OfflineOperation{
		ID:         uuid.New().String(),
		Type:       opType,
		Payload:    data,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, op)
	if err := q.persistLocked(ctx); err != nil {
		q.ops = q.ops[:len(q.ops)-1]
		return "", err
	}
	metrics.QueueDepth.Set(float64(len(q.ops)))
	return op.ID, nil
}

// Head returns the oldest operation without removing it.
func (q *OfflineQueue) Head() (OfflineOperation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 {
		return OfflineOperation{}, false
	}
	return q.ops[0], true
}

// RemoveHead removes the oldest operation and persists the queue.
func (q *OfflineQueue) RemoveHead(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 {
		return nil
	}
	q.ops = q.ops[1:]
	if err := q.persistLocked(ctx); err != nil {
		return err
	}
	metrics.QueueDepth.Set(float64(len(q.ops)))
	return nil
}

// UpdateHead overwrites the head entry, keeping its queue position. Used
// to record head failures across drain passes.
func (q *OfflineQueue) UpdateHead(ctx context.Context, op OfflineOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 || q.ops[0].ID != op.ID {
		return fmt.Errorf("operation %s is no longer at the queue head", op.ID)
	}
	q.ops[0] = op
	return q.persistLocked(ctx)
}

// Len returns the number of queued operations.
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Snapshot returns a copy of the queued operations in FIFO order.
func (q *OfflineQueue) Snapshot() []OfflineOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]OfflineOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

func (q *OfflineQueue) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(q.ops)
	if err != nil {
		return fmt.Errorf("encode offline queue: %w", err)
	}
	if err := q.store.SetItem(ctx, storage.KeyOfflineQueue, data); err != nil {
		return fmt.Errorf("persist offline queue: %w", err)
	}
	return nil
}
