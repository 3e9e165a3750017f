package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ridesync/internal/fault"
	"ridesync/internal/metrics"
	"ridesync/internal/repository"
	"ridesync/internal/storage"
)

// syncLoop fires a drain pass at a fixed interval. It has no external
// cancellation besides Close and is safe to re-enter: every pass works
// off the persisted queue state.
func (s *TripService) syncLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.SyncNow(context.Background()); err != nil {
				s.logger.Warn("drain pass failed", "error", err)
			}
		}
	}
}

// SyncNow runs one drain pass: queued operations execute strictly in
// FIFO order, one at a time. A head operation that exhausts its retries
// stays at the head and the pass stops — later entries are never
// attempted ahead of a still-failing earlier one.
func (s *TripService) SyncNow(ctx context.Context) error {
	if !s.Online() || s.queue.Len() == 0 {
		return nil
	}

	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.SyncPassDuration.Observe(time.Since(start).Seconds())
	}()

	for {
		op, ok := s.queue.Head()
		if !ok {
			return nil
		}

		err := s.executeWithRetry(ctx, op)
		if err == nil {
			if err := s.queue.RemoveHead(ctx); err != nil {
				return err
			}
			metrics.SyncOperationsTotal.WithLabelValues(string(op.Type), "success").Inc()
			s.recordSyncSuccess()
			continue
		}

		metrics.SyncOperationsTotal.WithLabelValues(string(op.Type), "failure").Inc()
		if fault.IsNetwork(err) {
			// Connectivity failures do not count toward dead-lettering;
			// the operation waits intact for the next online pass.
			s.online.Store(false)
			s.markStalled()
			s.logger.Warn("connectivity lost during drain, pass stopped",
				"type", string(op.Type), "op_id", op.ID, "error", err)
			return nil
		}

		op.HeadFailures++
		if op.HeadFailures >= s.cfg.MaxHeadFailures {
			// The operation has poisoned the queue head for too many
			// passes: archive it so the queue can move again.
			if archiveErr := s.archiveDeadLetter(ctx, op, err); archiveErr != nil {
				s.logger.Error("dead-letter archive failed", "op_id", op.ID, "error", archiveErr)
			}
			if err := s.queue.RemoveHead(ctx); err != nil {
				return err
			}
			metrics.DeadLettersTotal.Inc()
			s.markDeadLettered()
			s.logger.Warn("operation dead-lettered",
				"type", string(op.Type), "op_id", op.ID, "error", err)
		} else {
			if err := s.queue.UpdateHead(ctx, op); err != nil {
				return err
			}
			s.markStalled()
			s.logger.Warn("queue head still failing, pass stopped",
				"type", string(op.Type), "op_id", op.ID,
				"head_failures", op.HeadFailures, "error", err)
		}
		return nil
	}
}

// executeWithRetry applies bounded retry to one queued operation: up to
// MaxRetries attempts separated by RetryDelay.
func (s *TripService) executeWithRetry(ctx context.Context, op OfflineOperation) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.cfg.RetryDelay):
			case <-s.done:
				return lastErr
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = s.executeOperation(ctx, op)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// executeOperation replays one queued operation against the repository,
// using the operation's ID as the idempotency key.
func (s *TripService) executeOperation(ctx context.Context, op OfflineOperation) error {
	switch op.Type {
	case OpRequestTrip:
		var p RequestTripPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fault.Wrap(fault.KindRemote, "corrupt queued payload", err)
		}
		_, err := s.repo.RequestRide(ctx, repository.RideRequest{
			PassengerID:    s.passengerID,
			Origin:         p.Origin,
			Destination:    p.Destination,
			PaymentMethod:  p.PaymentMethod,
			IdempotencyKey: op.ID,
		})
		return err

	case OpCancelTrip:
		var p CancelTripPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fault.Wrap(fault.KindRemote, "corrupt queued payload", err)
		}
		_, err := s.repo.CancelTrip(ctx, p.TripID, op.ID)
		return err

	case OpPayTrip:
		var p PayTripPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fault.Wrap(fault.KindRemote, "corrupt queued payload", err)
		}
		_, err := s.repo.PayTrip(ctx, p.TripID, p.PaymentMethod, op.ID)
		return err

	case OpRateTrip:
		var p RateTripPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fault.Wrap(fault.KindRemote, "corrupt queued payload", err)
		}
		_, err := s.repo.RateTrip(ctx, p.TripID, p.Rating, p.Comment, op.ID)
		return err

	default:
		return fault.Newf(fault.KindRemote, "unknown queued operation type %q", op.Type)
	}
}

// deadLetter is an archived operation that repeatedly blocked the queue.
type deadLetter struct {
	Operation  OfflineOperation `json:"operation"`
	LastError  string           `json:"last_error"`
	ArchivedAt time.Time        `json:"archived_at"`
}

func (s *TripService) archiveDeadLetter(ctx context.Context, op OfflineOperation, cause error) error {
	var letters []deadLetter
	data, err := s.store.GetItem(ctx, storage.KeyDeadLetters)
	if err != nil {
		return err
	}
	if data != nil {
		if err := json.Unmarshal(data, &letters); err != nil {
			// A corrupt archive should not block the queue; start over.
			letters = nil
		}
	}

	letters = append(letters, deadLetter{
		Operation:  op,
		LastError:  cause.Error(),
		ArchivedAt: time.Now(),
	})

	encoded, err := json.Marshal(letters)
	if err != nil {
		return fmt.Errorf("encode dead letters: %w", err)
	}
	return s.store.SetItem(ctx, storage.KeyDeadLetters, encoded)
}

// DeadLetters returns the archived operations for support tooling.
func (s *TripService) DeadLetters(ctx context.Context) ([]OfflineOperation, error) {
	data, err := s.store.GetItem(ctx, storage.KeyDeadLetters)
	if err != nil || data == nil {
		return nil, err
	}
	var letters []deadLetter
	if err := json.Unmarshal(data, &letters); err != nil {
		return nil, fmt.Errorf("decode dead letters: %w", err)
	}
	ops := make([]OfflineOperation, 0, len(letters))
	for _, l := range letters {
		ops = append(ops, l.Operation)
	}
	return ops, nil
}

func (s *TripService) recordSyncSuccess() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.lastSyncAt = time.Now()
	s.stalled = false
}

func (s *TripService) markStalled() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.stalled = true
}

func (s *TripService) markDeadLettered() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.deadLettered++
}
