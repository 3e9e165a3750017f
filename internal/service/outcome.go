package service

import (
	"time"

	"ridesync/internal/domain"
)

// Outcome is the tagged result of a mutating trip operation. Exactly one
// of the two shapes applies: the operation was applied remotely and Trip
// holds the confirmed state, or it was deferred into the offline queue
// and QueuedOpID identifies the pending entry. Real failures arrive as a
// classified error alongside a zero Outcome.
type Outcome struct {
	Trip       *domain.Trip
	QueuedOpID string
}

// Deferred reports whether the operation was queued for later sync
// instead of being applied immediately.
func (o Outcome) Deferred() bool { return o.QueuedOpID != "" }

func applied(trip *domain.Trip) Outcome { return Outcome{Trip: trip} }

func deferred(opID string) Outcome { return Outcome{QueuedOpID: opID} }

// TripsResult is the result of a cached trip-list read.
type TripsResult struct {
	Trips     []*domain.Trip
	FromCache bool
}

// SyncStatus is a point-in-time snapshot of the sync engine's state.
type SyncStatus struct {
	Online       bool
	QueueDepth   int
	LastSyncAt   time.Time
	Stalled      bool
	DeadLettered int
}
