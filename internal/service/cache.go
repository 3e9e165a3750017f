package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ridesync/internal/domain"
	"ridesync/internal/storage"
)

// TripCache holds the last-known user trip list in local storage. It is
// a read-through cache: readers get the stored snapshot immediately and a
// background refresh overwrites it for future reads.
type TripCache struct {
	store storage.KVStore
}

// NewTripCache creates a cache over the given store.
func NewTripCache(store storage.KVStore) *TripCache {
	return &TripCache{store: store}
}

// Get returns the cached trip list and whether a snapshot exists.
// Entries with status tokens that no longer parse are dropped rather
// than failing the whole read.
func (c *TripCache) Get(ctx context.Context) ([]*domain.Trip, bool) {
	data, err := c.store.GetItem(ctx, storage.KeyTripCache)
	if err != nil || data == nil {
		return nil, false
	}

	var recs []domain.TripRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, false
	}

	trips := make([]*domain.Trip, 0, len(recs))
	for _, rec := range recs {
		trip, err := domain.TripFromRecord(rec)
		if err != nil {
			continue
		}
		trips = append(trips, trip)
	}
	return trips, true
}

// Lookup finds a single trip in the cached snapshot.
func (c *TripCache) Lookup(ctx context.Context, tripID string) (*domain.Trip, bool) {
	trips, ok := c.Get(ctx)
	if !ok {
		return nil, false
	}
	for _, trip := range trips {
		if trip.ID == tripID {
			return trip, true
		}
	}
	return nil, false
}

// Set overwrites the cached snapshot.
func (c *TripCache) Set(ctx context.Context, trips []*domain.Trip) error {
	recs := make([]domain.TripRecord, 0, len(trips))
	for _, trip := range trips {
		recs = append(recs, trip.Record())
	}

	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode trip cache: %w", err)
	}
	if err := c.store.SetItem(ctx, storage.KeyTripCache, data); err != nil {
		return fmt.Errorf("persist trip cache: %w", err)
	}
	return nil
}

// Clear removes the cached snapshot.
func (c *TripCache) Clear(ctx context.Context) error {
	return c.store.RemoveItem(ctx, storage.KeyTripCache)
}
