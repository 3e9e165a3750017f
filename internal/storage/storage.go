// Package storage provides the durable local key-value store consumed by
// the sync engine. Two structured records live here: the offline queue and
// the last-known user trip list.
package storage

import "context"

// Fixed keys for the engine's structured records.
const (
	KeyOfflineQueue = "ridesync:offline_queue"
	KeyTripCache    = "ridesync:trip_cache"
	KeyDeadLetters  = "ridesync:dead_letters"
)

// KVStore is the minimal durable key-value contract. GetItem returns
// (nil, nil) on a missing key; callers treat that as a cache miss.
type KVStore interface {
	SetItem(ctx context.Context, key string, value []byte) error
	GetItem(ctx context.Context, key string) ([]byte, error)
	RemoveItem(ctx context.Context, key string) error
}

// Ensure concrete types implement the interface.
var (
	_ KVStore = (*MemoryStore)(nil)
	_ KVStore = (*RedisStore)(nil)
)
