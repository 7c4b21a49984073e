/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import "fmt"

// Storage keeps actor throttles by key and removes idle ones.
// Implementations must publish at most one actor per key at any time:
// every caller that resolves a key gets the same live instance until it is retired.
type Storage[K comparable] interface {
	// Load returns the live actor for the key, creating it with create if it doesn't exist
	// or if the existing one has been retired.
	Load(key K, create func() *ActorThrottle) *ActorThrottle

	// Sweep removes actors that are ready for cleanup and returns the number of removed ones.
	Sweep() (removed int, err error)

	// Len returns the number of stored actors.
	Len() int

	// CleanupEnabled reports whether Sweep removes anything.
	CleanupEnabled() bool
}

// StorageOpts represents options for storages.
type StorageOpts struct {
	// DisableCleanup makes Sweep a no-op, so the storage never shrinks and it's safe only for bounded key spaces.
	// An idle actor is still replaced by a fresh one on the next event of its key.
	DisableCleanup bool
}

// NewStorage creates a storage for the strategy from the configuration.
func NewStorage[K comparable](cfg StorageConfig) (Storage[K], error) {
	opts := StorageOpts{DisableCleanup: !cfg.CleanupEnabled}
	switch cfg.Strategy {
	case StorageStrategySwapMap, "":
		return NewSwapMapStorage[K](opts), nil
	case StorageStrategyQueuedMap:
		return NewQueuedMapStorage[K](opts), nil
	default:
		return nil, fmt.Errorf("unknown storage strategy %q", cfg.Strategy)
	}
}
