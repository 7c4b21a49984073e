/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"sync"

	"go.uber.org/atomic"
)

type swapMapGeneration[K comparable] struct {
	actors sync.Map // K -> *ActorThrottle
	size   atomic.Int64

	// mu is held for reading while a new actor is published and for writing while a sweep
	// switches late-insert tracking on or replaces the generation.
	mu       sync.RWMutex
	sweeping bool
	replaced bool

	lateMu   sync.Mutex
	lateKeys []K
}

func (g *swapMapGeneration[K]) load(key K) (*ActorThrottle, bool) {
	val, ok := g.actors.Load(key)
	if !ok {
		return nil, false
	}
	return val.(*ActorThrottle), true
}

// trackLateKey remembers a key published while a sweep of the generation is in progress.
// Must be called with mu held for reading.
func (g *swapMapGeneration[K]) trackLateKey(key K) {
	if !g.sweeping {
		return
	}
	g.lateMu.Lock()
	g.lateKeys = append(g.lateKeys, key)
	g.lateMu.Unlock()
}

// SwapMapStorage keeps actors in a map and cleans it up by a full scan.
// A sweep retires idle actors, builds a new map without them and swaps it in atomically.
// Actors published into the old map while the sweep was scanning it are migrated to the new one.
// Lookups of existing keys don't take any lock, even while a sweep is in progress.
type SwapMapStorage[K comparable] struct {
	current        atomic.Pointer[swapMapGeneration[K]]
	sweepMu        sync.Mutex
	cleanupEnabled bool
}

var _ Storage[string] = (*SwapMapStorage[string])(nil)

// NewSwapMapStorage creates a new SwapMapStorage.
func NewSwapMapStorage[K comparable](opts StorageOpts) *SwapMapStorage[K] {
	s := &SwapMapStorage[K]{cleanupEnabled: !opts.DisableCleanup}
	s.current.Store(&swapMapGeneration[K]{})
	return s
}

// Load returns the live actor for the key, creating it if needed.
// create may be called more than once under contention, only one of the created actors is published.
func (s *SwapMapStorage[K]) Load(key K, create func() *ActorThrottle) *ActorThrottle {
	for {
		gen := s.current.Load()
		if actor, ok := gen.load(key); ok && !actor.Retired() {
			return actor
		}
		if actor, ok := s.publish(gen, key, create); ok {
			return actor
		}
	}
}

// publish stores a new actor for the key unless a live one exists.
// It returns false if the generation has been replaced, so the caller must retry with the current one.
func (s *SwapMapStorage[K]) publish(gen *swapMapGeneration[K], key K, create func() *ActorThrottle) (*ActorThrottle, bool) {
	gen.mu.RLock()
	defer gen.mu.RUnlock()
	if gen.replaced {
		return nil, false
	}
	for {
		existing, ok := gen.load(key)
		if ok && !existing.Retired() {
			return existing, true
		}
		actor := create()
		if ok {
			if !gen.actors.CompareAndSwap(key, existing, actor) {
				continue
			}
		} else {
			if _, loaded := gen.actors.LoadOrStore(key, actor); loaded {
				continue
			}
			gen.size.Inc()
		}
		gen.trackLateKey(key)
		return actor, true
	}
}

// Sweep removes idle actors. Only one sweep runs at a time.
func (s *SwapMapStorage[K]) Sweep() (int, error) {
	if !s.cleanupEnabled {
		return 0, nil
	}

	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	gen := s.current.Load()
	gen.mu.Lock()
	gen.sweeping = true
	gen.mu.Unlock()

	next := &swapMapGeneration[K]{}
	removed := 0
	gen.actors.Range(func(key, val any) bool {
		actor := val.(*ActorThrottle)
		if actor.RetireIfIdle() {
			removed++
			return true
		}
		next.actors.Store(key, actor)
		next.size.Inc()
		return true
	})

	gen.mu.Lock()
	defer gen.mu.Unlock()
	gen.sweeping = false
	gen.lateMu.Lock()
	lateKeys := gen.lateKeys
	gen.lateKeys = nil
	gen.lateMu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	for _, key := range lateKeys {
		actor, ok := gen.load(key)
		if !ok || actor.Retired() {
			continue
		}
		if _, loaded := next.actors.Swap(key, actor); !loaded {
			next.size.Inc()
		}
	}
	gen.replaced = true
	s.current.Store(next)
	return removed, nil
}

// Len returns the number of stored actors.
func (s *SwapMapStorage[K]) Len() int {
	return int(s.current.Load().size.Load())
}

// CleanupEnabled reports whether Sweep removes anything.
func (s *SwapMapStorage[K]) CleanupEnabled() bool {
	return s.cleanupEnabled
}
