/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"sync"

	"go.uber.org/atomic"
)

type queuedActor[K comparable] struct {
	key   K
	actor *ActorThrottle
}

// QueuedMapStorage keeps actors in a sync.Map and tracks cleanup candidates in a work queue.
// Every published actor has exactly one entry in the queue.
// A sweep drains the queue, removes idle actors and puts the entries of active ones back.
type QueuedMapStorage[K comparable] struct {
	actors sync.Map
	length atomic.Int64

	queueMu sync.Mutex
	queue   []queuedActor[K]

	cleanupEnabled bool
}

var _ Storage[string] = (*QueuedMapStorage[string])(nil)

// NewQueuedMapStorage creates a new QueuedMapStorage.
func NewQueuedMapStorage[K comparable](opts StorageOpts) *QueuedMapStorage[K] {
	return &QueuedMapStorage[K]{cleanupEnabled: !opts.DisableCleanup}
}

// Load returns the live actor for the key, creating it if needed.
// create may be called more than once under contention, only one of the created actors is published.
func (s *QueuedMapStorage[K]) Load(key K, create func() *ActorThrottle) *ActorThrottle {
	for {
		if val, ok := s.actors.Load(key); ok {
			actor := val.(*ActorThrottle)
			if !actor.Retired() {
				return actor
			}
			s.delete(key, actor)
		}

		created := create()
		val, loaded := s.actors.LoadOrStore(key, created)
		if !loaded {
			s.length.Inc()
			s.enqueue(queuedActor[K]{key: key, actor: created})
			return created
		}
		if actor := val.(*ActorThrottle); !actor.Retired() {
			return actor
		}
	}
}

// Sweep removes idle actors. Actors stored while a sweep is running are checked by the next one.
func (s *QueuedMapStorage[K]) Sweep() (int, error) {
	if !s.cleanupEnabled {
		return 0, nil
	}

	s.queueMu.Lock()
	pending := s.queue
	s.queue = nil
	s.queueMu.Unlock()

	removed := 0
	active := pending[:0]
	for _, entry := range pending {
		if !entry.actor.RetireIfIdle() {
			active = append(active, entry)
			continue
		}
		// Load may have already replaced the retired actor.
		if s.delete(entry.key, entry.actor) {
			removed++
		}
	}

	if len(active) != 0 {
		s.queueMu.Lock()
		s.queue = append(s.queue, active...)
		s.queueMu.Unlock()
	}
	return removed, nil
}

// Len returns the number of stored actors.
func (s *QueuedMapStorage[K]) Len() int {
	return int(s.length.Load())
}

// CleanupEnabled reports whether Sweep removes anything.
func (s *QueuedMapStorage[K]) CleanupEnabled() bool {
	return s.cleanupEnabled
}

func (s *QueuedMapStorage[K]) delete(key K, actor *ActorThrottle) bool {
	if s.actors.CompareAndDelete(key, actor) {
		s.length.Dec()
		return true
	}
	return false
}

func (s *QueuedMapStorage[K]) enqueue(entry queuedActor[K]) {
	if !s.cleanupEnabled {
		return
	}
	s.queueMu.Lock()
	s.queue = append(s.queue, entry)
	s.queueMu.Unlock()
}
