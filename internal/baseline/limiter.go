/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package baseline

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/acronis/go-floodgate/floodgate"
)

// DefaultMaxKeys is the default number of keys a limiter keeps state for.
const DefaultMaxKeys = 10000

// Clock returns the current (possibly virtual) time.
type Clock func() time.Time

// Rate describes the frequency of events.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Params contains parameters shared by the reference limiters.
type Params struct {
	// Rate is the sustained rate of allowed events per key.
	Rate Rate

	// Burst is the number of events a key may send at once.
	Burst int

	// MaxKeys limits the number of keys the limiter keeps state for, least recently used keys are dropped.
	MaxKeys int
}

// ParamsFromConfig returns parameters that give the reference limiters the same nominal allowance
// as floodgate without attrition: BucketSendLimit events per bucket and SpilloverThreshold at once.
func ParamsFromConfig(cfg *floodgate.Config) Params {
	return Params{
		Rate:    Rate{Count: int(cfg.BucketSendLimit), Duration: cfg.BucketDuration},
		Burst:   int(cfg.SpilloverThreshold),
		MaxKeys: DefaultMaxKeys,
	}
}

func (p Params) validate() error {
	if p.Rate.Count <= 0 || p.Rate.Duration <= 0 {
		return fmt.Errorf("rate must be positive, got %d per %s", p.Rate.Count, p.Rate.Duration)
	}
	if p.Burst <= 0 {
		return fmt.Errorf("burst must be positive, got %d", p.Burst)
	}
	if p.MaxKeys < 0 {
		return fmt.Errorf("max keys should not be negative, got %d", p.MaxKeys)
	}
	return nil
}

func (p Params) maxKeys() int {
	if p.MaxKeys == 0 {
		return DefaultMaxKeys
	}
	return p.MaxKeys
}

// Limiter decides whether an event of the key is allowed.
type Limiter interface {
	Name() string
	Allow(key string) (bool, error)
}

// keyedStore keeps per-key limiter state in an LRU cache.
type keyedStore[T any] struct {
	cache  *lru.Cache
	create func() T
}

func newKeyedStore[T any](maxKeys int, create func() T) (*keyedStore[T], error) {
	cache, err := lru.New(maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
	}
	return &keyedStore[T]{cache: cache, create: create}, nil
}

func (s *keyedStore[T]) get(key string) T {
	if val, ok := s.cache.Get(key); ok {
		return val.(T)
	}
	created := s.create()
	if prev, ok, _ := s.cache.PeekOrAdd(key, created); ok {
		return prev.(T)
	}
	return created
}
