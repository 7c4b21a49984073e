/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package baseline

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter implements token bucket rate limiting algorithm.
type TokenBucketLimiter struct {
	store *keyedStore[*rate.Limiter]
	now   Clock
}

var _ Limiter = (*TokenBucketLimiter)(nil)

// NewTokenBucketLimiter creates a new token bucket limiter.
func NewTokenBucketLimiter(params Params, now Clock) (*TokenBucketLimiter, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	limit := rate.Every(params.Rate.Duration / time.Duration(params.Rate.Count))
	store, err := newKeyedStore(params.maxKeys(), func() *rate.Limiter {
		return rate.NewLimiter(limit, params.Burst)
	})
	if err != nil {
		return nil, err
	}
	return &TokenBucketLimiter{store: store, now: now}, nil
}

// Name returns the limiter name.
func (l *TokenBucketLimiter) Name() string {
	return "token_bucket"
}

// Allow checks if the event should be allowed.
func (l *TokenBucketLimiter) Allow(key string) (bool, error) {
	return l.store.get(key).AllowN(l.now(), 1), nil
}
