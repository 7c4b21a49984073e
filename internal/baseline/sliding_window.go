/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package baseline

import (
	"time"

	"github.com/RussellLuo/slidingwindow"
)

// SlidingWindowLimiter implements sliding window rate limiting algorithm.
// The window is Params.Burst events long, so a key may send the whole burst at once.
type SlidingWindowLimiter struct {
	store *keyedStore[*slidingwindow.Limiter]
	now   Clock
}

var _ Limiter = (*SlidingWindowLimiter)(nil)

// NewSlidingWindowLimiter creates a new sliding window limiter.
func NewSlidingWindowLimiter(params Params, now Clock) (*SlidingWindowLimiter, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	// Window that holds Burst events at the configured rate.
	size := params.Rate.Duration * time.Duration(params.Burst) / time.Duration(params.Rate.Count)
	store, err := newKeyedStore(params.maxKeys(), func() *slidingwindow.Limiter {
		lim, _ := slidingwindow.NewLimiter(size, int64(params.Burst), func() (slidingwindow.Window, slidingwindow.StopFunc) {
			return slidingwindow.NewLocalWindow()
		})
		return lim
	})
	if err != nil {
		return nil, err
	}
	return &SlidingWindowLimiter{store: store, now: now}, nil
}

// Name returns the limiter name.
func (l *SlidingWindowLimiter) Name() string {
	return "sliding_window"
}

// Allow checks if the event should be allowed.
func (l *SlidingWindowLimiter) Allow(key string) (bool, error) {
	return l.store.get(key).AllowN(l.now(), 1), nil
}
