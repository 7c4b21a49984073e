/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package baseline

import (
	"context"
	"fmt"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

// clockedGCRAStore reports the time of the injected clock instead of the wall time.
type clockedGCRAStore struct {
	throttled.GCRAStoreCtx
	now Clock
}

func (s *clockedGCRAStore) GetWithTime(ctx context.Context, key string) (int64, time.Time, error) {
	tat, _, err := s.GCRAStoreCtx.GetWithTime(ctx, key)
	return tat, s.now(), err
}

// GCRALimiter implements GCRA (Generic Cell Rate Algorithm), a leaky bucket variant.
type GCRALimiter struct {
	limiter *throttled.GCRARateLimiterCtx
}

var _ Limiter = (*GCRALimiter)(nil)

// NewGCRALimiter creates a new GCRA limiter.
func NewGCRALimiter(params Params, now Clock) (*GCRALimiter, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	gcraStore, err := memstore.NewCtx(params.maxKeys())
	if err != nil {
		return nil, fmt.Errorf("new in-memory store: %w", err)
	}
	quota := throttled.RateQuota{
		MaxRate: throttled.PerDuration(params.Rate.Count, params.Rate.Duration),
		// The first event is not counted as burst by throttled.
		MaxBurst: params.Burst - 1,
	}
	limiter, err := throttled.NewGCRARateLimiterCtx(&clockedGCRAStore{GCRAStoreCtx: gcraStore, now: now}, quota)
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	return &GCRALimiter{limiter: limiter}, nil
}

// Name returns the limiter name.
func (l *GCRALimiter) Name() string {
	return "gcra"
}

// Allow checks if the event should be allowed.
func (l *GCRALimiter) Allow(key string) (bool, error) {
	limited, _, err := l.limiter.RateLimitCtx(context.Background(), key, 1)
	if err != nil {
		return false, err
	}
	return !limited, nil
}
