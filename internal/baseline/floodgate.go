/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package baseline

import (
	"github.com/acronis/go-floodgate/floodgate"
	"github.com/acronis/go-floodgate/log"
)

// FloodgateLimiter adapts MultiActorThrottle to the Limiter interface.
type FloodgateLimiter struct {
	throttle *floodgate.MultiActorThrottle[string]
}

var _ Limiter = (*FloodgateLimiter)(nil)

// NewFloodgateLimiter creates a throttle from the configuration that reads time from the clock.
func NewFloodgateLimiter(
	cfg *floodgate.Config, now Clock, logger log.FieldLogger, metrics floodgate.MetricsCollector,
) (*FloodgateLimiter, error) {
	throttle, err := floodgate.NewFromConfig[string](cfg, floodgate.Opts[string]{
		Logger:           logger,
		MetricsCollector: metrics,
	}, floodgate.WithClock(now))
	if err != nil {
		return nil, err
	}
	return &FloodgateLimiter{throttle: throttle}, nil
}

// Name returns the limiter name.
func (l *FloodgateLimiter) Name() string {
	return "floodgate"
}

// Allow checks if the event should be allowed.
func (l *FloodgateLimiter) Allow(key string) (bool, error) {
	resp, err := l.throttle.Evaluate(key)
	if err != nil {
		return false, err
	}
	return resp.Allowed, nil
}

// Actors returns the number of actors kept by the throttle.
func (l *FloodgateLimiter) Actors() int {
	return l.throttle.Len()
}

// Close stops the background cleanup of the throttle.
func (l *FloodgateLimiter) Close() {
	l.throttle.Close()
}
