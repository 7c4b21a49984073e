/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"errors"

	"github.com/acronis/go-floodgate/log"
)

// Opts represents options for MultiActorThrottle.
type Opts[K comparable] struct {
	// Storage keeps actors by key. SwapMapStorage with enabled cleanup is used if it's nil.
	Storage Storage[K]

	// Logger is used for reporting cleanup results. Logging is disabled if it's nil.
	Logger log.FieldLogger

	// MetricsCollector is used for collecting throttling metrics. Metrics are disabled if it's nil.
	MetricsCollector MetricsCollector
}

// MultiActorThrottle makes throttling decisions for events of many actors identified by keys.
// Actors are created on the first event and removed by the background cleanup after they become idle.
type MultiActorThrottle[K comparable] struct {
	settings *Settings
	storage  Storage[K]
	metrics  MetricsCollector
	cleanup  *cleanupScheduler
	newActor func() *ActorThrottle
}

// New creates a new MultiActorThrottle with default options.
func New[K comparable](settings *Settings) (*MultiActorThrottle[K], error) {
	return NewWithOpts[K](settings, Opts[K]{})
}

// NewWithOpts creates a new MultiActorThrottle with the provided options.
func NewWithOpts[K comparable](settings *Settings, opts Opts[K]) (*MultiActorThrottle[K], error) {
	if settings == nil {
		return nil, errors.New("settings must be provided")
	}
	if opts.Storage == nil {
		opts.Storage = NewSwapMapStorage[K](StorageOpts{})
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}

	t := &MultiActorThrottle[K]{
		settings: settings,
		storage:  opts.Storage,
		metrics:  opts.MetricsCollector,
		newActor: func() *ActorThrottle { return NewActorThrottle(settings) },
	}
	if opts.Storage.CleanupEnabled() {
		t.cleanup = newCleanupScheduler(
			opts.Storage.Sweep, settings.cleanupCooldown, opts.Logger, opts.MetricsCollector, opts.Storage.Len)
	}
	return t, nil
}

// NewFromConfig creates a new MultiActorThrottle using the settings and the storage strategy from the configuration.
func NewFromConfig[K comparable](cfg *Config, opts Opts[K], settingsOpts ...SettingsOption) (*MultiActorThrottle[K], error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	settings, err := NewSettings(cfg, settingsOpts...)
	if err != nil {
		return nil, err
	}
	if opts.Storage == nil {
		if opts.Storage, err = NewStorage[K](cfg.Storage); err != nil {
			return nil, err
		}
	}
	return NewWithOpts[K](settings, opts)
}

// Evaluate registers a new event of the actor identified by the key and decides whether it's allowed.
// The only possible error is *TimeRegressionError.
func (t *MultiActorThrottle[K]) Evaluate(key K) (Response, error) {
	for {
		created := false
		actor := t.storage.Load(key, func() *ActorThrottle {
			created = true
			return t.newActor()
		})
		if created {
			t.metrics.SetActorsAmount(t.storage.Len())
		}
		// An actor idle for longer than the idle timeout is replaced even if cleanup hasn't removed it yet.
		resp, err := actor.evaluate(true)
		if errors.Is(err, ErrActorRetired) {
			continue
		}
		if t.cleanup != nil {
			t.cleanup.trigger()
		}
		if err != nil {
			return Response{}, err
		}
		t.metrics.IncEvents(resp.Allowed)
		return resp, nil
	}
}

// Settings returns the settings shared by all actors.
func (t *MultiActorThrottle[K]) Settings() *Settings {
	return t.settings
}

// Len returns the number of actors kept in the storage.
func (t *MultiActorThrottle[K]) Len() int {
	return t.storage.Len()
}

// LastCleanupError returns the error of the most recent failed cleanup pass (*CleanupError) or nil.
func (t *MultiActorThrottle[K]) LastCleanupError() error {
	if t.cleanup == nil {
		return nil
	}
	return t.cleanup.lastErr.Load()
}

// CleanupNow runs a cleanup pass synchronously regardless of the cooldown
// and returns the number of removed actors.
func (t *MultiActorThrottle[K]) CleanupNow() (int, error) {
	if t.cleanup == nil {
		return 0, nil
	}
	removed, _, err := t.cleanup.runPass()
	return removed, err
}

// Close stops the background cleanup and waits for the running pass to finish.
// The throttle can still be used after Close, but idle actors are no longer removed.
func (t *MultiActorThrottle[K]) Close() {
	if t.cleanup != nil {
		t.cleanup.close()
	}
}
