/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"fmt"
	"math"
	"time"

	"github.com/acronis/go-floodgate/logarithm"
)

// Settings is an immutable set of throttling parameters shared by all actors of a throttle.
// It is built from Config by NewSettings and is safe for concurrent use.
type Settings struct {
	bucketTicks              int64
	windowTicks              int64
	cleanupTicks             int64
	windowSize               int
	bucketSendLimit          int64
	spilloverThreshold       int64
	attritionLogBase         int64
	attritionFloor           int64
	inverseAttritionDeltaMin int64
	maxAttrition             int64
	cleanupCooldown          time.Duration

	logTable *logarithm.Table
	now      func() time.Time
}

// SettingsOption configures optional parameters of Settings.
type SettingsOption func(s *Settings)

// WithClock makes the actors use the given function as a time source instead of time.Now.
func WithClock(now func() time.Time) SettingsOption {
	return func(s *Settings) {
		s.now = now
	}
}

// NewSettings validates the configuration and builds Settings from it.
// A nil configuration means NewDefaultConfig().
func NewSettings(cfg *Config, opts ...SettingsOption) (*Settings, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid throttling configuration: %w", err)
	}
	logTable, err := logarithm.NewTable(cfg.AttritionLogBase)
	if err != nil {
		return nil, fmt.Errorf("build attrition logarithm table: %w", err)
	}

	bucketTicks := cfg.BucketDuration.Nanoseconds()
	s := &Settings{
		bucketTicks:              bucketTicks,
		windowTicks:              bucketTicks * int64(cfg.WindowSize),
		cleanupTicks:             bucketTicks * int64(cfg.WindowSize+1),
		windowSize:               cfg.WindowSize,
		bucketSendLimit:          cfg.BucketSendLimit,
		spilloverThreshold:       cfg.SpilloverThreshold,
		attritionLogBase:         int64(cfg.AttritionLogBase),
		attritionFloor:           cfg.AttritionFloor,
		inverseAttritionDeltaMin: cfg.InverseAttritionDeltaMin,
		maxAttrition:             math.MaxInt64 - int64(cfg.AttritionLogBase),
		cleanupCooldown:          cfg.CleanupCooldown,
		logTable:                 logTable,
		now:                      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustNewSettings is like NewSettings but panics on invalid configuration.
func MustNewSettings(cfg *Config, opts ...SettingsOption) *Settings {
	s, err := NewSettings(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// BucketDuration returns the time span of a single bucket.
func (s *Settings) BucketDuration() time.Duration {
	return time.Duration(s.bucketTicks)
}

// WindowSize returns the number of buckets in the sliding window.
func (s *Settings) WindowSize() int {
	return s.windowSize
}

// IdleTimeout returns how long an actor must stay silent before it may be removed.
func (s *Settings) IdleTimeout() time.Duration {
	return time.Duration(s.cleanupTicks)
}

// CleanupCooldown returns the delay between background cleanup passes.
func (s *Settings) CleanupCooldown() time.Duration {
	return s.cleanupCooldown
}

// Now returns the current time of the configured clock.
func (s *Settings) Now() time.Time {
	return s.now()
}

func (s *Settings) sendLimit(attrition int64) int64 {
	limit := s.bucketSendLimit / s.logTable.Log(attrition+s.attritionLogBase)
	if limit < 1 {
		return 1
	}
	return limit
}
