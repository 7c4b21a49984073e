/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// testStartTime is aligned to the default bucket duration.
var testStartTime = time.Unix(1_700_000_000, 0)

type fakeClock struct {
	nanos atomic.Int64
}

func newFakeClock(start time.Time) *fakeClock {
	c := &fakeClock{}
	c.nanos.Store(start.UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.nanos.Load())
}

func (c *fakeClock) Advance(d time.Duration) {
	c.nanos.Add(d.Nanoseconds())
}

func (c *fakeClock) Set(t time.Time) {
	c.nanos.Store(t.UnixNano())
}

func newTestSettings(t *testing.T, clock *fakeClock, modifyCfg func(cfg *Config)) *Settings {
	t.Helper()
	cfg := NewDefaultConfig()
	if modifyCfg != nil {
		modifyCfg(cfg)
	}
	settings, err := NewSettings(cfg, WithClock(clock.Now))
	require.NoError(t, err)
	return settings
}

func TestActorThrottle_Spillover(t *testing.T) {
	for _, base := range []int{2, 10} {
		clock := newFakeClock(testStartTime)
		settings := newTestSettings(t, clock, func(cfg *Config) {
			cfg.AttritionLogBase = base
		})
		actor := NewActorThrottle(settings)

		for i := 0; i < DefaultSpilloverThreshold; i++ {
			resp, err := actor.Evaluate()
			require.NoError(t, err)
			require.True(t, resp.Allowed, "base=%d, event #%d", base, i)
			require.Equal(t, int64(0), resp.DisallowedSinceLastAllowed)
		}

		resp, err := actor.Evaluate()
		require.NoError(t, err)
		require.False(t, resp.Allowed, "base=%d", base)
		require.Equal(t, int64(1), resp.DisallowedSinceLastAllowed)
		require.Equal(t, testStartTime, resp.LastAllowedAt)

		resp, err = actor.Evaluate()
		require.NoError(t, err)
		require.False(t, resp.Allowed)
		require.Equal(t, int64(2), resp.DisallowedSinceLastAllowed)

		stats := actor.Stats()
		require.Equal(t, int64(0), stats.Attrition)
		require.Equal(t, int64(DefaultSpilloverThreshold+2), stats.TotalReceived)
		require.Equal(t, int64(2), stats.DisallowedStreak)
		require.Equal(t, 1, stats.ValidBuckets)
		require.Equal(t, int64(DefaultBucketSendLimit), stats.SendLimit)
		require.Equal(t, testStartTime, stats.LastSeen)
	}
}

func TestActorThrottle_LastAllowedAt(t *testing.T) {
	clock := newFakeClock(testStartTime.Add(time.Second))
	actor := NewActorThrottle(newTestSettings(t, clock, nil))

	resp, err := actor.Evaluate()
	require.NoError(t, err)
	require.True(t, resp.Allowed)
	require.True(t, resp.LastAllowedAt.IsZero())

	clock.Advance(DefaultBucketDuration)
	resp, err = actor.Evaluate()
	require.NoError(t, err)
	require.True(t, resp.Allowed)
	require.Equal(t, testStartTime, resp.LastAllowedAt)
	require.Equal(t, testStartTime.Add(DefaultBucketDuration), actor.Stats().LastAllowedAt)
}

func TestActorThrottle_SustainedOverload(t *testing.T) {
	clock := newFakeClock(testStartTime)
	actor := NewActorThrottle(newTestSettings(t, clock, nil))

	prevSendLimit := int64(DefaultBucketSendLimit)
	prevAttrition := int64(0)
	for bucket := 0; bucket < 40; bucket++ {
		allowed := int64(0)
		for i := 0; i < 100; i++ {
			resp, err := actor.Evaluate()
			require.NoError(t, err)
			if resp.Allowed {
				allowed++
			}
		}
		stats := actor.Stats()
		require.LessOrEqual(t, stats.SendLimit, prevSendLimit, "bucket #%d", bucket)
		require.GreaterOrEqual(t, stats.SendLimit, int64(1), "bucket #%d", bucket)
		require.GreaterOrEqual(t, stats.Attrition, prevAttrition, "bucket #%d", bucket)
		if stats.Attrition > 0 {
			require.Equal(t, stats.SendLimit, allowed, "bucket #%d", bucket)
		}
		prevSendLimit, prevAttrition = stats.SendLimit, stats.Attrition
		clock.Advance(DefaultBucketDuration)
	}
	require.Equal(t, int64(1), prevSendLimit)
	require.Equal(t, int64(39), prevAttrition)

	// Well-behaved traffic restores the limit once the overloaded buckets leave the window.
	for bucket := 0; bucket < DefaultWindowSize; bucket++ {
		resp, err := actor.Evaluate()
		require.NoError(t, err)
		require.True(t, resp.Allowed)
		require.Equal(t, int64(1), actor.Stats().SendLimit)
		clock.Advance(DefaultBucketDuration)
	}
	resp, err := actor.Evaluate()
	require.NoError(t, err)
	require.True(t, resp.Allowed)
	stats := actor.Stats()
	require.Equal(t, int64(0), stats.Attrition)
	require.Equal(t, int64(DefaultBucketSendLimit), stats.SendLimit)
}

func TestActorThrottle_TimeRegression(t *testing.T) {
	clock := newFakeClock(testStartTime.Add(DefaultBucketDuration))
	actor := NewActorThrottle(newTestSettings(t, clock, nil))

	_, err := actor.Evaluate()
	require.NoError(t, err)
	statsBefore := actor.Stats()

	// Going back within the same bucket is fine.
	clock.Set(testStartTime.Add(DefaultBucketDuration + time.Second))
	_, err = actor.Evaluate()
	require.NoError(t, err)
	clock.Set(testStartTime.Add(DefaultBucketDuration))
	_, err = actor.Evaluate()
	require.NoError(t, err)
	statsBefore.TotalReceived += 2

	clock.Set(testStartTime.Add(DefaultBucketDuration - time.Nanosecond))
	_, err = actor.Evaluate()
	require.ErrorIs(t, err, ErrTimeRegression)
	var regressionErr *TimeRegressionError
	require.True(t, errors.As(err, &regressionErr))
	require.Equal(t, testStartTime.Add(DefaultBucketDuration), regressionErr.Previous)
	require.Equal(t, testStartTime, regressionErr.Current)
	require.Equal(t, statsBefore, actor.Stats())
}

func TestActorThrottle_ReadyForCleanup(t *testing.T) {
	clock := newFakeClock(testStartTime)
	actor := NewActorThrottle(newTestSettings(t, clock, func(cfg *Config) {
		cfg.AttritionLogBase = 10
	}))
	require.True(t, actor.ReadyForCleanup(), "actor that has never seen an event")

	_, err := actor.Evaluate()
	require.NoError(t, err)
	require.False(t, actor.ReadyForCleanup())

	clock.Set(testStartTime.Add(5 * DefaultBucketDuration))
	require.False(t, actor.ReadyForCleanup())

	clock.Set(testStartTime.Add(6 * DefaultBucketDuration))
	require.False(t, actor.ReadyForCleanup())

	clock.Set(testStartTime.Add(6*DefaultBucketDuration + time.Nanosecond))
	require.True(t, actor.ReadyForCleanup())
}

func TestActorThrottle_RetireIfIdle(t *testing.T) {
	clock := newFakeClock(testStartTime)
	actor := NewActorThrottle(newTestSettings(t, clock, nil))

	_, err := actor.Evaluate()
	require.NoError(t, err)
	require.False(t, actor.RetireIfIdle())
	require.False(t, actor.Retired())

	clock.Advance(time.Minute)
	require.True(t, actor.RetireIfIdle())
	require.True(t, actor.Retired())
	require.True(t, actor.RetireIfIdle())

	_, err = actor.Evaluate()
	require.ErrorIs(t, err, ErrActorRetired)
}

func TestActorThrottle_RingBufferReuse(t *testing.T) {
	clock := newFakeClock(testStartTime)
	actor := NewActorThrottle(newTestSettings(t, clock, func(cfg *Config) {
		cfg.WindowSize = 3
	}))

	for bucket := 0; bucket < 10; bucket++ {
		for i := 0; i < 3; i++ {
			resp, err := actor.Evaluate()
			require.NoError(t, err)
			require.True(t, resp.Allowed)
		}
		stats := actor.Stats()
		wantBuckets := bucket + 1
		if wantBuckets > 3 {
			wantBuckets = 3
		}
		require.Equal(t, wantBuckets, stats.ValidBuckets, "bucket #%d", bucket)
		require.Equal(t, int64(3*wantBuckets), stats.TotalReceived, "bucket #%d", bucket)
		clock.Advance(DefaultBucketDuration)
	}

	// Skipping more buckets than the window has evicts everything but the new bucket.
	clock.Advance(10 * DefaultBucketDuration)
	_, err := actor.Evaluate()
	require.NoError(t, err)
	stats := actor.Stats()
	require.Equal(t, 1, stats.ValidBuckets)
	require.Equal(t, int64(1), stats.TotalReceived)
}

func TestNextAttrition(t *testing.T) {
	settings := newTestSettings(t, newFakeClock(testStartTime), func(cfg *Config) {
		cfg.InverseAttritionDeltaMin = -int64(DefaultWindowSize) * DefaultBucketSendLimit
	})
	maxDelta := -settings.inverseAttritionDeltaMin

	tests := []struct {
		name                string
		attrition           int64
		attritionDeltaDelta int64
		want                int64
	}{
		{name: "first throttled bucket", attrition: 0, attritionDeltaDelta: 1, want: 1},
		{name: "calm window resets attrition", attrition: 1000, attritionDeltaDelta: 0, want: 0},
		{name: "growth is bounded by the minimal delta", attrition: 10, attritionDeltaDelta: 100, want: 10 + maxDelta},
		{
			name:                "product overflow keeps growing",
			attrition:           1 << 62,
			attritionDeltaDelta: 1 << 40,
			want:                1<<62 + maxDelta,
		},
		{
			name:                "saturates at the maximum",
			attrition:           math.MaxInt64 - 10,
			attritionDeltaDelta: 1 << 40,
			want:                math.MaxInt64 - DefaultAttritionLogBase,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := nextAttrition(tt.attrition, tt.attritionDeltaDelta, settings)
			require.Equal(t, tt.want, got)
			require.GreaterOrEqual(t, got, int64(0))
		})
	}

	require.Equal(t, int64(1), settings.sendLimit(math.MaxInt64-DefaultAttritionLogBase))
}

func TestAlignToBucket(t *testing.T) {
	require.Equal(t, int64(10), alignToBucket(14, 5))
	require.Equal(t, int64(15), alignToBucket(15, 5))
	require.Equal(t, int64(0), alignToBucket(4, 5))
	require.Equal(t, int64(-5), alignToBucket(-1, 5))
	require.Equal(t, int64(-5), alignToBucket(-5, 5))
}
