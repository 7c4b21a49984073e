/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"math"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Response is the decision made for a single event.
type Response struct {
	// Allowed is true if the event should be passed through.
	Allowed bool

	// DisallowedSinceLastAllowed is the number of events suppressed since the last allowed one.
	// For an allowed event it is the streak that has just ended,
	// for a disallowed event it is the streak including this event.
	DisallowedSinceLastAllowed int64

	// LastAllowedAt is the bucket timestamp of the previous allowed event.
	// It is zero until the actor allows its first event.
	LastAllowedAt time.Time
}

// ActorStats is a snapshot of the actor state.
type ActorStats struct {
	Attrition        int64
	TotalReceived    int64
	DisallowedStreak int64
	ValidBuckets     int
	SendLimit        int64
	LastSeen         time.Time
	LastAllowedAt    time.Time
}

// ActorThrottle makes throttling decisions for a single actor.
// All methods are safe for concurrent use.
type ActorThrottle struct {
	settings *Settings

	mu            sync.Mutex
	window        []TimeBucket
	writeCursor   int
	currentCursor int
	validBuckets  int

	attrition        int64
	totalReceived    int64
	disallowedStreak int64
	lastAllowedAt    int64
	everAllowed      bool
	lastSeen         int64
	everSeen         bool

	retired atomic.Bool
}

// NewActorThrottle creates a new actor throttle that has never seen an event.
func NewActorThrottle(settings *Settings) *ActorThrottle {
	return &ActorThrottle{
		settings:      settings,
		window:        make([]TimeBucket, settings.windowSize),
		currentCursor: settings.windowSize - 1,
	}
}

// Evaluate registers a new event at the current time of the settings clock and decides whether it's allowed.
// It returns *TimeRegressionError if the clock went back to a previous bucket, and ErrActorRetired
// if the actor has been removed by cleanup.
func (a *ActorThrottle) Evaluate() (Response, error) {
	return a.evaluate(false)
}

// evaluate is Evaluate that optionally retires the actor instead of registering the event
// if the actor has been idle for longer than the idle timeout.
func (a *ActorThrottle) evaluate(retireExpired bool) (Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.retired.Load() {
		return Response{}, ErrActorRetired
	}
	if retireExpired && a.everSeen && a.readyForCleanup() {
		a.retired.Store(true)
		return Response{}, ErrActorRetired
	}

	s := a.settings
	ts := alignToBucket(s.now().UnixNano(), s.bucketTicks)
	if a.everSeen && ts < a.lastSeen {
		return Response{}, &TimeRegressionError{Previous: time.Unix(0, a.lastSeen), Current: time.Unix(0, ts)}
	}
	a.lastSeen = ts
	a.everSeen = true

	if cur := &a.window[a.currentCursor]; !cur.Valid || cur.Start != ts {
		a.rollover(ts)
	}
	return a.admit(ts), nil
}

func (a *ActorThrottle) rollover(ts int64) {
	s := a.settings
	cutoff := ts - s.windowTicks

	var attritionDeltaDelta int64
	for i := range a.window {
		b := &a.window[i]
		if !b.Valid {
			continue
		}
		if b.Start <= cutoff {
			a.totalReceived -= b.Received
			b.invalidate()
			a.validBuckets--
		}
		attritionDeltaDelta += ceilDiv(b.Disallowed, s.bucketSendLimit)
	}

	a.attrition = nextAttrition(a.attrition, attritionDeltaDelta, s)

	a.window[a.writeCursor].init(ts, a.attrition, s)
	a.currentCursor = a.writeCursor
	a.writeCursor = (a.writeCursor + 1) % len(a.window)
	a.validBuckets++
}

func (a *ActorThrottle) admit(ts int64) Response {
	b := &a.window[a.currentCursor]
	a.totalReceived++
	b.Received++

	lastAllowedAt := a.lastAllowedTime()
	if b.Received <= b.SendLimit || (a.attrition == 0 && a.totalReceived <= a.settings.spilloverThreshold) {
		resp := Response{Allowed: true, DisallowedSinceLastAllowed: a.disallowedStreak, LastAllowedAt: lastAllowedAt}
		a.disallowedStreak = 0
		a.lastAllowedAt = ts
		a.everAllowed = true
		return resp
	}

	b.Disallowed++
	a.disallowedStreak++
	return Response{DisallowedSinceLastAllowed: a.disallowedStreak, LastAllowedAt: lastAllowedAt}
}

// ReadyForCleanup reports whether the actor has been silent long enough to be removed without losing
// any state that could influence future decisions. An actor that has never seen an event is always ready.
func (a *ActorThrottle) ReadyForCleanup() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readyForCleanup()
}

func (a *ActorThrottle) readyForCleanup() bool {
	if !a.everSeen {
		return true
	}
	return a.settings.now().UnixNano() > a.lastSeen+a.settings.cleanupTicks
}

// RetireIfIdle marks the actor as retired if it is ready for cleanup.
// A retired actor refuses further events with ErrActorRetired.
// It returns true if the actor is retired after the call.
func (a *ActorThrottle) RetireIfIdle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.retired.Load() {
		return true
	}
	if !a.readyForCleanup() {
		return false
	}
	a.retired.Store(true)
	return true
}

// Retired reports whether the actor has been removed by cleanup.
func (a *ActorThrottle) Retired() bool {
	return a.retired.Load()
}

// Stats returns a snapshot of the actor state.
func (a *ActorThrottle) Stats() ActorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := ActorStats{
		Attrition:        a.attrition,
		TotalReceived:    a.totalReceived,
		DisallowedStreak: a.disallowedStreak,
		ValidBuckets:     a.validBuckets,
		LastAllowedAt:    a.lastAllowedTime(),
	}
	if a.everSeen {
		stats.LastSeen = time.Unix(0, a.lastSeen)
	}
	if cur := a.window[a.currentCursor]; cur.Valid {
		stats.SendLimit = cur.SendLimit
	}
	return stats
}

func (a *ActorThrottle) lastAllowedTime() time.Time {
	if !a.everAllowed {
		return time.Time{}
	}
	return time.Unix(0, a.lastAllowedAt)
}

// alignToBucket floors ticks to the bucket boundary. Ticks before the epoch are floored too.
func alignToBucket(ticks, bucketTicks int64) int64 {
	ts := ticks / bucketTicks * bucketTicks
	if ts > ticks {
		ts -= bucketTicks
	}
	return ts
}

// nextAttrition recomputes the attrition at a rollover.
// The result saturates instead of overflowing int64 under an extreme flood.
func nextAttrition(attrition, attritionDeltaDelta int64, s *Settings) int64 {
	scale := attrition/int64(s.windowSize) + 1
	decrease := int64(math.MaxInt64)
	if attritionDeltaDelta <= math.MaxInt64/scale {
		decrease = attritionDeltaDelta * scale
	}
	delta := attrition - decrease
	if delta < s.inverseAttritionDeltaMin {
		delta = s.inverseAttritionDeltaMin
	}
	if delta < 0 && attrition > s.maxAttrition+delta {
		return s.maxAttrition
	}
	attrition -= delta
	if attrition < s.attritionFloor {
		attrition = s.attritionFloor
	}
	return attrition
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
