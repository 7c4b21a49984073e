/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeRegression is returned (wrapped in *TimeRegressionError) when the clock moves
// to a bucket that precedes the last bucket seen by the actor.
var ErrTimeRegression = errors.New("time regression")

// ErrActorRetired is returned by ActorThrottle.Evaluate when the actor has been removed by cleanup.
// MultiActorThrottle handles it by resolving the key again, so it never reaches its callers.
var ErrActorRetired = errors.New("actor throttle is retired")

// TimeRegressionError describes an event whose bucket timestamp precedes the last seen one.
// The actor state is left untouched when it is returned.
type TimeRegressionError struct {
	Previous time.Time
	Current  time.Time
}

func (e *TimeRegressionError) Error() string {
	return fmt.Sprintf("%s: bucket %s precedes last seen bucket %s",
		ErrTimeRegression, e.Current.UTC().Format(time.RFC3339Nano), e.Previous.UTC().Format(time.RFC3339Nano))
}

// Unwrap returns ErrTimeRegression.
func (e *TimeRegressionError) Unwrap() error {
	return ErrTimeRegression
}

// CleanupError is recorded when a background cleanup pass fails or panics.
// It is never returned from Evaluate, use MultiActorThrottle.LastCleanupError to inspect it.
type CleanupError struct {
	Err   error
	Panic bool
	Stack []byte
}

func (e *CleanupError) Error() string {
	if e.Panic {
		return fmt.Sprintf("cleanup panicked: %v", e.Err)
	}
	return fmt.Sprintf("cleanup failed: %v", e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}
