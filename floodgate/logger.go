/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import "github.com/acronis/go-floodgate/log"

// messageThrottle adapts MultiActorThrottle to log.MessageThrottle.
type messageThrottle struct {
	throttle *MultiActorThrottle[string]
}

func (m messageThrottle) AllowMessage(key string) (allowed bool, suppressed int64, err error) {
	resp, err := m.throttle.Evaluate(key)
	if err != nil {
		return false, 0, err
	}
	return resp.Allowed, resp.DisallowedSinceLastAllowed, nil
}

// NewThrottledLogger returns a logger that suppresses floods of identical messages.
// Every message (level and text) is an actor of the throttle.
func NewThrottledLogger(logger log.FieldLogger, throttle *MultiActorThrottle[string]) log.FieldLogger {
	return log.NewThrottledLogger(logger, messageThrottle{throttle})
}
