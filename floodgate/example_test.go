/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"fmt"
	stdlog "log"
	"time"

	"go.uber.org/atomic"
)

func Example() {
	// Virtual clock, so the output doesn't depend on the wall time.
	clock := atomic.NewTime(time.Unix(1_700_000_000, 0))
	settings, err := NewSettings(NewDefaultConfig(), WithClock(clock.Load))
	if err != nil {
		stdlog.Fatal(err)
	}

	throttle, err := New[string](settings)
	if err != nil {
		stdlog.Fatal(err)
	}
	defer throttle.Close()

	sendBurst := func(n int) {
		allowed, suppressed := 0, 0
		for i := 0; i < n; i++ {
			resp, evalErr := throttle.Evaluate("disk-full-alert")
			if evalErr != nil {
				stdlog.Fatal(evalErr)
			}
			if !resp.Allowed {
				suppressed++
				continue
			}
			if resp.DisallowedSinceLastAllowed > 0 {
				fmt.Printf("resumed after %d suppressed events\n", resp.DisallowedSinceLastAllowed)
			}
			allowed++
		}
		fmt.Printf("allowed: %d, suppressed: %d\n", allowed, suppressed)
	}

	sendBurst(20)
	clock.Store(clock.Load().Add(settings.BucketDuration()))
	sendBurst(9)

	// Output:
	// allowed: 16, suppressed: 4
	// resumed after 4 suppressed events
	// allowed: 8, suppressed: 1
}
