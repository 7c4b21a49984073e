/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bench

import (
	"fmt"
	"strings"
	"time"
)

// Scenario describes synthetic traffic: events are sent at a constant rate
// and distributed round-robin among the actors.
type Scenario struct {
	Name            string
	Actors          int
	EventsPerSecond int
	Buckets         int
}

// DefaultScenarios returns the built-in scenarios.
// Short ones send a flood of events during a few buckets, long ones send a trickle during many buckets.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "one_actor", Actors: 1, EventsPerSecond: 10000, Buckets: 10},
		{Name: "ten_actors", Actors: 10, EventsPerSecond: 10000, Buckets: 10},
		{Name: "hundred_actors", Actors: 100, EventsPerSecond: 10000, Buckets: 10},
		{Name: "long_one_actor", Actors: 1, EventsPerSecond: 10, Buckets: 10000},
		{Name: "long_ten_actors", Actors: 10, EventsPerSecond: 10, Buckets: 10000},
		{Name: "long_hundred_actors", Actors: 100, EventsPerSecond: 10, Buckets: 10000},
	}
}

// FindScenarios returns the built-in scenarios with the given names.
// All scenarios are returned if names are empty.
func FindScenarios(names []string) ([]Scenario, error) {
	all := DefaultScenarios()
	if len(names) == 0 {
		return all, nil
	}
	res := make([]Scenario, 0, len(names))
	for _, name := range names {
		found := false
		for _, sc := range all {
			if strings.EqualFold(sc.Name, name) {
				res = append(res, sc)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
	}
	return res, nil
}

// maxEventsPerSecond keeps the interval between events at one nanosecond at least.
const maxEventsPerSecond = int64(time.Second)

// Validate checks the scenario parameters.
func (s Scenario) Validate() error {
	if s.Actors <= 0 {
		return fmt.Errorf("scenario %q: actors must be positive, got %d", s.Name, s.Actors)
	}
	if s.EventsPerSecond <= 0 {
		return fmt.Errorf("scenario %q: events per second must be positive, got %d", s.Name, s.EventsPerSecond)
	}
	if int64(s.EventsPerSecond) > maxEventsPerSecond {
		return fmt.Errorf("scenario %q: events per second must be %d or less, got %d",
			s.Name, maxEventsPerSecond, s.EventsPerSecond)
	}
	if s.Buckets <= 0 {
		return fmt.Errorf("scenario %q: buckets must be positive, got %d", s.Name, s.Buckets)
	}
	return nil
}

// Interval returns the virtual time between two consecutive events.
func (s Scenario) Interval() time.Duration {
	return time.Second / time.Duration(s.EventsPerSecond)
}

// Calls returns the number of events sent during the scenario for the given bucket duration.
func (s Scenario) Calls(bucketDuration time.Duration) int64 {
	return int64(s.Buckets) * int64(bucketDuration/s.Interval())
}
