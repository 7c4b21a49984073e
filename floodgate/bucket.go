/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

// TimeBucket is a fixed time span slot of the actor's sliding window.
type TimeBucket struct {
	Received   int64
	Disallowed int64
	Start      int64 // bucket-aligned timestamp in nanoseconds
	Attrition  int64 // attrition at the moment the bucket was opened
	SendLimit  int64
	Valid      bool
}

// init reuses the slot for a new bucket starting at ts.
func (b *TimeBucket) init(ts, attrition int64, s *Settings) {
	b.Received = 0
	b.Disallowed = 0
	b.Start = ts
	b.Attrition = attrition
	b.SendLimit = s.sendLimit(attrition)
	b.Valid = true
}

func (b *TimeBucket) invalidate() {
	b.Valid = false
}
