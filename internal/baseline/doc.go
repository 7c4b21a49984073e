/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package baseline provides reference rate limiters that share one interface with floodgate,
// so their suppression behavior can be compared on the same synthetic traffic.
// All limiters read time from an injected clock, which lets the traffic be replayed on a virtual timeline.
package baseline
