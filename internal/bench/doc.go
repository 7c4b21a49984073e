/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package bench replays synthetic traffic against floodgate and the reference limiters on a virtual clock
// and reports how many events each of them allowed and suppressed.
package bench
