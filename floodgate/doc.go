/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package floodgate provides an in-process adaptive throttle for streams of keyed events.
//
// Every key (actor) owns an ActorThrottle that keeps a short bucketed sliding window of its own traffic.
// An actor that keeps overflowing its per-bucket allowance accumulates attrition,
// and the per-bucket send limit shrinks logarithmically with it.
// Once the actor behaves well again, attrition decays and the limit is restored.
//
// MultiActorThrottle creates actors lazily for arbitrary comparable keys
// and removes idle ones in the background using one of the Storage strategies.
package floodgate
