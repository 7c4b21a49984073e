/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides implementation of log.FieldLogger that records entries for inspection in tests.
package logtest
