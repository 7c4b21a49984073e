/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides structured logging used across floodgate components.
// It wraps github.com/ssgreg/logf and supports JSON and text formats with stdout, stderr or rotated file output.
package log
