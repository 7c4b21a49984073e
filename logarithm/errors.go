/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logarithm

import (
	"errors"
	"fmt"
)

// ErrInvalidBase is returned when a logarithm table is requested for a base that is not greater than 1.
var ErrInvalidBase = errors.New("logarithm base must be greater than 1")

// ConfigError describes an invalid logarithm table configuration.
type ConfigError struct {
	Base int
	Err  error
}

// Error returns a string representation of the error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid logarithm base %d: %v", e.Base, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
