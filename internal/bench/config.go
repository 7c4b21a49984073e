/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bench

import (
	"fmt"
	"time"

	"github.com/acronis/go-floodgate/config"
)

const cfgDefaultKeyPrefix = "bench"

const (
	cfgKeyScenarios   = "scenarios"
	cfgKeyLimiters    = "limiters"
	cfgKeyMaxCalls    = "maxCalls"
	cfgKeyConcurrency = "concurrency"
	cfgKeyTimeout     = "timeout"
)

// Default values.
const (
	DefaultConcurrency = 1
	DefaultTimeout     = 10 * time.Minute
)

// Config represents a set of configuration parameters for benchmark runs.
type Config struct {
	// Scenarios contains names of the scenarios to run. All built-in scenarios are run if it's empty.
	Scenarios []string `mapstructure:"scenarios" yaml:"scenarios" json:"scenarios"`

	// Limiters contains names of the limiters to compare. All limiters are used if it's empty.
	Limiters []string `mapstructure:"limiters" yaml:"limiters" json:"limiters"`

	// MaxCalls limits the number of events sent in every run. 0 means no limit.
	MaxCalls int64 `mapstructure:"maxCalls" yaml:"maxCalls" json:"maxCalls"`

	// Concurrency is the number of runs executed in parallel.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`

	// Timeout limits the wall time of all runs.
	Timeout config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Key prefix is used by config.Loader, "bench" is used if it's empty.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{Concurrency: DefaultConcurrency, Timeout: config.TimeDuration(DefaultTimeout)}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for benchmark runs in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyConcurrency, DefaultConcurrency)
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout.String())
}

// Set sets benchmark configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if err = dp.UnmarshalKey(cfgKeyScenarios, &c.Scenarios); err != nil {
		return err
	}
	if err = dp.UnmarshalKey(cfgKeyLimiters, &c.Limiters); err != nil {
		return err
	}

	if c.MaxCalls, err = dp.GetInt64(cfgKeyMaxCalls); err != nil {
		return err
	}
	if c.MaxCalls < 0 {
		return dp.WrapKeyErr(cfgKeyMaxCalls, fmt.Errorf("cannot be negative, got %d", c.MaxCalls))
	}

	if c.Concurrency, err = dp.GetInt(cfgKeyConcurrency); err != nil {
		return err
	}
	if c.Concurrency <= 0 {
		return dp.WrapKeyErr(cfgKeyConcurrency, fmt.Errorf("must be positive, got %d", c.Concurrency))
	}

	var timeout time.Duration
	if timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if timeout <= 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("must be positive, got %s", timeout))
	}
	c.Timeout = config.TimeDuration(timeout)

	return nil
}
