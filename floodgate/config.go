/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-floodgate/config"
)

const cfgDefaultKeyPrefix = "floodgate"

const (
	cfgKeyBucketDuration           = "bucketDuration"
	cfgKeyWindowSize               = "windowSize"
	cfgKeyBucketSendLimit          = "bucketSendLimit"
	cfgKeySpilloverThreshold       = "spilloverThreshold"
	cfgKeyAttritionLogBase         = "attritionLogBase"
	cfgKeyAttritionFloor           = "attritionFloor"
	cfgKeyInverseAttritionDeltaMin = "inverseAttritionDeltaMin"
	cfgKeyCleanupCooldown          = "cleanupCooldown"
	cfgKeyStorageStrategy          = "storage.strategy"
	cfgKeyStorageCleanupEnabled    = "storage.cleanupEnabled"
)

// Default values.
const (
	DefaultBucketDuration           = 5 * time.Second
	DefaultWindowSize               = 5
	DefaultBucketSendLimit          = 8
	DefaultSpilloverThreshold       = 16
	DefaultAttritionLogBase         = 2
	DefaultAttritionFloor           = 0
	DefaultInverseAttritionDeltaMin = -1
	DefaultCleanupCooldown          = 30 * time.Second
)

// StorageStrategy defines possible strategies of keeping and cleaning up actors.
type StorageStrategy string

// Storage strategies.
const (
	StorageStrategySwapMap   StorageStrategy = "swap_map"
	StorageStrategyQueuedMap StorageStrategy = "queued_map"
)

var availableStorageStrategies = []string{string(StorageStrategySwapMap), string(StorageStrategyQueuedMap)}

// Config represents a set of configuration parameters for throttling.
type Config struct {
	// BucketDuration is the time span of a single bucket.
	BucketDuration time.Duration `mapstructure:"bucketDuration" yaml:"bucketDuration" json:"bucketDuration"`

	// WindowSize is the number of buckets in the sliding window.
	WindowSize int `mapstructure:"windowSize" yaml:"windowSize" json:"windowSize"`

	// BucketSendLimit is the number of events allowed per bucket when the actor has no attrition.
	BucketSendLimit int64 `mapstructure:"bucketSendLimit" yaml:"bucketSendLimit" json:"bucketSendLimit"`

	// SpilloverThreshold is the number of events allowed over the whole window while attrition is zero.
	SpilloverThreshold int64 `mapstructure:"spilloverThreshold" yaml:"spilloverThreshold" json:"spilloverThreshold"`

	AttritionLogBase         int   `mapstructure:"attritionLogBase" yaml:"attritionLogBase" json:"attritionLogBase"`
	AttritionFloor           int64 `mapstructure:"attritionFloor" yaml:"attritionFloor" json:"attritionFloor"`
	InverseAttritionDeltaMin int64 `mapstructure:"inverseAttritionDeltaMin" yaml:"inverseAttritionDeltaMin" json:"inverseAttritionDeltaMin"`

	// CleanupCooldown is the delay after a cleanup pass before the next one may be triggered.
	CleanupCooldown time.Duration `mapstructure:"cleanupCooldown" yaml:"cleanupCooldown" json:"cleanupCooldown"`

	Storage StorageConfig `mapstructure:"storage" yaml:"storage" json:"storage"`

	keyPrefix string
}

// StorageConfig is a configuration for actors storage.
type StorageConfig struct {
	Strategy       StorageStrategy `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	CleanupEnabled bool            `mapstructure:"cleanupEnabled" yaml:"cleanupEnabled" json:"cleanupEnabled"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Key prefix is used by config.Loader, "floodgate" is used if it's empty.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		BucketDuration:           DefaultBucketDuration,
		WindowSize:               DefaultWindowSize,
		BucketSendLimit:          DefaultBucketSendLimit,
		SpilloverThreshold:       DefaultSpilloverThreshold,
		AttritionLogBase:         DefaultAttritionLogBase,
		AttritionFloor:           DefaultAttritionFloor,
		InverseAttritionDeltaMin: DefaultInverseAttritionDeltaMin,
		CleanupCooldown:          DefaultCleanupCooldown,
		Storage: StorageConfig{
			Strategy:       StorageStrategySwapMap,
			CleanupEnabled: true,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for throttling in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBucketDuration, DefaultBucketDuration.String())
	dp.SetDefault(cfgKeyWindowSize, DefaultWindowSize)
	dp.SetDefault(cfgKeyBucketSendLimit, DefaultBucketSendLimit)
	dp.SetDefault(cfgKeySpilloverThreshold, DefaultSpilloverThreshold)
	dp.SetDefault(cfgKeyAttritionLogBase, DefaultAttritionLogBase)
	dp.SetDefault(cfgKeyAttritionFloor, DefaultAttritionFloor)
	dp.SetDefault(cfgKeyInverseAttritionDeltaMin, DefaultInverseAttritionDeltaMin)
	dp.SetDefault(cfgKeyCleanupCooldown, DefaultCleanupCooldown.String())
	dp.SetDefault(cfgKeyStorageStrategy, string(StorageStrategySwapMap))
	dp.SetDefault(cfgKeyStorageCleanupEnabled, true)
}

// Set sets throttling configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.BucketDuration, err = dp.GetDuration(cfgKeyBucketDuration); err != nil {
		return err
	}
	if c.WindowSize, err = dp.GetInt(cfgKeyWindowSize); err != nil {
		return err
	}
	if c.BucketSendLimit, err = dp.GetInt64(cfgKeyBucketSendLimit); err != nil {
		return err
	}
	if c.SpilloverThreshold, err = dp.GetInt64(cfgKeySpilloverThreshold); err != nil {
		return err
	}
	if c.AttritionLogBase, err = dp.GetInt(cfgKeyAttritionLogBase); err != nil {
		return err
	}
	if c.AttritionFloor, err = dp.GetInt64(cfgKeyAttritionFloor); err != nil {
		return err
	}
	if c.InverseAttritionDeltaMin, err = dp.GetInt64(cfgKeyInverseAttritionDeltaMin); err != nil {
		return err
	}
	if c.CleanupCooldown, err = dp.GetDuration(cfgKeyCleanupCooldown); err != nil {
		return err
	}

	var strategy string
	if strategy, err = dp.GetStringFromSet(cfgKeyStorageStrategy, availableStorageStrategies, true); err != nil {
		return err
	}
	c.Storage.Strategy = StorageStrategy(strings.ToLower(strategy))
	if c.Storage.CleanupEnabled, err = dp.GetBool(cfgKeyStorageCleanupEnabled); err != nil {
		return err
	}

	return c.validate(dp.WrapKeyErr)
}

// Validate checks that the configuration values are consistent.
func (c *Config) Validate() error {
	return c.validate(config.WrapKeyErr)
}

func (c *Config) validate(wrapKeyErr func(key string, err error) error) error {
	switch {
	case c.BucketDuration <= 0:
		return wrapKeyErr(cfgKeyBucketDuration, fmt.Errorf("must be positive, got %s", c.BucketDuration))
	case c.WindowSize <= 0:
		return wrapKeyErr(cfgKeyWindowSize, fmt.Errorf("must be positive, got %d", c.WindowSize))
	case c.BucketSendLimit <= 0:
		return wrapKeyErr(cfgKeyBucketSendLimit, fmt.Errorf("must be positive, got %d", c.BucketSendLimit))
	case c.SpilloverThreshold <= 0:
		return wrapKeyErr(cfgKeySpilloverThreshold, fmt.Errorf("must be positive, got %d", c.SpilloverThreshold))
	case c.AttritionLogBase <= 1:
		return wrapKeyErr(cfgKeyAttritionLogBase, fmt.Errorf("must be greater than 1, got %d", c.AttritionLogBase))
	case c.AttritionFloor < 0:
		return wrapKeyErr(cfgKeyAttritionFloor, fmt.Errorf("cannot be negative, got %d", c.AttritionFloor))
	case c.InverseAttritionDeltaMin > -1:
		return wrapKeyErr(cfgKeyInverseAttritionDeltaMin, fmt.Errorf("must be -1 or less, got %d", c.InverseAttritionDeltaMin))
	case c.InverseAttritionDeltaMin < c.minInverseAttritionDeltaMin():
		return wrapKeyErr(cfgKeyInverseAttritionDeltaMin, fmt.Errorf(
			"must be %d (-windowSize*bucketSendLimit) or more, got %d", c.minInverseAttritionDeltaMin(), c.InverseAttritionDeltaMin))
	case c.CleanupCooldown < 0:
		return wrapKeyErr(cfgKeyCleanupCooldown, fmt.Errorf("cannot be negative, got %s", c.CleanupCooldown))
	}
	switch c.Storage.Strategy {
	case StorageStrategySwapMap, StorageStrategyQueuedMap, "":
	default:
		return wrapKeyErr(cfgKeyStorageStrategy, fmt.Errorf("unknown strategy %q", c.Storage.Strategy))
	}
	return nil
}

// minInverseAttritionDeltaMin bounds how fast the attrition may grow in a single rollover.
func (c *Config) minInverseAttritionDeltaMin() int64 {
	return -int64(c.WindowSize) * c.BucketSendLimit
}
