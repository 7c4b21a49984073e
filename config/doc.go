/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration values for floodgate components.
//
// Values are read through the DataProvider abstraction (YAML/JSON files, readers, environment variables)
// and applied to objects implementing the Config interface by Loader.
// Defaults are registered first (SetProviderDefaults) and then the final values are set (Set),
// so every parameter has a well-defined value even if it's absent in the source.
package config
