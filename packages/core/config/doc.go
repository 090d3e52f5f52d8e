// Package config handles configuration loading and management for hitboard.
//
// It provides functionality for:
//   - Loading configuration from hitboard.yaml or .hitboard.yaml files
//   - Default configuration values
//   - Environment variable overrides (PORT, POSTMAN_API_KEY, ...)
//   - Selecting the collection source once, as a LocalSource or RemoteSource
package config
