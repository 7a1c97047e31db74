// Package config loads application configuration from RECORDKIT_* environment
// variables with sensible defaults, and validates the combination before the
// server starts.
package config
