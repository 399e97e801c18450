// Package config loads and validates the stagehand TOML configuration.
package config
