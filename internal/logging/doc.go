// Package logging configures slog for stagehand and provides the shared
// attribute helpers used across the CLI and the pipeline packages.
package logging
