// Package tracking is the client surface for the production tracking
// service: entity listings used to populate menus, and the name/ID lookup
// calls the context resolver depends on. Lookup misses are zero values,
// never errors; only transport and configuration problems surface as errors.
package tracking
