// Package scene models the host application's scene graph as an opaque
// key-value surface: nodes with string parameters, per-node user data, an
// editability flag, and stage reference lists. Snapshots round-trip through
// JSON so the CLI can operate without a live host session.
package scene
