// Command stagehand is the CLI boundary for the tracking integration:
// context resolution, cascading menu inspection, node validation, USD
// publishing, and the local publish ledger, all driven from a scene
// snapshot file.
package main
