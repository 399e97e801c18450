// Package publish assembles the USD publish pipeline for a publish rig:
// collect the node, validate context and references, write and register
// the output, then maintain the mode-specific aggregate layers.
package publish
