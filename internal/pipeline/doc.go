// Package pipeline is the plugin framework behind validation and
// publishing. A run moves through three stage classes, collect → validate →
// extract, expressed as float orders so plugins can nudge themselves within
// a stage. Collectors create instances tagged with family labels (the
// catch-all "generic" label is always present); validators check instances
// and may carry an optional auto-fix; extractors perform the side-effecting
// publish, but only for instances whose validators all passed.
package pipeline
