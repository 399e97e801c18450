// Package rig attaches the cascading menu set to a scene node and keeps it
// consistent: template, asset and shot chains, context-aware selections,
// override cascades, and (for publish nodes) output path maintenance and
// the publish action itself.
//
// The two menu chains are declared statically, so a cascade is a single
// forward walk: regenerate the changed menu, then everything strictly after
// it, each menu consuming its predecessor's fresh selection. Which chain is
// active follows from the selected template and is re-evaluated at the
// start of every cascade.
package rig
