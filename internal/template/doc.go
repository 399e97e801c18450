// Package template implements the named path patterns that tie scene files
// and publish outputs to tracking entities.
//
// A pattern is a path with {field} placeholders ("/jobs/{project}/assets/
// {asset_type}/{asset}/..."). Templates apply field maps to produce paths
// and match paths to recover field maps. The Resolver layers the tracking
// service on top: it derives a template's fields from a task ID, turns a
// scene file path back into a task ID, and discovers the next publish
// version by scanning the output directory.
package template
