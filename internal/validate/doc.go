// Package validate assembles node-validation pipelines. Node types opt in
// by registering a validate hook (optionally with an auto-fix) or
// node-scoped pipeline plugins; every collected node additionally passes
// through the generic identity and published-definition checks.
package validate
