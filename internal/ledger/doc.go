// Package ledger records publishes in a local SQLite database so a site
// can audit what left each workstation, independent of the remote
// tracking service.
package ledger
