// Package services holds the error taxonomy shared by the tracking,
// template, and pipeline packages.
package services
