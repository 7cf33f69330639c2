// Package services holds shared infrastructure for the external catalog
// clients: sentinel error classification, error wrapping with component
// context, and context annotation helpers used by structured logging.
package services
