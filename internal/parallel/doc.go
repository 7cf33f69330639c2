// Package parallel provides a bounded concurrent mapper: the single
// concurrency-control point for cross-entity work in the sync pipeline.
package parallel
