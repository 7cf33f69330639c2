// Package syncer coordinates trending sync runs: the Coordinator turns one
// upstream trending fetch into a job with queued per-entity tasks, and the
// Processor drains pending tasks through the enrichment pipeline under a
// bounded concurrency limit.
package syncer
