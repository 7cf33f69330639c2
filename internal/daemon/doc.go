// Package daemon runs the recurring sync schedule: trending ingests, the
// calendar sync, and the backfill sweeps, each on its own configured
// interval, with single-instance enforcement through a lock file.
package daemon
