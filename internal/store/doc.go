// Package store manages trawl's SQLite persistence: media entities with all
// their sub-records, watcher snapshot time series, related links, airings,
// and the sync job/task queue. Writes for one entity happen inside a single
// transaction so an entity's record set stays internally consistent.
package store
