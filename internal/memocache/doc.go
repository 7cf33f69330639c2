// Package memocache provides per-run memoizing caches: a fixed-capacity LRU
// with optional TTL, and a fetch helper that combines cache lookup with the
// retry policy. Caches are scoped to one batch run and never shared across
// runs.
package memocache
