// Package enrich runs the per-entity enrichment pipeline: it turns a queued
// trending candidate into a fully populated catalog record by combining
// metadata, ratings, providers, and related titles from the upstream
// services, computing the derived trend metrics, and persisting the result
// in a single transaction.
package enrich
