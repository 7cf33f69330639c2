// Package omdb implements the OMDb critic-rating aggregator client, keyed by
// IMDb id. The client is constructed in a disabled state when no API key is
// configured and callers skip it silently.
package omdb
