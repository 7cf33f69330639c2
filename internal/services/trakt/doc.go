// Package trakt implements the Trakt API client: ranked trending lists with
// watcher counts, community ratings with vote distributions, similarity-based
// related entities, and the episode airing calendar.
package trakt
