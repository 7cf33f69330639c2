// Package config loads, normalizes, and validates trawl's TOML configuration.
//
// Configuration is read from an explicit path, ./trawl.toml, or
// ~/.config/trawl/config.toml, in that order. API keys may also be supplied
// through the TRAKT_API_KEY, TMDB_API_KEY, and OMDB_API_KEY environment
// variables, which take precedence over file values.
package config
