// Package tmdb implements The Movie Database API client used for canonical
// metadata: details, translations, videos, credits, external ids, watch
// providers, content ratings, and popularity-based recommendations.
package tmdb
