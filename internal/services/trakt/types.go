package trakt

import "time"

// IDs carries the cross-reference identifiers Trakt knows for an entity.
type IDs struct {
	Trakt int64  `json:"trakt"`
	Slug  string `json:"slug"`
	TVDB  int64  `json:"tvdb,omitempty"`
	IMDB  string `json:"imdb"`
	TMDB  int64  `json:"tmdb"`
}

// Show is the Trakt show stub embedded in list responses.
type Show struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// Movie is the Trakt movie stub embedded in list responses.
type Movie struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// TrendingShow is one ranked entry of the trending shows list.
type TrendingShow struct {
	Watchers int64 `json:"watchers"`
	Show     Show  `json:"show"`
}

// TrendingMovie is one ranked entry of the trending movies list.
type TrendingMovie struct {
	Watchers int64 `json:"watchers"`
	Movie    Movie `json:"movie"`
}

// Ratings is the community rating aggregate with its 1-10 vote histogram.
type Ratings struct {
	Rating       float64          `json:"rating"`
	Votes        int64            `json:"votes"`
	Distribution map[string]int64 `json:"distribution"`
}

// Episode identifies a single episode within a calendar entry.
type Episode struct {
	Season int    `json:"season"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	IDs    IDs    `json:"ids"`
}

// CalendarEntry is one upcoming airing within a calendar window.
type CalendarEntry struct {
	FirstAired time.Time `json:"first_aired"`
	Episode    Episode   `json:"episode"`
	Show       Show      `json:"show"`
}
