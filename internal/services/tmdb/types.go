package tmdb

// MediaType selects between the TV and movie endpoint families.
type MediaType string

const (
	MediaTypeShow  MediaType = "tv"
	MediaTypeMovie MediaType = "movie"
)

// Genre is a TMDB genre tag.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Details is the canonical metadata payload. TV and movie responses share
// this shape; fields the other family does not populate stay zero.
type Details struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Title            string  `json:"title"`
	OriginalName     string  `json:"original_name"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	Tagline          string  `json:"tagline"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	FirstAirDate     string  `json:"first_air_date"`
	ReleaseDate      string  `json:"release_date"`
	Status           string  `json:"status"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Runtime          int     `json:"runtime"`
	EpisodeRunTime   []int   `json:"episode_run_time"`
	Genres           []Genre `json:"genres"`
	OriginalLanguage string  `json:"original_language"`
	Networks         []struct {
		Name string `json:"name"`
	} `json:"networks"`
}

// DisplayTitle returns the populated one of Name (TV) and Title (movie).
func (d *Details) DisplayTitle() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Title
}

// AirDate returns the populated one of FirstAirDate (TV) and ReleaseDate (movie).
func (d *Details) AirDate() string {
	if d.FirstAirDate != "" {
		return d.FirstAirDate
	}
	return d.ReleaseDate
}

// Translation is one localized metadata variant.
type Translation struct {
	ISO3166 string `json:"iso_3166_1"`
	ISO639  string `json:"iso_639_1"`
	Data    struct {
		Name     string `json:"name"`
		Title    string `json:"title"`
		Overview string `json:"overview"`
		Tagline  string `json:"tagline"`
	} `json:"data"`
}

// Title returns the populated localized title of a translation.
func (t Translation) Title() string {
	if t.Data.Name != "" {
		return t.Data.Name
	}
	return t.Data.Title
}

type translationsResponse struct {
	Translations []Translation `json:"translations"`
}

// Video is one trailer/teaser/clip entry.
type Video struct {
	Site        string `json:"site"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Official    bool   `json:"official"`
	PublishedAt string `json:"published_at"`
}

type videosResponse struct {
	Results []Video `json:"results"`
}

// CastMember is one aggregated cast credit. TV aggregate credits report
// characters under Roles; movie credits use the flat Character field.
type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
	Character   string `json:"character"`
	Order       int    `json:"order"`
	Roles       []struct {
		Character string `json:"character"`
	} `json:"roles"`
}

// CharacterName returns the first known character for the credit.
func (m CastMember) CharacterName() string {
	if m.Character != "" {
		return m.Character
	}
	if len(m.Roles) > 0 {
		return m.Roles[0].Character
	}
	return ""
}

type creditsResponse struct {
	Cast []CastMember `json:"cast"`
}

// ExternalIDs carries cross-reference identifiers for other catalogs.
type ExternalIDs struct {
	IMDBID string `json:"imdb_id"`
	TVDBID int64  `json:"tvdb_id"`
}

// Provider is one watch provider offer.
type Provider struct {
	ProviderID      int64  `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	LogoPath        string `json:"logo_path"`
	DisplayPriority int    `json:"display_priority"`
}

// RegionProviders groups provider offers for one market.
type RegionProviders struct {
	Link     string     `json:"link"`
	Flatrate []Provider `json:"flatrate"`
	Free     []Provider `json:"free"`
	Ads      []Provider `json:"ads"`
	Rent     []Provider `json:"rent"`
	Buy      []Provider `json:"buy"`
}

type watchProvidersResponse struct {
	Results map[string]RegionProviders `json:"results"`
}

type contentRatingsResponse struct {
	Results []struct {
		ISO3166 string `json:"iso_3166_1"`
		Rating  string `json:"rating"`
	} `json:"results"`
}

type releaseDatesResponse struct {
	Results []struct {
		ISO3166      string `json:"iso_3166_1"`
		ReleaseDates []struct {
			Certification string `json:"certification"`
		} `json:"release_dates"`
	} `json:"results"`
}

// Recommendation is one popularity-ranked recommendation entry.
type Recommendation struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Title    string  `json:"title"`
	GenreIDs []int64 `json:"genre_ids"`
}

type recommendationsResponse struct {
	Results []Recommendation `json:"results"`
}
