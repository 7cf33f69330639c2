package trakt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiVersion = "2"

// API defines the Trakt operations the sync jobs consume.
type API interface {
	TrendingShows(ctx context.Context, limit int) ([]TrendingShow, error)
	TrendingMovies(ctx context.Context, limit int) ([]TrendingMovie, error)
	ShowRatings(ctx context.Context, id string) (*Ratings, error)
	MovieRatings(ctx context.Context, id string) (*Ratings, error)
	RelatedShows(ctx context.Context, id string, limit int) ([]Show, error)
	RelatedMovies(ctx context.Context, id string, limit int) ([]Movie, error)
	CalendarShows(ctx context.Context, start time.Time, days int) ([]CalendarEntry, error)
}

// Client provides access to the Trakt API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Trakt client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("trakt api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("trakt base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// TrendingShows returns the ranked trending shows list with watcher counts.
func (c *Client) TrendingShows(ctx context.Context, limit int) ([]TrendingShow, error) {
	var entries []TrendingShow
	if err := c.getJSON(ctx, "/shows/trending", listParams(limit), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// TrendingMovies returns the ranked trending movies list with watcher counts.
func (c *Client) TrendingMovies(ctx context.Context, limit int) ([]TrendingMovie, error) {
	var entries []TrendingMovie
	if err := c.getJSON(ctx, "/movies/trending", listParams(limit), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ShowRatings fetches the community rating aggregate for a show. The id may
// be a Trakt id or slug.
func (c *Client) ShowRatings(ctx context.Context, id string) (*Ratings, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("show id must not be empty")
	}
	var ratings Ratings
	if err := c.getJSON(ctx, "/shows/"+url.PathEscape(id)+"/ratings", nil, &ratings); err != nil {
		return nil, err
	}
	return &ratings, nil
}

// MovieRatings fetches the community rating aggregate for a movie.
func (c *Client) MovieRatings(ctx context.Context, id string) (*Ratings, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("movie id must not be empty")
	}
	var ratings Ratings
	if err := c.getJSON(ctx, "/movies/"+url.PathEscape(id)+"/ratings", nil, &ratings); err != nil {
		return nil, err
	}
	return &ratings, nil
}

// RelatedShows returns shows similar to the given one, most similar first.
func (c *Client) RelatedShows(ctx context.Context, id string, limit int) ([]Show, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("show id must not be empty")
	}
	var shows []Show
	if err := c.getJSON(ctx, "/shows/"+url.PathEscape(id)+"/related", listParams(limit), &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

// RelatedMovies returns movies similar to the given one, most similar first.
func (c *Client) RelatedMovies(ctx context.Context, id string, limit int) ([]Movie, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("movie id must not be empty")
	}
	var movies []Movie
	if err := c.getJSON(ctx, "/movies/"+url.PathEscape(id)+"/related", listParams(limit), &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// CalendarShows returns episode airings for the window starting at start.
func (c *Client) CalendarShows(ctx context.Context, start time.Time, days int) ([]CalendarEntry, error) {
	if days < 1 {
		return nil, fmt.Errorf("calendar window must be >= 1 day, got %d", days)
	}
	path := fmt.Sprintf("/calendars/all/shows/%s/%d", start.Format("2006-01-02"), days)
	var entries []CalendarEntry
	if err := c.getJSON(ctx, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func listParams(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	return params
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse trakt url: %w", err)
	}
	if params != nil {
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.apiKey)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trakt %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode trakt response: %w", err)
	}
	return nil
}
