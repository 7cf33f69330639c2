package omdb

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

// CriticRatings is the parsed aggregate: IMDb rating and votes plus the
// Metacritic score. Zero fields mean the source did not report them.
type CriticRatings struct {
	IMDBRating float64
	IMDBVotes  int64
	Metascore  int
}

// API defines the OMDb operations the enrichment pipeline consumes.
type API interface {
	Enabled() bool
	RatingsByIMDBID(ctx context.Context, imdbID string) (*CriticRatings, error)
}

// Client provides access to the OMDb API.
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

// New creates an OMDb client. An empty API key yields a disabled client
// rather than an error so callers can degrade silently.
func New(apiKey, baseURL string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type payload struct {
	IMDBRating string `json:"imdbRating"`
	IMDBVotes  string `json:"imdbVotes"`
	Metascore  string `json:"Metascore"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// RatingsByIMDBID fetches the critic rating aggregate for one IMDb id.
func (c *Client) RatingsByIMDBID(ctx context.Context, imdbID string) (*CriticRatings, error) {
	if !c.Enabled() {
		return nil, errors.New("omdb api key not configured")
	}
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, errors.New("imdb id must not be empty")
	}

	endpoint, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("parse omdb url: %w", err)
	}
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("i", imdbID)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omdb returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var parsed payload
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode omdb response: %w", err)
	}
	if !strings.EqualFold(parsed.Response, "True") {
		return nil, fmt.Errorf("omdb lookup failed for %s: %s", imdbID, parsed.Error)
	}

	return parseRatings(parsed), nil
}

// OMDb reports missing values as the literal string "N/A"; those parse to
// zero fields rather than errors.
func parseRatings(parsed payload) *CriticRatings {
	ratings := &CriticRatings{}
	if value, err := strconv.ParseFloat(parsed.IMDBRating, 64); err == nil {
		ratings.IMDBRating = value
	}
	votes := strings.ReplaceAll(parsed.IMDBVotes, ",", "")
	if value, err := strconv.ParseInt(votes, 10, 64); err == nil {
		ratings.IMDBVotes = value
	}
	if value, err := strconv.Atoi(parsed.Metascore); err == nil {
		ratings.Metascore = value
	}
	return ratings
}
