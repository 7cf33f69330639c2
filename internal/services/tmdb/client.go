package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API defines the TMDB operations the enrichment pipeline consumes.
type API interface {
	Details(ctx context.Context, media MediaType, id int64) (*Details, error)
	Translation(ctx context.Context, media MediaType, id int64, language string) (*Translation, error)
	Videos(ctx context.Context, media MediaType, id int64) ([]Video, error)
	Credits(ctx context.Context, media MediaType, id int64) ([]CastMember, error)
	ExternalIDs(ctx context.Context, media MediaType, id int64) (*ExternalIDs, error)
	WatchProviders(ctx context.Context, media MediaType, id int64) (map[string]RegionProviders, error)
	ContentRating(ctx context.Context, media MediaType, id int64, region string) (string, error)
	Recommendations(ctx context.Context, media MediaType, id int64) ([]Recommendation, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
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

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Details fetches canonical metadata for an entity.
func (c *Client) Details(ctx context.Context, media MediaType, id int64) (*Details, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	var details Details
	params := url.Values{}
	if c.language != "" {
		params.Set("language", c.language)
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d", media, id), params, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// Translation returns the localized variant for language ("de-DE" style tags
// match on the language part), or nil when none exists.
func (c *Client) Translation(ctx context.Context, media MediaType, id int64, language string) (*Translation, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	wanted := strings.ToLower(strings.TrimSpace(language))
	if idx := strings.IndexByte(wanted, '-'); idx > 0 {
		wanted = wanted[:idx]
	}
	var payload translationsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/translations", media, id), nil, &payload); err != nil {
		return nil, err
	}
	for _, translation := range payload.Translations {
		if strings.ToLower(translation.ISO639) == wanted {
			return &translation, nil
		}
	}
	return nil, nil
}

// Videos fetches trailer/teaser entries for an entity.
func (c *Client) Videos(ctx context.Context, media MediaType, id int64) ([]Video, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	var payload videosResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/videos", media, id), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// Credits fetches the cast list: aggregate credits for TV, plain credits for
// movies.
func (c *Client) Credits(ctx context.Context, media MediaType, id int64) ([]CastMember, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	endpoint := "credits"
	if media == MediaTypeShow {
		endpoint = "aggregate_credits"
	}
	var payload creditsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/%s", media, id, endpoint), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Cast, nil
}

// ExternalIDs fetches cross-reference identifiers for other catalogs.
func (c *Client) ExternalIDs(ctx context.Context, media MediaType, id int64) (*ExternalIDs, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	var payload ExternalIDs
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/external_ids", media, id), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// WatchProviders fetches provider offers grouped by region code.
func (c *Client) WatchProviders(ctx context.Context, media MediaType, id int64) (map[string]RegionProviders, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	var payload watchProvidersResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/watch/providers", media, id), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// ContentRating returns the certification for one region, or empty when the
// region has none. TV uses content_ratings; movies use release_dates.
func (c *Client) ContentRating(ctx context.Context, media MediaType, id int64, region string) (string, error) {
	if id <= 0 {
		return "", errors.New("tmdb id must be positive")
	}
	region = strings.ToUpper(strings.TrimSpace(region))

	if media == MediaTypeShow {
		var payload contentRatingsResponse
		if err := c.getJSON(ctx, fmt.Sprintf("/tv/%d/content_ratings", id), nil, &payload); err != nil {
			return "", err
		}
		for _, result := range payload.Results {
			if strings.EqualFold(result.ISO3166, region) {
				return result.Rating, nil
			}
		}
		return "", nil
	}

	var payload releaseDatesResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/movie/%d/release_dates", id), nil, &payload); err != nil {
		return "", err
	}
	for _, result := range payload.Results {
		if !strings.EqualFold(result.ISO3166, region) {
			continue
		}
		for _, release := range result.ReleaseDates {
			if release.Certification != "" {
				return release.Certification, nil
			}
		}
	}
	return "", nil
}

// Recommendations fetches popularity-ranked recommendations.
func (c *Client) Recommendations(ctx context.Context, media MediaType, id int64) ([]Recommendation, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	var payload recommendationsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/recommendations", media, id), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}
