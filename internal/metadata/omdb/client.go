package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/config"
	"github.com/movieshelf/movieshelf/internal/movie"
)

var (
	ErrAPIKeyMissing = errors.New("OMDb API key is not configured")
	ErrNotFound      = errors.New("not found on OMDb")
	ErrNetwork       = errors.New("OMDb request failed")
)

// FallbackMessage is shown when the provider gives no reason for a failure.
const FallbackMessage = "Unable to fetch movie details"

const responseTrue = "True"

// ProviderError is a well-formed provider response that signals failure.
// It matches ErrNotFound with errors.Is.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "OMDb: " + e.Message
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrNotFound
}

// Client is an OMDb API client.
type Client struct {
	httpClient   *http.Client
	config       config.OMDBConfig
	defaultQuery string
	logger       zerolog.Logger
}

// NewClient creates a new OMDb client.
func NewClient(cfg config.OMDBConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	defaultQuery := cfg.DefaultQuery
	if defaultQuery == "" {
		defaultQuery = "top"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		config:       cfg,
		defaultQuery: defaultQuery,
		logger:       logger.With().Str("component", "omdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "omdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity and the API key.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	// The Matrix
	_, err := c.GetDetail(ctx, "tt0133093")
	return err
}

// Search looks titles up by free text. An empty query is replaced with the
// configured default term. A response without a Search array yields an
// empty slice rather than an error.
func (c *Client) Search(ctx context.Context, query string) ([]movie.SearchResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	if query == "" {
		query = c.defaultQuery
	}

	params := url.Values{}
	params.Set("s", query)

	var body SearchResponse
	if err := c.get(ctx, params, &body); err != nil {
		c.logger.Error().Err(err).Str("query", query).Msg("search request failed")
		return nil, err
	}

	if body.Search == nil {
		if body.Error != "" {
			c.logger.Debug().Str("query", query).Str("error", body.Error).Msg("search returned no results")
		}
		return []movie.SearchResult{}, nil
	}

	results := make([]movie.SearchResult, 0, len(body.Search))
	for _, item := range body.Search {
		results = append(results, item.toResult())
	}

	c.logger.Debug().Str("query", query).Int("results", len(results)).Msg("search completed")
	return results, nil
}

// GetDetail fetches the full record for one title by IMDb ID.
func (c *Client) GetDetail(ctx context.Context, imdbID string) (*movie.Detail, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	if imdbID == "" {
		return nil, &ProviderError{Message: FallbackMessage}
	}

	params := url.Values{}
	params.Set("i", imdbID)

	var body Response
	if err := c.get(ctx, params, &body); err != nil {
		c.logger.Error().Err(err).Str("imdbId", imdbID).Msg("detail request failed")
		return nil, err
	}

	if body.Response != responseTrue {
		msg := body.Error
		if msg == "" {
			msg = FallbackMessage
		}
		c.logger.Warn().Str("error", msg).Str("imdbId", imdbID).Msg("OMDb returned error")
		return nil, &ProviderError{Message: msg}
	}

	return body.toDetail(), nil
}

// get issues one GET with params plus the API key and decodes the JSON body
// into out. The status code is not trusted on its own: the provider reports
// failures in the body, sometimes with a non-200 status.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	reqURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: invalid base URL: %v", ErrNetwork, err)
	}
	if reqURL.Path == "" {
		reqURL.Path = "/"
	}
	params.Set("apikey", c.config.APIKey)
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrNetwork, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
		}
		return fmt.Errorf("%w: failed to decode response: %v", ErrNetwork, err)
	}

	return nil
}
