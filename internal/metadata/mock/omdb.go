// Package mock provides an offline OMDb stand-in for developer mode.
package mock

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/movieshelf/movieshelf/internal/metadata/omdb"
	"github.com/movieshelf/movieshelf/internal/movie"
)

// OMDBClient serves a fixed catalog with the same error semantics as the
// real client.
type OMDBClient struct {
	defaultQuery string
	catalog      []movie.Detail
}

//go:embed catalog.yaml
var catalogYAML []byte

// NewOMDBClient creates a mock client serving the embedded catalog.
func NewOMDBClient(defaultQuery string) *OMDBClient {
	catalog, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return NewOMDBClientWithCatalog(defaultQuery, catalog)
}

// NewOMDBClientWithCatalog creates a mock client serving catalog.
func NewOMDBClientWithCatalog(defaultQuery string, catalog []movie.Detail) *OMDBClient {
	if defaultQuery == "" {
		defaultQuery = "top"
	}
	return &OMDBClient{defaultQuery: defaultQuery, catalog: catalog}
}

// ParseCatalog decodes a YAML list of detail records.
func ParseCatalog(data []byte) ([]movie.Detail, error) {
	var catalog []movie.Detail
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse mock catalog: %w", err)
	}
	return catalog, nil
}

// Catalog returns a copy of the served records.
func (c *OMDBClient) Catalog() []movie.Detail {
	out := make([]movie.Detail, len(c.catalog))
	copy(out, c.catalog)
	return out
}

func (c *OMDBClient) Name() string {
	return "omdb-mock"
}

func (c *OMDBClient) IsConfigured() bool {
	return true
}

func (c *OMDBClient) Test(ctx context.Context) error {
	return nil
}

// Search matches titles case-insensitively. The default term returns the
// whole catalog, standing in for the provider's "top" listing.
func (c *OMDBClient) Search(ctx context.Context, query string) ([]movie.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if query == "" {
		query = c.defaultQuery
	}

	results := []movie.SearchResult{}
	needle := strings.ToLower(query)
	for _, d := range c.catalog {
		if strings.EqualFold(query, c.defaultQuery) || strings.Contains(strings.ToLower(d.Title), needle) {
			results = append(results, d.Summary())
		}
	}
	return results, nil
}

func (c *OMDBClient) GetDetail(ctx context.Context, imdbID string) (*movie.Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := range c.catalog {
		if c.catalog[i].ImdbID == imdbID {
			d := c.catalog[i]
			return &d, nil
		}
	}
	return nil, &omdb.ProviderError{Message: "Incorrect IMDb ID."}
}

