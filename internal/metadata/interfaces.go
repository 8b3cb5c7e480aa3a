package metadata

import (
	"context"

	"github.com/movieshelf/movieshelf/internal/movie"
)

// Provider is a title search and lookup backend.
type Provider interface {
	Name() string
	IsConfigured() bool
	Test(ctx context.Context) error
	Search(ctx context.Context, query string) ([]movie.SearchResult, error)
	GetDetail(ctx context.Context, imdbID string) (*movie.Detail, error)
}
