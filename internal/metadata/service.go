package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/config"
	"github.com/movieshelf/movieshelf/internal/metadata/mock"
	"github.com/movieshelf/movieshelf/internal/metadata/omdb"
	"github.com/movieshelf/movieshelf/internal/movie"
)

var ErrNoProvidersConfigured = errors.New("no metadata providers configured")

// Service fronts the active provider. It adds an optional result cache and
// lets dev mode swap the provider at runtime.
type Service struct {
	mu       sync.RWMutex
	provider Provider
	cache    *Cache
	logger   zerolog.Logger
}

// NewService builds the service from configuration: the real OMDb client,
// or the offline catalog when cfg.Mock is set.
func NewService(cfg config.OMDBConfig, logger zerolog.Logger) *Service {
	var provider Provider
	if cfg.Mock {
		provider = mock.NewOMDBClient(cfg.DefaultQuery)
	} else {
		provider = omdb.NewClient(cfg, logger)
	}

	var cache *Cache
	if cfg.CacheTTL > 0 {
		cache = NewCache(CacheConfig{TTL: time.Duration(cfg.CacheTTL) * time.Second})
	}

	return NewServiceWithProvider(provider, cache, logger)
}

// NewServiceWithProvider creates a service around an explicit provider.
// cache may be nil, which disables caching.
func NewServiceWithProvider(provider Provider, cache *Cache, logger zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		logger:   logger.With().Str("component", "metadata").Logger(),
	}
}

// SetProvider replaces the provider and drops cached results.
func (s *Service) SetProvider(provider Provider) {
	s.mu.Lock()
	s.provider = provider
	s.mu.Unlock()
	s.ClearCache()
	s.logger.Info().Str("provider", provider.Name()).Msg("Metadata provider changed")
}

func (s *Service) current() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// ProviderName returns the active provider's name.
func (s *Service) ProviderName() string {
	return s.current().Name()
}

// IsConfigured returns true if the active provider can serve requests.
func (s *Service) IsConfigured() bool {
	p := s.current()
	return p != nil && p.IsConfigured()
}

// Test checks connectivity to the active provider.
func (s *Service) Test(ctx context.Context) error {
	if !s.IsConfigured() {
		return ErrNoProvidersConfigured
	}
	return s.current().Test(ctx)
}

// Search returns the provider's results for query. An empty query is
// forwarded unchanged so the provider applies its default term.
func (s *Service) Search(ctx context.Context, query string) ([]movie.SearchResult, error) {
	if !s.IsConfigured() {
		return nil, ErrNoProvidersConfigured
	}

	cacheKey := "search:" + query
	if s.cache != nil {
		if results, ok := s.cache.GetSearchResults(cacheKey); ok {
			s.logger.Debug().Str("query", query).Msg("Search cache hit")
			return results, nil
		}
	}

	results, err := s.current().Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, results)
	}
	return results, nil
}

// GetDetail returns the full record for imdbID.
func (s *Service) GetDetail(ctx context.Context, imdbID string) (*movie.Detail, error) {
	if !s.IsConfigured() {
		return nil, ErrNoProvidersConfigured
	}

	cacheKey := "detail:" + imdbID
	if s.cache != nil {
		if d, ok := s.cache.GetDetail(cacheKey); ok {
			s.logger.Debug().Str("imdbId", imdbID).Msg("Detail cache hit")
			return d, nil
		}
	}

	d, err := s.current().GetDetail(ctx, imdbID)
	if err != nil {
		return nil, fmt.Errorf("get detail failed: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, d)
	}

	s.logger.Debug().Str("imdbId", imdbID).Str("title", d.Title).Msg("Got movie details")
	return d, nil
}

// ClearCache drops all cached results.
func (s *Service) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// CacheEnabled reports whether results are cached.
func (s *Service) CacheEnabled() bool {
	return s.cache != nil
}

// Close stops background work.
func (s *Service) Close() {
	if s.cache != nil {
		s.cache.Stop()
	}
}
