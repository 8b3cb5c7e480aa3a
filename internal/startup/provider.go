package startup

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/metadata/omdb"
)

// ProviderTester is anything that can probe the metadata provider.
type ProviderTester interface {
	Test(ctx context.Context) error
}

// CheckProvider probes the provider at startup, retrying transport failures
// with backoff. The result is informational; the service starts either way.
func CheckProvider(ctx context.Context, p ProviderTester, cfg RetryConfig, logger zerolog.Logger) error {
	if cfg.Retryable == nil {
		cfg.Retryable = func(err error) bool {
			return errors.Is(err, omdb.ErrNetwork) || IsNetworkError(err)
		}
	}

	err := WithRetry(ctx, "omdb connectivity check", cfg, p.Test, logger)
	switch {
	case err == nil:
		logger.Info().Msg("OMDb provider reachable")
	case errors.Is(err, omdb.ErrAPIKeyMissing):
		logger.Warn().Msg("OMDb API key not configured; set API_KEY or omdb.api_key")
	default:
		logger.Warn().Err(err).Msg("OMDb provider check failed; searches may fail until it recovers")
	}
	return err
}
