package startup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieshelf/movieshelf/internal/metadata/omdb"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		MaxAttempts:  3,
		Multiplier:   2,
	}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dns", &net.DNSError{Err: "no such host", Name: "www.omdbapi.com"}, true},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), true},
		{"timeout text", errors.New("Client.Timeout exceeded while awaiting headers"), true},
		{"other", errors.New("invalid API key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}

func TestWithRetry_SucceedsAfterNetworkErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "test", fastConfig(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnNonNetworkError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "test", fastConfig(), func(context.Context) error {
		calls++
		return errors.New("invalid API key")
	}, zerolog.Nop())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "test", fastConfig(), func(context.Context) error {
		calls++
		return errors.New("i/o timeout")
	}, zerolog.Nop())

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.InitialDelay = time.Hour

	calls := 0
	err := WithRetry(ctx, "test", cfg, func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	}, zerolog.Nop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

type testerFunc func(ctx context.Context) error

func (f testerFunc) Test(ctx context.Context) error { return f(ctx) }

func TestCheckProvider_RetriesProviderNetworkErrors(t *testing.T) {
	calls := 0
	err := CheckProvider(context.Background(), testerFunc(func(context.Context) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("%w: status 502", omdb.ErrNetwork)
		}
		return nil
	}), fastConfig(), zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCheckProvider_MissingKeyIsNotRetried(t *testing.T) {
	calls := 0
	err := CheckProvider(context.Background(), testerFunc(func(context.Context) error {
		calls++
		return omdb.ErrAPIKeyMissing
	}), fastConfig(), zerolog.Nop())

	assert.ErrorIs(t, err, omdb.ErrAPIKeyMissing)
	assert.Equal(t, 1, calls)
}
