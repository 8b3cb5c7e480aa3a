package reporting

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieshelf/movieshelf/internal/config"
)

type captured struct {
	mu     sync.Mutex
	events []*sentrygo.Event
}

func (c *captured) beforeSend(event *sentrygo.Event, _ *sentrygo.EventHint) *sentrygo.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil // never leaves the process
}

func (c *captured) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newCapturingReporter(t *testing.T) (*Reporter, *captured) {
	t.Helper()
	c := &captured{}
	r, err := NewWithOptions(sentrygo.ClientOptions{
		Dsn:         "https://public@sentry.example.com/1",
		Environment: "test",
		BeforeSend:  c.beforeSend,
	}, zerolog.Nop())
	require.NoError(t, err)
	return r, c
}

func TestNew_DisabledWithoutDSN(t *testing.T) {
	r, err := New(config.ReportingConfig{Environment: "local"}, "dev", zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, r.Enabled())

	// No-ops must not panic.
	r.CaptureError(errors.New("boom"), nil)
	r.Close()
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(config.ReportingConfig{SentryDSN: "::not a dsn"}, "dev", zerolog.Nop())
	assert.Error(t, err)
}

func TestReporter_CaptureErrorTags(t *testing.T) {
	r, c := newCapturingReporter(t)

	r.CaptureError(errors.New("quota exceeded"), map[string]string{"component": "favourites", "op": "save"})

	require.Equal(t, 1, c.len())
	ev := c.events[0]
	assert.Equal(t, "favourites", ev.Tags["component"])
	assert.Equal(t, "save", ev.Tags["op"])
	assert.Equal(t, sentrygo.LevelError, ev.Level)
	require.NotEmpty(t, ev.Exception)
	assert.Equal(t, "quota exceeded", ev.Exception[0].Value)
}

func TestReporter_MiddlewareReportsPanics(t *testing.T) {
	r, c := newCapturingReporter(t)

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = echo.NewHTTPError(http.StatusInternalServerError)
				}
			}()
			return next(ctx)
		}
	})
	e.Use(r.Middleware())
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, c.len())
}

func TestReporter_DisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(Disabled().Middleware())
	e.GET("/ok", func(ctx echo.Context) error { return ctx.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
