// Package reporting sends storage and server failures to Sentry when a DSN
// is configured. Without one every method is a no-op.
package reporting

import (
	"fmt"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/config"
)

// FlushTime bounds how long Close waits for queued events.
const FlushTime = 2 * time.Second

// Reporter wraps a Sentry hub.
type Reporter struct {
	hub    *sentrygo.Hub
	logger zerolog.Logger
}

// New creates a reporter from configuration. An empty DSN gives a disabled
// reporter.
func New(cfg config.ReportingConfig, version string, logger zerolog.Logger) (*Reporter, error) {
	if cfg.SentryDSN == "" {
		return Disabled(), nil
	}
	return NewWithOptions(sentrygo.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          "movieshelf@" + version,
		AttachStacktrace: true,
	}, logger)
}

// NewWithOptions creates an enabled reporter with explicit client options.
func NewWithOptions(opts sentrygo.ClientOptions, logger zerolog.Logger) (*Reporter, error) {
	client, err := sentrygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to init sentry: %w", err)
	}

	r := &Reporter{
		hub:    sentrygo.NewHub(client, sentrygo.NewScope()),
		logger: logger.With().Str("component", "reporting").Logger(),
	}
	r.logger.Info().Str("environment", opts.Environment).Msg("Error reporting enabled")
	return r, nil
}

// Disabled returns a reporter that drops everything.
func Disabled() *Reporter {
	return &Reporter{logger: zerolog.Nop()}
}

// Enabled reports whether events are sent.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureError sends err tagged with tags.
func (r *Reporter) CaptureError(err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentrygo.Scope) {
		scope.SetLevel(sentrygo.LevelError)
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

// Middleware attaches a per-request hub and reports panics. It is a
// pass-through when reporting is disabled.
func (r *Reporter) Middleware() echo.MiddlewareFunc {
	if !r.Enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	capture := sentryecho.New(sentryecho.Options{Repanic: true})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		wrapped := capture(next)
		return func(c echo.Context) error {
			req := c.Request()
			ctx := sentrygo.SetHubOnContext(req.Context(), r.hub.Clone())
			c.SetRequest(req.WithContext(ctx))
			return wrapped(c)
		}
	}
}

// CaptureHTTPError reports server-side handler failures.
func (r *Reporter) CaptureHTTPError(c echo.Context, err error, status int) {
	if !r.Enabled() || status < 500 {
		return
	}
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		return
	}
	r.CaptureError(err, map[string]string{"path": c.Path()})
}

// Close flushes queued events.
func (r *Reporter) Close() {
	if r.Enabled() {
		r.hub.Flush(FlushTime)
	}
}
