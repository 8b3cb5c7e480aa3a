package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/movieshelf/movieshelf/internal/api/handlers"
	apimw "github.com/movieshelf/movieshelf/internal/api/middleware"
	"github.com/movieshelf/movieshelf/internal/favourites"
	"github.com/movieshelf/movieshelf/internal/health"
	"github.com/movieshelf/movieshelf/internal/history"
	"github.com/movieshelf/movieshelf/internal/metadata"
	"github.com/movieshelf/movieshelf/internal/session"
)

func (s *Server) setupMiddleware() {
	s.echo.HTTPErrorHandler = s.handleError

	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// Security headers
	s.echo.Use(apimw.SecurityHeaders("/api"))

	// Request body size limit (2MB), imports are the largest bodies
	s.echo.Use(middleware.BodyLimit("2M"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Error reporting (no-op without a DSN)
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return s.reportMiddleware(next)(c)
		}
	})

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Str("requestId", v.RequestID).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Str("requestId", v.RequestID).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Gzip compression
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// handleError reports server-side failures before writing the response.
func (s *Server) handleError(err error, c echo.Context) {
	status := http.StatusInternalServerError
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
	}
	s.reporter.CaptureHTTPError(c, err, status)
	s.echo.DefaultHTTPErrorHandler(err, c)
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	// Routes that reach the metadata provider are rate limited per client.
	limited := api.Group("", s.providerLimiter.Middleware())

	metadataHandlers := metadata.NewHandlers(s.metadataService)
	metadataHandlers.RegisterRoutes(limited)

	favouritesGroup := api.Group("/favourites")
	historyHandlers := history.NewHandlers(s.historyService)
	historyHandlers.RegisterRoutes(favouritesGroup.Group("/history"))
	favouritesHandlers := favourites.NewHandlers(s.favouritesStore, s.metadataService, metadata.ToHTTPError)
	favouritesHandlers.RegisterRoutes(favouritesGroup)

	sessionHandlers := session.NewHandlers(s.sessionManager)
	sessionHandlers.RegisterRoutes(limited.Group("/sessions"))

	healthHandlers := health.NewHandlers(s.healthService, s.healthChecker)
	healthHandlers.RegisterRoutes(api.Group("/health"))

	schedulerHandler := handlers.NewSchedulerHandler(s.scheduler)
	schedulerHandler.RegisterRoutes(api.Group("/scheduler"))

	if s.hub != nil {
		s.echo.GET("/ws", s.hub.HandleWebSocket)
	}
}
