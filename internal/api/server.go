package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/api/ratelimit"
	"github.com/movieshelf/movieshelf/internal/config"
	"github.com/movieshelf/movieshelf/internal/favourites"
	"github.com/movieshelf/movieshelf/internal/health"
	"github.com/movieshelf/movieshelf/internal/history"
	"github.com/movieshelf/movieshelf/internal/metadata"
	"github.com/movieshelf/movieshelf/internal/reporting"
	"github.com/movieshelf/movieshelf/internal/scheduler"
	"github.com/movieshelf/movieshelf/internal/session"
	"github.com/movieshelf/movieshelf/internal/startup"
	"github.com/movieshelf/movieshelf/internal/storage"
	"github.com/movieshelf/movieshelf/internal/websocket"
)

// Server handles HTTP requests for the movieshelf API.
type Server struct {
	echo      *echo.Echo
	db        *sql.DB
	hub       *websocket.Hub
	logger    zerolog.Logger
	cfg       *config.Config
	startedAt time.Time

	// Services
	metadataService  *metadata.Service
	favouritesStore  *favourites.Store
	historyService   *history.Service
	healthService    *health.Service
	healthChecker    *health.Checker
	sessionManager   *session.Manager
	scheduler        *scheduler.Scheduler
	reporter         *reporting.Reporter
	reportMiddleware echo.MiddlewareFunc
	providerLimiter  *ratelimit.Limiter
	logsProvider     LogsProvider
}

// NewServer creates a new API server instance. hub may be nil, in which
// case nothing is pushed to WebSocket clients and /ws is not served.
func NewServer(db *sql.DB, hub *websocket.Hub, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		db:        db,
		hub:       hub,
		logger:    logger,
		cfg:       cfg,
		startedAt: time.Now(),
		reporter:  reporting.Disabled(),
	}
	s.reportMiddleware = s.reporter.Middleware()

	blob, err := newFavouritesBlob(cfg.Favourites, db)
	if err != nil {
		return nil, err
	}

	s.metadataService = metadata.NewService(cfg.OMDB, logger)
	s.historyService = history.NewService(db, storage.NewSQLite(db), logger)

	s.healthService = health.NewService(logger)
	if hub != nil {
		s.healthService.SetBroadcaster(hub)
	}
	s.healthChecker = health.NewChecker(s.healthService, s.metadataService, blob, cfg.Favourites.Backend, logger)

	s.favouritesStore = favourites.NewStore(blob, logger)
	s.favouritesStore.SetRecorder(s.historyService)
	s.favouritesStore.SetReporter(s.healthChecker)

	s.sessionManager = session.NewManager(s.metadataService, s.favouritesStore, cfg.Session.IdleTimeout, logger)
	if hub != nil {
		s.sessionManager.SetBroadcaster(hub)
	}
	s.favouritesStore.SetBroadcaster(newFavouritesBroadcaster(hub, s.sessionManager))

	s.scheduler, err = scheduler.New(logger)
	if err != nil {
		return nil, err
	}
	if err := scheduler.RegisterSessionCleanup(s.scheduler, cfg.Session.CleanupCron, s.sessionManager); err != nil {
		return nil, fmt.Errorf("failed to register session cleanup: %w", err)
	}
	if err := scheduler.RegisterHistoryRetention(s.scheduler, s.historyService); err != nil {
		return nil, fmt.Errorf("failed to register history retention: %w", err)
	}
	if err := scheduler.RegisterHealthCheck(s.scheduler, cfg.Health.CheckInterval, s.healthChecker); err != nil {
		return nil, fmt.Errorf("failed to register health check: %w", err)
	}

	s.providerLimiter = ratelimit.NewLimiter(cfg.Server.RateLimit)
	if err := s.scheduler.RegisterTask(scheduler.TaskConfig{
		ID:          "ratelimit-cleanup",
		Name:        "Rate limit cleanup",
		Description: "Drops expired per-client request counters",
		Cron:        "*/10 * * * *",
		Timeout:     time.Minute,
		Func: func(context.Context) error {
			s.providerLimiter.Cleanup()
			return nil
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to register rate limit cleanup: %w", err)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func newFavouritesBlob(cfg config.FavouritesConfig, db *sql.DB) (storage.Blob, error) {
	if cfg.Backend == config.BackendFile {
		f, err := storage.NewFile(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open favourites file: %w", err)
		}
		return f, nil
	}
	return storage.NewSQLite(db), nil
}

// SetReporter enables error reporting for requests and storage failures.
// It must be called before Start.
func (s *Server) SetReporter(r *reporting.Reporter) {
	s.reporter = r
	s.reportMiddleware = r.Middleware()
	s.favouritesStore.SetReporter(multiReporter{s.healthChecker, r})
}

// SetLogsProvider exposes the in-memory log buffer under /api/v1/logs.
func (s *Server) SetLogsProvider(p LogsProvider) {
	if s.logsProvider == nil {
		NewLogsHandlers(p).RegisterRoutes(s.echo.Group("/api/v1/logs"))
	}
	s.logsProvider = p
}

// LoadFavourites reads the persisted collection. A storage failure leaves
// an empty collection and is returned so the caller can log it.
func (s *Server) LoadFavourites(ctx context.Context) error {
	coll, err := s.favouritesStore.Load(ctx)
	s.sessionManager.SyncFavourites(coll)
	if err != nil {
		return err
	}
	s.logger.Info().Int("count", len(coll)).Msg("favourites loaded")
	return nil
}

// CheckProvider probes the metadata provider with startup retries and
// records the outcome in the health service.
func (s *Server) CheckProvider(ctx context.Context) error {
	if !s.metadataService.IsConfigured() {
		s.logger.Warn().Msg("OMDb API key not configured; set API_KEY or omdb.api_key")
		return s.healthChecker.CheckMetadata(ctx)
	}
	err := startup.CheckProvider(ctx, s.metadataService, startup.DefaultRetryConfig(), s.logger)
	if errors.Is(err, context.Canceled) {
		return err
	}
	s.healthChecker.RecordMetadata(err)
	return err
}

// Start begins listening for HTTP requests and starts background tasks.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	s.scheduler.Start()
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if err := s.scheduler.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to stop scheduler")
	}
	s.sessionManager.Close()
	s.metadataService.Close()

	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// --- Handler implementations ---

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	ctx := c.Request().Context()

	dbStatus := "ok"
	if err := s.db.PingContext(ctx); err != nil {
		dbStatus = err.Error()
	}

	wsClients := 0
	if s.hub != nil {
		wsClients = s.hub.ClientCount()
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":            config.Version,
		"startTime":          s.startedAt.Format(time.RFC3339),
		"provider":           s.metadataService.ProviderName(),
		"providerConfigured": s.metadataService.IsConfigured(),
		"cacheEnabled":       s.metadataService.CacheEnabled(),
		"favouriteCount":     s.favouritesStore.Count(),
		"sessionCount":       s.sessionManager.Count(),
		"wsClients":          wsClients,
		"storageBackend":     s.cfg.Favourites.Backend,
		"database":           dbStatus,
		"reportingEnabled":   s.reporter.Enabled(),
		"healthy":            !s.healthService.GetSummary().HasIssues,
	})
}
