package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/movieshelf/movieshelf/internal/api"
	"github.com/movieshelf/movieshelf/internal/config"
	"github.com/movieshelf/movieshelf/internal/database"
	"github.com/movieshelf/movieshelf/internal/logger"
	"github.com/movieshelf/movieshelf/internal/reporting"
	"github.com/movieshelf/movieshelf/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(config.Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		BufferSize: 1000,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Bool("mock", cfg.OMDB.Mock).
		Msg("starting movieshelf")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	configuredPort := cfg.Server.Port
	actualPort, err := config.FindAvailablePort(cfg.Server.Host, cfg.Server.Port, 10)
	if err != nil {
		log.Fatal().Err(err).Int("configuredPort", cfg.Server.Port).Msg("failed to find available port")
	}
	if actualPort != configuredPort {
		log.Warn().
			Int("configuredPort", configuredPort).
			Int("actualPort", actualPort).
			Msg("configured port in use, using alternative port")
		cfg.Server.Port = actualPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(log.WithComponent("websocket"))
	go hub.Run(ctx)

	// Enable log streaming via WebSocket now that hub is available
	log.SetBroadcastHub(hub)

	reporter, err := reporting.New(cfg.Reporting, config.Version, log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("error reporting disabled")
		reporter = reporting.Disabled()
	}
	defer reporter.Close()

	server, err := api.NewServer(db.Conn(), hub, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create API server")
	}
	server.SetReporter(reporter)
	server.SetLogsProvider(log)

	if err := server.LoadFavourites(ctx); err != nil {
		log.Warn().Err(err).Msg("favourites could not be loaded, starting with an empty list")
	}

	go func() {
		_ = server.CheckProvider(ctx)
	}()

	go func() {
		addr := cfg.Server.Address()
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
