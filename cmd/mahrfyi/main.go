package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/mahrfyi/internal/config"
	"github.com/vbonduro/mahrfyi/internal/db"
	"github.com/vbonduro/mahrfyi/internal/events"
	"github.com/vbonduro/mahrfyi/internal/events/kafka"
	"github.com/vbonduro/mahrfyi/internal/geocode"
	"github.com/vbonduro/mahrfyi/internal/geocode/claude"
	"github.com/vbonduro/mahrfyi/internal/geocode/ollama"
	"github.com/vbonduro/mahrfyi/internal/location"
	"github.com/vbonduro/mahrfyi/internal/logging"
	"github.com/vbonduro/mahrfyi/internal/money"
	"github.com/vbonduro/mahrfyi/internal/observability"
	"github.com/vbonduro/mahrfyi/internal/service"
	"github.com/vbonduro/mahrfyi/internal/store"
	"github.com/vbonduro/mahrfyi/internal/web"
	"github.com/vbonduro/mahrfyi/internal/web/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal error", "error", err)
		cleanup()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	tables, err := location.LoadTablesFile(cfg.LocationsFile)
	if err != nil {
		return err
	}
	reference, err := money.LoadReferenceFile(cfg.ReferenceFile)
	if err != nil {
		return err
	}
	policy, err := service.ParseLocationPolicy(cfg.LocationPolicy)
	if err != nil {
		return err
	}

	normalizer := location.NewNormalizer(tables, location.WithThreshold(cfg.FuzzyThreshold))
	geocoder, err := newGeocoder(cfg, logger)
	if err != nil {
		return err
	}
	if geocoder != nil {
		metrics.GeocodeEnabled.Set(1)
	}
	resolver := location.NewResolver(normalizer, geocoder, metrics, logger)
	// Aggregation re-resolves every stored location per request and the
	// preview endpoint is unauthenticated, so neither calls out to the geocoder.
	tablesResolver := location.NewResolver(normalizer, nil, metrics, logger)

	publisher := events.Publisher(events.Nop{})
	if cfg.EventsEnabled() {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("failed to close event writer", "error", err)
			}
		}()
		publisher = writer
		logger.Info("publishing submission events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	clock := clockwork.NewRealClock()
	submissions := store.NewSubmissionStore(database)

	submitSvc := service.NewSubmissionService(submissions, resolver, publisher, clock, policy, metrics, logger)
	statsSvc := service.NewStatsService(submissions, tablesResolver, clock, metrics, logger,
		service.WithMinGroupSize(cfg.MinGroupSize),
		service.WithWorkers(cfg.NormalizeWorkers),
	)
	compareSvc := service.NewCompareService(submitSvc, resolver, reference, logger)

	server := web.NewServer(cfg.ListenAddr, web.Services{
		Submissions: submitSvc,
		Stats:       statsSvc,
		Compare:     compareSvc,
		Locations:   tablesResolver,
		Currencies:  reference.Currencies(),
	}, templates.FS, clock, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	return nil
}

func newGeocoder(cfg *config.Config, logger *slog.Logger) (geocode.Geocoder, error) {
	if !cfg.GeocoderEnabled() {
		logger.Info("geocoder disabled")
		return nil, nil
	}

	var g geocode.Geocoder
	switch cfg.GeocoderBackend {
	case "claude":
		logger.Info("using Claude geocoder", "model", cfg.ClaudeModel)
		g = claude.NewClaudeGeocoder(cfg.ClaudeAPIKey, cfg.ClaudeModel,
			anthropic.WithHTTPClient(&http.Client{Timeout: cfg.GeocoderTimeout}))
	default:
		logger.Info("using Ollama geocoder", "model", cfg.OllamaModel)
		g = ollama.NewOllamaGeocoder(cfg.OllamaHost, cfg.OllamaModel, cfg.GeocoderTimeout)
	}
	return geocode.NewCachedGeocoder(g, cfg.GeocoderCacheSize, cfg.GeocoderMissTTL)
}
