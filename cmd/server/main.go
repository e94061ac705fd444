// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package main is the entry point for the Stockpilot server.
//
// Stockpilot recommends next-day inventory quantities to market vendors.
// It combines a vendor's sales ledger with external signals (weather
// forecasts, nearby events) to suggest how much of each product to bring
// to a venue, and learns from submitted feedback through an automated
// retraining loop.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from env vars, config file, defaults (Koanf v2)
//  2. Storage: BadgerDB stores for catalog, sales, recommendations, feedback,
//     venue profiles, model versions, and the weather cache
//  3. Signal adapters: live weather/event providers behind rate limiters and
//     circuit breakers, with a historical climatology fallback
//  4. Prediction: model registry with an atomic active pointer, per-venue-state
//     quantity resolution, and confidence estimation
//  5. Recommendation engine: per-product orchestration with partial-failure
//     markers and a degraded cold-start path
//  6. Feedback: collector for actual-quantity submissions and the retraining
//     scheduler (accumulate, train, validate, activate or discard)
//  7. HTTP server: chi REST API under /api/v1 plus /metrics
//
// Long-running services (HTTP server, retraining scheduler) run under a
// suture supervisor tree so a crash in one branch restarts that branch
// without taking down the rest of the process.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (STOCKPILOT_ prefix)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (shutdown timeout)
//   - Stops the retraining scheduler
//   - Closes the BadgerDB database
//
// # Example Usage
//
// Development, no external APIs (fallback weather, no events):
//
//	export STOCKPILOT_LOG_LEVEL=debug
//	./stockpilot
//
// Production with live signals:
//
//	export STOCKPILOT_STORAGE_PATH=/data/stockpilot
//	export STOCKPILOT_WEATHER_API_KEY=your-openweathermap-key
//	export STOCKPILOT_EVENTS_API_KEY=your-eventbrite-token
//	export STOCKPILOT_SERVER_ADDR=:8080
//	./stockpilot
//
// Without API keys the live adapters are permanently unavailable and
// every lookup is served by the historical fallback; recommendations
// still work, tagged as degraded where the fallback was used.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/stockpilot/stockpilot/internal/api"
	"github.com/stockpilot/stockpilot/internal/config"
	"github.com/stockpilot/stockpilot/internal/feedback"
	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/predict"
	"github.com/stockpilot/stockpilot/internal/recommend"
	extsignal "github.com/stockpilot/stockpilot/internal/signal"
	"github.com/stockpilot/stockpilot/internal/storage"
	"github.com/stockpilot/stockpilot/internal/supervisor"
	"github.com/stockpilot/stockpilot/internal/venue"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr).
		Str("storage_path", cfg.Storage.Path).
		Bool("retraining", cfg.Retrain.Enabled).
		Msg("Starting Stockpilot")

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	catalog := storage.NewCatalog(db)
	salesStore := storage.NewSalesStore(db)
	recStore := storage.NewRecommendationStore(db)
	feedbackStore := storage.NewFeedbackStore(db)
	profileStore := storage.NewProfileStore(db)
	modelStore := storage.NewModelStore(db)
	retrainState := storage.NewRetrainStateStore(db)
	weatherCache := storage.NewWeatherCache(db, cfg.Storage.WeatherCacheTTL)
	manualEvents := storage.NewManualEventStore(db)

	// Signal adapters. Live providers sit behind a rate limiter and a
	// circuit breaker; the resilient decorators add caching and the
	// historical fallback so a dead upstream never fails a request.
	fallbackWeather := extsignal.NewHistoricalWeatherProvider()
	liveWeather := extsignal.NewLiveWeatherProvider(extsignal.WeatherProviderConfig{
		BaseURL:         cfg.Signal.WeatherBaseURL,
		APIKey:          cfg.Signal.WeatherAPIKey,
		Timeout:         cfg.Signal.Timeout,
		RateLimitRPS:    cfg.Signal.RateLimitRPS,
		BreakerFailures: cfg.Signal.BreakerFailures,
		BreakerCooldown: cfg.Signal.BreakerCooldown,
	})
	weather := extsignal.NewResilientWeatherProvider(liveWeather, fallbackWeather, weatherCache)
	if cfg.Signal.WeatherAPIKey == "" {
		logging.Warn().Msg("No weather API key configured, serving historical fallback only")
	}

	liveEvents := extsignal.NewLiveEventProvider(extsignal.EventProviderConfig{
		BaseURL:         cfg.Signal.EventsBaseURL,
		APIKey:          cfg.Signal.EventsAPIKey,
		Timeout:         cfg.Signal.Timeout,
		RateLimitRPS:    cfg.Signal.RateLimitRPS,
		BreakerFailures: cfg.Signal.BreakerFailures,
		BreakerCooldown: cfg.Signal.BreakerCooldown,
	})
	events := extsignal.NewResilientEventProvider(liveEvents)
	if cfg.Signal.EventsAPIKey == "" {
		logging.Warn().Msg("No events API key configured, external events degrade to empty")
	}

	venueService := venue.NewService(salesStore, profileStore, venue.Config{
		ColdThreshold: cfg.Venue.ColdThreshold,
		WarmThreshold: cfg.Venue.WarmThreshold,
		StalenessDays: cfg.Venue.StalenessDays,
		ProfileTTL:    cfg.Venue.ProfileTTL,
	})

	registry := predict.NewRegistry(modelStore)
	resolver := predict.NewResolver(predict.ResolverConfig{
		ColdThreshold:       cfg.Venue.ColdThreshold,
		WarmThreshold:       cfg.Venue.WarmThreshold,
		ColdDefaultQuantity: cfg.Predict.ColdDefaultQuantity,
	})
	estimator := predict.NewEstimator(cfg.Predict.UncertaintyCutoff)

	engine := recommend.NewEngine(
		catalog,
		salesStore,
		venueService,
		weather,
		events,
		manualEvents,
		registry,
		resolver,
		estimator,
		recStore,
		recommend.Config{EventRadiusKM: cfg.Signal.EventRadiusKM},
	)

	collector := feedback.NewCollector(recStore, feedbackStore, salesStore, catalog, venueService)

	var scheduler *feedback.Scheduler
	if cfg.Retrain.Enabled {
		builder := predict.NewDatasetBuilder(salesStore, catalog, fallbackWeather)
		scheduler = feedback.NewScheduler(feedback.SchedulerConfig{
			BatchThreshold:  cfg.Retrain.BatchThreshold,
			MaxInterval:     cfg.Retrain.MaxInterval,
			CheckInterval:   cfg.Retrain.CheckInterval,
			Tolerance:       cfg.Retrain.Tolerance,
			HoldoutFraction: cfg.Retrain.HoldoutFraction,
			TrainingTimeout: cfg.Retrain.TrainingTimeout,
			Train: predict.TrainConfig{
				EnsembleSize: cfg.Predict.EnsembleSize,
				RidgeLambda:  cfg.Predict.RidgeLambda,
				MinRows:      cfg.Predict.MinTrainingRows,
				Seed:         cfg.Predict.Seed,
			},
		}, builder, modelStore, feedbackStore, retrainState, registry)
	} else {
		logging.Info().Msg("Retraining scheduler disabled")
	}

	handler := api.NewHandler(engine, collector, recStore, schedulerStatus(scheduler), modelStore)
	middleware := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimitRequests,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})
	router := api.NewRouter(handler, middleware).Setup()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.RequestTimeout,
		ReadTimeout:       cfg.Server.RequestTimeout,
	}

	// Supervisor tree: the API branch holds the HTTP server, the
	// background branch holds the retraining scheduler. sutureslog needs
	// slog, so bridge it to zerolog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(supervisor.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	if scheduler != nil {
		tree.AddBackgroundService(scheduler)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr).Msg("Server listening")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree exited")
		stop()
		if closeErr := db.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Error closing storage")
		}
		os.Exit(1)
	}

	logging.Info().Msg("Shutdown complete")
}

// schedulerStatus adapts a possibly-nil *feedback.Scheduler to the API's
// TrainingStatus interface without passing a typed nil in an interface.
func schedulerStatus(s *feedback.Scheduler) api.TrainingStatus {
	if s == nil {
		return nil
	}
	return s
}
