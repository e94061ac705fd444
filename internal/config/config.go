// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

// Package config provides layered configuration for Stockpilot using koanf.
//
// Configuration is loaded in three layers with clear precedence:
//  1. Struct defaults (lowest)
//  2. Optional YAML config file
//  3. Environment variables (highest)
//
// Every tunable of the recommendation core is exposed here rather than
// hardcoded: venue data-sufficiency thresholds, the staleness cutoff, the
// warm-venue blend curve, adapter timeouts, and retraining triggers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Stockpilot server.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `koanf:"server"`

	// Logging contains log level and format settings.
	Logging LoggingConfig `koanf:"logging"`

	// Storage contains BadgerDB settings.
	Storage StorageConfig `koanf:"storage"`

	// Signal contains external weather/events adapter settings.
	Signal SignalConfig `koanf:"signal"`

	// Venue contains venue profile and classification settings.
	Venue VenueConfig `koanf:"venue"`

	// Predict contains prediction model settings.
	Predict PredictConfig `koanf:"predict"`

	// Retrain contains feedback-driven retraining settings.
	Retrain RetrainConfig `koanf:"retrain"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `koanf:"addr"`

	// RequestTimeout bounds the total time for a single request.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitRequests is the per-client request budget per window.
	RateLimitRequests int `koanf:"rate_limit_requests"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace..fatal).
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes file:line in log output.
	Caller bool `koanf:"caller"`
}

// StorageConfig contains BadgerDB settings.
type StorageConfig struct {
	// Path is the BadgerDB data directory. Empty means in-memory (tests).
	Path string `koanf:"path"`

	// WeatherCacheTTL bounds how long a live weather snapshot is served
	// from cache before being refetched.
	WeatherCacheTTL time.Duration `koanf:"weather_cache_ttl"`
}

// SignalConfig contains external signal adapter settings.
type SignalConfig struct {
	// WeatherAPIKey enables the live weather adapter. Empty disables it
	// and every lookup is served by the historical fallback.
	WeatherAPIKey string `koanf:"weather_api_key"`

	// WeatherBaseURL is the forecast API base URL.
	WeatherBaseURL string `koanf:"weather_base_url"`

	// EventsAPIKey enables the live events adapter.
	EventsAPIKey string `koanf:"events_api_key"`

	// EventsBaseURL is the events API base URL.
	EventsBaseURL string `koanf:"events_base_url"`

	// Timeout bounds each live adapter call. On expiry the resilient
	// decorator falls back immediately; it never retries synchronously.
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitRPS is the client-side request rate toward external APIs.
	RateLimitRPS float64 `koanf:"rate_limit_rps"`

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit breaker for a live adapter.
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerCooldown is how long an open breaker stays open.
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`

	// EventRadiusKM is the distance window for event-proximity features.
	EventRadiusKM float64 `koanf:"event_radius_km"`
}

// VenueConfig contains venue profile settings.
type VenueConfig struct {
	// ColdThreshold is the sample count below which a venue is COLD.
	ColdThreshold int `koanf:"cold_threshold"`

	// WarmThreshold is the sample count at or above which a venue is HOT.
	// Counts in [ColdThreshold, WarmThreshold) are WARM.
	WarmThreshold int `koanf:"warm_threshold"`

	// StalenessDays is the data recency beyond which confidence drops to
	// LOW regardless of sample count.
	StalenessDays int `koanf:"staleness_days"`

	// ProfileTTL is how long a cached venue profile is served before
	// lazy recomputation.
	ProfileTTL time.Duration `koanf:"profile_ttl"`
}

// PredictConfig contains prediction model settings.
type PredictConfig struct {
	// EnsembleSize is the number of bootstrap-resampled regressors.
	EnsembleSize int `koanf:"ensemble_size"`

	// RidgeLambda is the L2 regularization strength of each member.
	RidgeLambda float64 `koanf:"ridge_lambda"`

	// UncertaintyCutoff is the ensemble coefficient-of-variation above
	// which confidence degrades to MEDIUM.
	UncertaintyCutoff float64 `koanf:"uncertainty_cutoff"`

	// MinTrainingRows is the minimum dataset size to fit a model.
	MinTrainingRows int `koanf:"min_training_rows"`

	// ColdDefaultQuantity is the conservative estimate when no sales
	// history exists anywhere for a product.
	ColdDefaultQuantity int `koanf:"cold_default_quantity"`

	// Seed is the RNG seed for bootstrap resampling (deterministic
	// training).
	Seed int64 `koanf:"seed"`
}

// RetrainConfig contains feedback-driven retraining settings.
type RetrainConfig struct {
	// Enabled controls whether the background scheduler runs.
	Enabled bool `koanf:"enabled"`

	// BatchThreshold triggers retraining when the candidate set reaches
	// this size.
	BatchThreshold int `koanf:"batch_threshold"`

	// MaxInterval triggers retraining when this much time has passed
	// since the last run, regardless of candidate count.
	MaxInterval time.Duration `koanf:"max_interval"`

	// CheckInterval is how often the scheduler evaluates its triggers.
	CheckInterval time.Duration `koanf:"check_interval"`

	// Tolerance is the allowed holdout-error ratio of a candidate model
	// versus the active one (1.10 = up to 10% worse still activates).
	Tolerance float64 `koanf:"tolerance"`

	// HoldoutFraction is the recent slice reserved for validation.
	HoldoutFraction float64 `koanf:"holdout_fraction"`

	// TrainingTimeout bounds a single training run.
	TrainingTimeout time.Duration `koanf:"training_timeout"`
}

// defaultConfig returns a Config with production defaults. Defaults are
// applied first, then overridden by config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			RequestTimeout:    15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Path:            "/data/stockpilot",
			WeatherCacheTTL: 6 * time.Hour,
		},
		Signal: SignalConfig{
			WeatherBaseURL:  "https://api.openweathermap.org/data/2.5",
			EventsBaseURL:   "https://www.eventbriteapi.com/v3",
			Timeout:         3 * time.Second,
			RateLimitRPS:    2,
			BreakerFailures: 3,
			BreakerCooldown: 30 * time.Second,
			EventRadiusKM:   5,
		},
		Venue: VenueConfig{
			ColdThreshold: 10,
			WarmThreshold: 50,
			StalenessDays: 180,
			ProfileTTL:    15 * time.Minute,
		},
		Predict: PredictConfig{
			EnsembleSize:        8,
			RidgeLambda:         1.0,
			UncertaintyCutoff:   0.35,
			MinTrainingRows:     25,
			ColdDefaultQuantity: 5,
			Seed:                42,
		},
		Retrain: RetrainConfig{
			Enabled:         true,
			BatchThreshold:  50,
			MaxInterval:     24 * time.Hour,
			CheckInterval:   time.Minute,
			Tolerance:       1.10,
			HoldoutFraction: 0.2,
			TrainingTimeout: 10 * time.Minute,
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", c.Server.RequestTimeout)
	}

	if c.Signal.Timeout <= 0 {
		return fmt.Errorf("signal.timeout must be positive, got %v", c.Signal.Timeout)
	}
	if c.Signal.RateLimitRPS <= 0 {
		return fmt.Errorf("signal.rate_limit_rps must be positive, got %f", c.Signal.RateLimitRPS)
	}
	if c.Signal.EventRadiusKM < 0 {
		return fmt.Errorf("signal.event_radius_km must be non-negative, got %f", c.Signal.EventRadiusKM)
	}

	if c.Venue.ColdThreshold < 1 {
		return fmt.Errorf("venue.cold_threshold must be positive, got %d", c.Venue.ColdThreshold)
	}
	if c.Venue.WarmThreshold <= c.Venue.ColdThreshold {
		return fmt.Errorf("venue.warm_threshold must exceed cold_threshold, got %d <= %d",
			c.Venue.WarmThreshold, c.Venue.ColdThreshold)
	}
	if c.Venue.StalenessDays < 1 {
		return fmt.Errorf("venue.staleness_days must be positive, got %d", c.Venue.StalenessDays)
	}

	if c.Predict.EnsembleSize < 1 {
		return fmt.Errorf("predict.ensemble_size must be positive, got %d", c.Predict.EnsembleSize)
	}
	if c.Predict.RidgeLambda < 0 {
		return fmt.Errorf("predict.ridge_lambda must be non-negative, got %f", c.Predict.RidgeLambda)
	}
	if c.Predict.UncertaintyCutoff <= 0 {
		return fmt.Errorf("predict.uncertainty_cutoff must be positive, got %f", c.Predict.UncertaintyCutoff)
	}
	if c.Predict.MinTrainingRows < 2 {
		return fmt.Errorf("predict.min_training_rows must be at least 2, got %d", c.Predict.MinTrainingRows)
	}

	if c.Retrain.BatchThreshold < 1 {
		return fmt.Errorf("retrain.batch_threshold must be positive, got %d", c.Retrain.BatchThreshold)
	}
	if c.Retrain.MaxInterval <= 0 {
		return fmt.Errorf("retrain.max_interval must be positive, got %v", c.Retrain.MaxInterval)
	}
	if c.Retrain.Tolerance < 1 {
		return fmt.Errorf("retrain.tolerance must be >= 1, got %f", c.Retrain.Tolerance)
	}
	if c.Retrain.HoldoutFraction <= 0 || c.Retrain.HoldoutFraction >= 1 {
		return fmt.Errorf("retrain.holdout_fraction must be in (0, 1), got %f", c.Retrain.HoldoutFraction)
	}

	return nil
}
