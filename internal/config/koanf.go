// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/stockpilot/config.yaml",
	"/etc/stockpilot/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration using koanf v2 with layered sources:
//  1. Defaults: built-in struct defaults
//  2. Config file: optional YAML file (CONFIG_PATH or default search list)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns empty string if none is found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// sourced from environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env values to slices for
// known slice fields. YAML-sourced slices pass through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return empty string and are skipped, which keeps
// unrelated environment noise out of the configuration.
//
// Examples:
//   - HTTP_ADDR -> server.addr
//   - WEATHER_API_KEY -> signal.weather_api_key
//   - VENUE_STALENESS_DAYS -> venue.staleness_days
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_addr":           "server.addr",
		"http_timeout":        "server.request_timeout",
		"shutdown_timeout":    "server.shutdown_timeout",
		"rate_limit_requests": "server.rate_limit_requests",
		"rate_limit_window":   "server.rate_limit_window",
		"cors_origins":        "server.cors_origins",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Storage mappings
		"badger_path":       "storage.path",
		"weather_cache_ttl": "storage.weather_cache_ttl",

		// Signal adapter mappings
		"weather_api_key":  "signal.weather_api_key",
		"weather_base_url": "signal.weather_base_url",
		"events_api_key":   "signal.events_api_key",
		"events_base_url":  "signal.events_base_url",
		"signal_timeout":   "signal.timeout",
		"signal_rate_rps":  "signal.rate_limit_rps",
		"event_radius_km":  "signal.event_radius_km",

		// Venue profile mappings
		"venue_cold_threshold": "venue.cold_threshold",
		"venue_warm_threshold": "venue.warm_threshold",
		"venue_staleness_days": "venue.staleness_days",
		"venue_profile_ttl":    "venue.profile_ttl",

		// Prediction mappings
		"predict_ensemble_size":      "predict.ensemble_size",
		"predict_ridge_lambda":       "predict.ridge_lambda",
		"predict_uncertainty_cutoff": "predict.uncertainty_cutoff",
		"predict_min_training_rows":  "predict.min_training_rows",
		"predict_cold_default":       "predict.cold_default_quantity",

		// Retraining mappings
		"retrain_enabled":         "retrain.enabled",
		"retrain_batch_threshold": "retrain.batch_threshold",
		"retrain_max_interval":    "retrain.max_interval",
		"retrain_check_interval":  "retrain.check_interval",
		"retrain_tolerance":       "retrain.tolerance",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
