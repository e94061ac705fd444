// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/models"
)

// Error codes for API responses.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeDuplicateFeedback = "DUPLICATE_FEEDBACK"
	ErrCodeStorage           = "STORAGE_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeRateLimited       = "RATE_LIMIT_EXCEEDED"
)

// responder writes models.APIResponse envelopes with timing metadata.
type responder struct {
	w     http.ResponseWriter
	r     *http.Request
	start time.Time
}

func respond(w http.ResponseWriter, r *http.Request) *responder {
	return &responder{w: w, r: r, start: time.Now()}
}

// OK writes a 200 success envelope.
func (rw *responder) OK(data interface{}) {
	rw.write(http.StatusOK, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(false),
	})
}

// OKDegraded writes a 200 success envelope flagged as degraded so clients
// present the payload with reduced confidence.
func (rw *responder) OKDegraded(data interface{}) {
	rw.write(http.StatusOK, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(true),
	})
}

// Created writes a 201 success envelope.
func (rw *responder) Created(data interface{}) {
	rw.write(http.StatusCreated, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(false),
	})
}

// Error writes an error envelope with the given HTTP status.
func (rw *responder) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error envelope with structured details.
func (rw *responder) ErrorWithDetails(statusCode int, code, message string, details map[string]interface{}) {
	rw.write(statusCode, models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Metadata: rw.metadata(false),
	})
}

func (rw *responder) metadata(degraded bool) models.Metadata {
	return models.Metadata{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: time.Since(rw.start).Milliseconds(),
		Degraded:    degraded,
	}
}

func (rw *responder) write(statusCode int, body models.APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)
	if err := json.NewEncoder(rw.w).Encode(body); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("encode response")
	}
}
