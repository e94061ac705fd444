// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/stockpilot/stockpilot/internal/feedback"
	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/models"
	"github.com/stockpilot/stockpilot/internal/recommend"
	"github.com/stockpilot/stockpilot/internal/storage"
	"github.com/stockpilot/stockpilot/internal/validation"
)

// maxRequestBody bounds request body reads.
const maxRequestBody = 1 << 20

// Generator produces recommendation batches.
type Generator interface {
	Generate(ctx context.Context, req recommend.Request) (*recommend.Result, error)
}

// FeedbackSubmitter records actuals against recommendations.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, recommendationID string, actualQuantity int) (*models.FeedbackRecord, error)
}

// RecommendationLister reads persisted recommendations.
type RecommendationLister interface {
	ListByVenueDate(ctx context.Context, venueID string, date time.Time) ([]*models.Recommendation, error)
}

// TrainingStatus reports the retraining scheduler's state.
type TrainingStatus interface {
	Status(ctx context.Context) feedback.SchedulerStatus
}

// ModelCatalog reads model version metadata.
type ModelCatalog interface {
	ActiveID(ctx context.Context) (string, error)
	GetVersion(ctx context.Context, id string) (*models.ModelVersion, error)
	ListVersions(ctx context.Context) ([]*models.ModelVersion, error)
}

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	engine    Generator
	collector FeedbackSubmitter
	recs      RecommendationLister
	scheduler TrainingStatus
	catalog   ModelCatalog
	startedAt time.Time
}

// NewHandler creates the request handlers. scheduler and catalog may be nil
// when retraining is disabled; the status endpoint degrades accordingly.
func NewHandler(engine Generator, collector FeedbackSubmitter, recs RecommendationLister, scheduler TrainingStatus, catalog ModelCatalog) *Handler {
	return &Handler{
		engine:    engine,
		collector: collector,
		recs:      recs,
		scheduler: scheduler,
		catalog:   catalog,
		startedAt: time.Now(),
	}
}

// GenerateRequest is the body of POST /api/v1/recommendations/generate.
type GenerateRequest struct {
	VendorID string `json:"vendor_id" validate:"required"`
	VenueID  string `json:"venue_id" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
}

// GenerateResponse is the payload of a successful generation.
type GenerateResponse struct {
	VenueID         string                   `json:"venue_id"`
	Date            string                   `json:"date"`
	ModelVersionID  string                   `json:"model_version_id,omitempty"`
	Degraded        bool                     `json:"degraded"`
	Recommendations []*models.Recommendation `json:"recommendations"`
	ProductErrors   []recommend.ProductError `json:"product_errors,omitempty"`
}

// Generate handles POST /api/v1/recommendations/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)

	var req GenerateRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "date must be in YYYY-MM-DD format")
		return
	}

	result, err := h.engine.Generate(r.Context(), recommend.Request{
		VendorID: req.VendorID,
		VenueID:  req.VenueID,
		Date:     date,
	})
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrVenueNotFound):
			rw.Error(http.StatusNotFound, ErrCodeNotFound, "venue not found")
		case errors.Is(err, recommend.ErrNoActiveProducts):
			rw.Error(http.StatusNotFound, ErrCodeNotFound, "vendor has no active products")
		default:
			logging.Ctx(r.Context()).Error().Err(err).Msg("generate recommendations")
			rw.Error(http.StatusInternalServerError, ErrCodeInternal, "failed to generate recommendations")
		}
		return
	}

	resp := GenerateResponse{
		VenueID:         req.VenueID,
		Date:            req.Date,
		ModelVersionID:  result.ModelVersionID,
		Degraded:        result.Degraded,
		Recommendations: result.Recommendations,
		ProductErrors:   result.ProductErrors,
	}
	if result.Degraded {
		rw.OKDegraded(resp)
		return
	}
	rw.OK(resp)
}

// FeedbackRequest is the body of PUT /api/v1/recommendations/{id}/feedback.
type FeedbackRequest struct {
	ActualQuantity int `json:"actual_quantity" validate:"gte=0"`
}

// SubmitFeedback handles PUT /api/v1/recommendations/{id}/feedback.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)

	recommendationID := chi.URLParam(r, "id")
	if recommendationID == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "recommendation id is required")
		return
	}
	var req FeedbackRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	fb, err := h.collector.Submit(r.Context(), recommendationID, req.ActualQuantity)
	if err != nil {
		switch {
		case errors.Is(err, feedback.ErrRecommendationNotFound):
			rw.Error(http.StatusNotFound, ErrCodeNotFound, "recommendation not found")
		case errors.Is(err, feedback.ErrDuplicateFeedback):
			rw.Error(http.StatusConflict, ErrCodeDuplicateFeedback, "feedback already submitted for this recommendation")
		case errors.Is(err, feedback.ErrInvalidQuantity):
			rw.Error(http.StatusBadRequest, ErrCodeValidation, "actual quantity must be non-negative")
		default:
			logging.Ctx(r.Context()).Error().Err(err).Msg("submit feedback")
			rw.Error(http.StatusInternalServerError, ErrCodeInternal, "failed to record feedback")
		}
		return
	}
	rw.Created(fb)
}

// List handles GET /api/v1/recommendations?venue_id=...&date=YYYY-MM-DD.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)

	venueID := r.URL.Query().Get("venue_id")
	if venueID == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "venue_id query parameter is required")
		return
	}
	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "date query parameter is required")
		return
	}
	date, err := time.Parse(models.DateLayout, dateParam)
	if err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "date must be in YYYY-MM-DD format")
		return
	}

	recs, err := h.recs.ListByVenueDate(r.Context(), venueID, date)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("venue_id", venueID).Msg("list recommendations")
		rw.Error(http.StatusInternalServerError, ErrCodeStorage, "failed to list recommendations")
		return
	}
	rw.OK(map[string]interface{}{
		"venue_id":        venueID,
		"date":            dateParam,
		"recommendations": recs,
	})
}

// StatusResponse is the payload of GET /api/v1/recommendations/status.
type StatusResponse struct {
	Scheduler    *feedback.SchedulerStatus `json:"scheduler,omitempty"`
	ActiveModel  *models.ModelVersion      `json:"active_model,omitempty"`
	VersionCount int                       `json:"version_count"`
}

// Status handles GET /api/v1/recommendations/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)
	ctx := r.Context()

	var resp StatusResponse
	if h.scheduler != nil {
		st := h.scheduler.Status(ctx)
		resp.Scheduler = &st
	}
	if h.catalog != nil {
		if id, err := h.catalog.ActiveID(ctx); err == nil {
			if version, err := h.catalog.GetVersion(ctx, id); err == nil {
				resp.ActiveModel = version
			}
		} else if !errors.Is(err, storage.ErrNoActiveModel) {
			logging.Ctx(ctx).Error().Err(err).Msg("load active model for status")
		}
		if versions, err := h.catalog.ListVersions(ctx); err == nil {
			resp.VersionCount = len(versions)
		}
	}
	rw.OK(resp)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond(w, r).OK(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// decodeBody reads and decodes a JSON request body, writing a 400 on
// failure. Returns false when the response has already been written.
func decodeBody(rw *responder, r *http.Request, out interface{}) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	if err := dec.Decode(out); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "invalid JSON body")
		return false
	}
	return true
}
