// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/feature"
	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/metrics"
	"github.com/stockpilot/stockpilot/internal/models"
	"github.com/stockpilot/stockpilot/internal/predict"
	"github.com/stockpilot/stockpilot/internal/signal"
	"github.com/stockpilot/stockpilot/internal/storage"
)

// Demand-shift multipliers, applied on top of the resolved base quantity.
const (
	rainMultiplier       = 0.8
	largeEventMultiplier = 1.5
)

// Sentinel errors surfaced to the API layer.
var (
	// ErrVenueNotFound indicates the requested venue does not exist or
	// belongs to another vendor.
	ErrVenueNotFound = errors.New("venue not found")

	// ErrNoActiveProducts indicates the vendor has nothing to recommend.
	ErrNoActiveProducts = errors.New("no active products for vendor")
)

// CatalogReader is the catalog surface the engine needs.
type CatalogReader interface {
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
	ListActiveProducts(ctx context.Context, vendorID string) ([]*models.Product, error)
}

// SalesReader provides sales history.
type SalesReader interface {
	ListByVenue(ctx context.Context, venueID string, from, to time.Time) ([]*models.SalesRecord, error)
	ListAll(ctx context.Context) ([]*models.SalesRecord, error)
}

// ProfileService classifies venues.
type ProfileService interface {
	Profile(ctx context.Context, venueID string) (*models.VenueProfile, error)
	State(p *models.VenueProfile) models.VenueState
	IsStale(p *models.VenueProfile) bool
}

// ManualEventReader lists vendor-entered events.
type ManualEventReader interface {
	ListByVenueDate(ctx context.Context, venueID string, date time.Time) ([]*models.EventRecord, error)
}

// ModelSource snapshots the active model.
type ModelSource interface {
	Active(ctx context.Context) (*predict.ActiveModel, error)
}

// RecommendationWriter persists generated batches.
type RecommendationWriter interface {
	Insert(ctx context.Context, recs []*models.Recommendation) error
}

// Config holds orchestration parameters.
type Config struct {
	// EventRadiusKM bounds the external event search.
	EventRadiusKM float64
	// RevenueWindowDays is the trailing window used to order products.
	RevenueWindowDays int
}

// Engine generates recommendation batches.
type Engine struct {
	catalog  CatalogReader
	sales    SalesReader
	profiles ProfileService
	weather  signal.WeatherProvider
	events   signal.EventProvider
	manual   ManualEventReader
	model    ModelSource
	resolver *predict.Resolver
	conf     *predict.Estimator
	store    RecommendationWriter
	cfg      Config
	now      func() time.Time
}

// NewEngine wires an orchestration engine.
func NewEngine(
	catalog CatalogReader,
	sales SalesReader,
	profiles ProfileService,
	weather signal.WeatherProvider,
	events signal.EventProvider,
	manual ManualEventReader,
	model ModelSource,
	resolver *predict.Resolver,
	conf *predict.Estimator,
	store RecommendationWriter,
	cfg Config,
) *Engine {
	if cfg.RevenueWindowDays <= 0 {
		cfg.RevenueWindowDays = 30
	}
	return &Engine{
		catalog:  catalog,
		sales:    sales,
		profiles: profiles,
		weather:  weather,
		events:   events,
		manual:   manual,
		model:    model,
		resolver: resolver,
		conf:     conf,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Request identifies one batch run.
type Request struct {
	VendorID string
	VenueID  string
	Date     time.Time
}

// ProductError marks a product that could not be recommended.
type ProductError struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// Result is one generated batch.
type Result struct {
	Recommendations []*models.Recommendation `json:"recommendations"`
	ProductErrors   []ProductError           `json:"product_errors,omitempty"`
	Degraded        bool                     `json:"degraded"`
	ModelVersionID  string                   `json:"model_version_id,omitempty"`
}

// Generate runs one batch for a venue and target date.
func (e *Engine) Generate(ctx context.Context, req Request) (*Result, error) {
	log := logging.Ctx(ctx)
	date := models.TruncateToDay(req.Date)

	venue, err := e.catalog.GetVenue(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("load venue: %w", err)
	}
	if venue.VendorID != req.VendorID {
		return nil, ErrVenueNotFound
	}

	products, err := e.catalog.ListActiveProducts(ctx, req.VendorID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrNoActiveProducts
	}

	venueSales, err := e.sales.ListByVenue(ctx, req.VenueID, time.Time{}, date)
	if err != nil {
		return nil, fmt.Errorf("load venue sales: %w", err)
	}
	e.orderByTrailingRevenue(products, venueSales, date)

	profile, err := e.profiles.Profile(ctx, req.VenueID)
	if err != nil {
		return nil, fmt.Errorf("load venue profile: %w", err)
	}
	state := e.profiles.State(profile)
	stale := e.profiles.IsStale(profile)

	weather, err := e.weather.Forecast(ctx, venue.Latitude, venue.Longitude, date)
	if err != nil {
		// The resilient decorator already absorbed upstream failure;
		// an error here is a wiring problem, not a signal gap.
		return nil, fmt.Errorf("weather forecast: %w", err)
	}
	events := e.resolvedEvents(ctx, venue, date)

	active, degraded := e.activeModel(ctx)
	result := &Result{Degraded: degraded}
	if active != nil {
		result.ModelVersionID = active.Version.ID
	}

	histories := groupByProduct(venueSales)
	var peerMeans map[string][]float64
	if state == models.VenueCold {
		peerMeans, err = e.peerMeans(ctx, req.VenueID)
		if err != nil {
			log.Warn().Err(err).Msg("peer mean computation failed, cold venues fall back to default quantity")
		}
	}

	now := e.now().UTC()
	for _, product := range products {
		rec, perr := e.recommendProduct(ctx, productContext{
			product:  product,
			venue:    venue,
			profile:  profile,
			state:    state,
			stale:    stale,
			weather:  weather,
			events:   events,
			history:  histories[product.ID],
			peerMean: predict.PeerMedian(peerMeans[product.ID]),
			active:   active,
			degraded: degraded,
			date:     date,
			vendorID: req.VendorID,
			now:      now,
		})
		if perr != nil {
			metrics.ProductErrorsTotal.Inc()
			result.ProductErrors = append(result.ProductErrors, ProductError{
				ProductID: product.ID,
				Reason:    perr.Error(),
			})
			continue
		}
		result.Recommendations = append(result.Recommendations, rec)
		metrics.RecommendationsTotal.WithLabelValues(rec.ConfidenceTier.String()).Inc()
	}

	if degraded {
		metrics.DegradedBatchesTotal.Inc()
	}
	if len(result.Recommendations) > 0 {
		if err := e.store.Insert(ctx, result.Recommendations); err != nil {
			return nil, fmt.Errorf("persist recommendations: %w", err)
		}
	}

	log.Info().
		Str("venue_id", req.VenueID).
		Str("date", models.DateKey(date)).
		Str("venue_state", state.String()).
		Int("recommendations", len(result.Recommendations)).
		Int("product_errors", len(result.ProductErrors)).
		Bool("degraded", degraded).
		Msg("recommendation batch generated")
	return result, nil
}

type productContext struct {
	product  *models.Product
	venue    *models.Venue
	profile  *models.VenueProfile
	state    models.VenueState
	stale    bool
	weather  *models.WeatherSnapshot
	events   []*models.EventRecord
	history  []*models.SalesRecord
	peerMean float64
	active   *predict.ActiveModel
	degraded bool
	date     time.Time
	vendorID string
	now      time.Time
}

func (e *Engine) recommendProduct(ctx context.Context, pc productContext) (*models.Recommendation, error) {
	vec, err := feature.Build(feature.Inputs{
		Product: pc.product,
		Venue:   pc.venue,
		Profile: pc.profile,
		Weather: pc.weather,
		Events:  pc.events,
		History: pc.history,
		Date:    pc.date,
	})
	if err != nil {
		return nil, err
	}

	var modelQty, uncertainty float64
	if pc.active != nil && pc.state != models.VenueCold {
		modelQty, uncertainty, err = pc.active.Ensemble.Predict(vec)
		if err != nil {
			return nil, fmt.Errorf("model predict: %w", err)
		}
	}

	movingAvg := 0.0
	if stats := pc.profile.ByProduct[pc.product.ID]; stats != nil {
		movingAvg = stats.MeanQuantity
	}

	// A missing model forces cold-start quantities regardless of the
	// venue's actual state; confidence reflects the true state.
	resolveState := pc.state
	if pc.degraded {
		resolveState = models.VenueCold
		if pc.peerMean == 0 {
			pc.peerMean = movingAvg
		}
	}

	multiplier, tags := e.demandShift(vec, pc)
	res := e.resolver.Resolve(
		resolveState,
		pc.profile.SampleCount,
		modelQty,
		movingAvg,
		pc.peerMean,
		pc.product.Increment(),
	)

	// The heuristic multipliers compensate for signals the trained model
	// never saw. The HOT/WARM paths already consume weather and event
	// features through the model, so scaling there would count the same
	// signal twice; only the fallback baseline gets the adjustment.
	if res.Fallback && multiplier != 1.0 {
		res.Quantity = predict.ScaleToIncrement(res.Quantity, multiplier, pc.product.Increment())
	}

	if res.Blended {
		tags = append(tags, models.TagBlendedAverage)
	}
	if res.Fallback && !pc.degraded {
		tags = append(tags, models.TagLowDataFallback)
	}
	if pc.degraded {
		tags = append(tags, models.TagDegradedModel)
	}
	if pc.stale {
		tags = append(tags, models.TagStaleVenue)
	}

	tier := e.conf.Tier(predict.ConfidenceInput{
		State:       pc.state,
		Stale:       pc.stale,
		Uncertainty: uncertainty,
		Degraded:    pc.degraded,
	})

	rec := &models.Recommendation{
		ID:                  uuid.NewString(),
		VendorID:            pc.vendorID,
		VenueID:             pc.venue.ID,
		ProductID:           pc.product.ID,
		Date:                pc.date,
		RecommendedQuantity: res.Quantity,
		ConfidenceTier:      tier,
		ExplanationTags:     tags,
		CreatedAt:           pc.now,
	}
	if pc.active != nil {
		rec.ModelVersionID = pc.active.Version.ID
	}
	return rec, nil
}

// demandShift computes the heuristic multiplier and its explanation tags
// from the built feature vector.
func (e *Engine) demandShift(vec []float64, pc productContext) (float64, []string) {
	multiplier := 1.0
	var tags []string

	if pc.weather != nil && pc.weather.IsRainy() {
		multiplier *= rainMultiplier
		tags = append(tags, models.TagWeatherAdjusted)
	}
	if pc.weather != nil && pc.weather.Source == models.SourceHistoricalAverage {
		tags = append(tags, models.TagHistoricalWeather)
	}
	if idx := feature.Index("has_large_event"); idx >= 0 && vec[idx] == 1 {
		multiplier *= largeEventMultiplier
		tags = append(tags, models.TagEventBoosted)
	}
	if idx := feature.Index("is_seasonal_product"); idx >= 0 && vec[idx] == 1 {
		tags = append(tags, models.TagSeasonalProduct)
	}
	return multiplier, tags
}

// activeModel snapshots the active version once for the whole batch.
func (e *Engine) activeModel(ctx context.Context) (*predict.ActiveModel, bool) {
	active, err := e.model.Active(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoActiveModel) {
			logging.Ctx(ctx).Error().Err(err).Msg("active model unavailable, generating degraded batch")
		}
		return nil, true
	}
	return active, false
}

// resolvedEvents merges manual and external events with manual precedence.
func (e *Engine) resolvedEvents(ctx context.Context, venue *models.Venue, date time.Time) []*models.EventRecord {
	var merged []models.EventRecord

	if e.manual != nil {
		manual, err := e.manual.ListByVenueDate(ctx, venue.ID, date)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("manual event lookup failed")
		}
		for _, ev := range manual {
			merged = append(merged, *ev)
		}
	}

	if e.events != nil {
		external, err := e.events.EventsNear(ctx, venue.Latitude, venue.Longitude, e.cfg.EventRadiusKM, date)
		if err == nil {
			for _, ev := range external {
				ev.VenueID = venue.ID
				merged = append(merged, *ev)
			}
		}
	}

	resolved := models.ResolveEvents(merged)
	out := make([]*models.EventRecord, len(resolved))
	for i := range resolved {
		out[i] = &resolved[i]
	}
	return out
}

// orderByTrailingRevenue sorts products by their revenue at this venue
// over the trailing window, highest first. Products with no recent sales
// keep their relative order at the end.
func (e *Engine) orderByTrailingRevenue(products []*models.Product, venueSales []*models.SalesRecord, date time.Time) {
	start := date.AddDate(0, 0, -e.cfg.RevenueWindowDays)
	revenue := make(map[string]float64)
	for _, rec := range venueSales {
		if rec.Date.Before(start) || !rec.Date.Before(date) {
			continue
		}
		revenue[rec.ProductID] += rec.Revenue()
	}
	sort.SliceStable(products, func(i, j int) bool {
		return revenue[products[i].ID] > revenue[products[j].ID]
	})
}

// peerMeans maps product ID to that product's mean quantity at every
// other venue. Only computed for COLD venues.
func (e *Engine) peerMeans(ctx context.Context, excludeVenueID string) (map[string][]float64, error) {
	all, err := e.sales.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cross-venue sales: %w", err)
	}

	type agg struct {
		sum float64
		n   int
	}
	byVenueProduct := make(map[string]map[string]*agg)
	for _, rec := range all {
		if rec.VenueID == excludeVenueID {
			continue
		}
		products, ok := byVenueProduct[rec.VenueID]
		if !ok {
			products = make(map[string]*agg)
			byVenueProduct[rec.VenueID] = products
		}
		a, ok := products[rec.ProductID]
		if !ok {
			a = &agg{}
			products[rec.ProductID] = a
		}
		a.sum += float64(rec.QuantitySold)
		a.n++
	}

	means := make(map[string][]float64)
	for _, products := range byVenueProduct {
		for productID, a := range products {
			means[productID] = append(means[productID], a.sum/float64(a.n))
		}
	}
	return means, nil
}

func groupByProduct(records []*models.SalesRecord) map[string][]*models.SalesRecord {
	out := make(map[string][]*models.SalesRecord)
	for _, rec := range records {
		out[rec.ProductID] = append(out[rec.ProductID], rec)
	}
	return out
}
