// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package predict

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/stockpilot/stockpilot/internal/feature"
	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/models"
	"github.com/stockpilot/stockpilot/internal/storage"
)

// SalesSource provides the full sales history for dataset assembly.
type SalesSource interface {
	ListAll(ctx context.Context) ([]*models.SalesRecord, error)
}

// CatalogSource resolves product and venue records.
type CatalogSource interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
}

// TrainingWeather supplies weather for historical dates. Training uses
// the climatological fallback provider: deterministic, offline, and the
// same distribution a degraded prediction path would see.
type TrainingWeather interface {
	Forecast(ctx context.Context, lat, lon float64, date time.Time) (*models.WeatherSnapshot, error)
}

// DatasetBuilder turns the sales ledger into supervised training rows.
// Each sale becomes one row whose features are computed only from data
// strictly before the sale date, replaying history in order so training
// never peeks ahead of the date it predicts.
type DatasetBuilder struct {
	sales   SalesSource
	catalog CatalogSource
	weather TrainingWeather
}

// NewDatasetBuilder creates a dataset builder.
func NewDatasetBuilder(sales SalesSource, catalog CatalogSource, weather TrainingWeather) *DatasetBuilder {
	return &DatasetBuilder{sales: sales, catalog: catalog, weather: weather}
}

// venueAgg holds a venue's running aggregates during the replay.
type venueAgg struct {
	sampleCount int
	firstDate   time.Time
	lastDate    time.Time
	byProduct   map[string]*productAgg
	histories   map[string][]*models.SalesRecord
}

type productAgg struct {
	count int
	mean  float64
	m2    float64
	max   int
	last  time.Time
}

// Build assembles the dataset from the full sales ledger.
func (b *DatasetBuilder) Build(ctx context.Context) ([]Row, error) {
	records, err := b.sales.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sales ledger: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	products := make(map[string]*models.Product)
	venuesByID := make(map[string]*models.Venue)
	venues := make(map[string]*venueAgg)
	skipped := 0
	rows := make([]Row, 0, len(records))

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		product, ok := products[rec.ProductID]
		if !ok {
			product, err = b.catalog.GetProduct(ctx, rec.ProductID)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					return nil, fmt.Errorf("resolve product %s: %w", rec.ProductID, err)
				}
				product = nil
			}
			products[rec.ProductID] = product
		}
		venue, ok := venuesByID[rec.VenueID]
		if !ok {
			venue, err = b.catalog.GetVenue(ctx, rec.VenueID)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					return nil, fmt.Errorf("resolve venue %s: %w", rec.VenueID, err)
				}
				venue = nil
			}
			venuesByID[rec.VenueID] = venue
		}

		agg, ok := venues[rec.VenueID]
		if !ok {
			agg = &venueAgg{
				byProduct: make(map[string]*productAgg),
				histories: make(map[string][]*models.SalesRecord),
			}
			venues[rec.VenueID] = agg
		}

		// Orphaned ledger rows (deleted product or venue) still advance
		// the aggregates below but produce no training row.
		if product != nil && venue != nil {
			row, rowErr := b.buildRow(ctx, rec, product, venue, agg)
			if rowErr != nil {
				skipped++
			} else {
				rows = append(rows, row)
			}
		} else {
			skipped++
		}

		agg.observe(rec)
	}

	if skipped > 0 {
		logging.Debug().Int("skipped", skipped).Int("rows", len(rows)).
			Msg("dataset assembled with skipped ledger rows")
	}
	return rows, nil
}

func (b *DatasetBuilder) buildRow(ctx context.Context, rec *models.SalesRecord, product *models.Product, venue *models.Venue, agg *venueAgg) (Row, error) {
	profile := agg.snapshot(rec.VenueID, rec.ProductID)

	var weather *models.WeatherSnapshot
	if b.weather != nil {
		snap, err := b.weather.Forecast(ctx, venue.Latitude, venue.Longitude, rec.Date)
		if err == nil {
			weather = snap
		}
	}

	vec, err := feature.Build(feature.Inputs{
		Product: product,
		Venue:   venue,
		Profile: profile,
		Weather: weather,
		History: agg.histories[rec.ProductID],
		Date:    rec.Date,
	})
	if err != nil {
		return Row{}, err
	}
	return Row{Features: vec, Target: float64(rec.QuantitySold), Date: rec.Date}, nil
}

// observe folds a record into the running aggregates after the row for
// that record has been built.
func (a *venueAgg) observe(rec *models.SalesRecord) {
	a.sampleCount++
	if a.firstDate.IsZero() || rec.Date.Before(a.firstDate) {
		a.firstDate = rec.Date
	}
	if rec.Date.After(a.lastDate) {
		a.lastDate = rec.Date
	}

	p, ok := a.byProduct[rec.ProductID]
	if !ok {
		p = &productAgg{}
		a.byProduct[rec.ProductID] = p
	}
	q := float64(rec.QuantitySold)
	p.count++
	delta := q - p.mean
	p.mean += delta / float64(p.count)
	p.m2 += delta * (q - p.mean)
	if rec.QuantitySold > p.max {
		p.max = rec.QuantitySold
	}
	if rec.Date.After(p.last) {
		p.last = rec.Date
	}

	a.histories[rec.ProductID] = append(a.histories[rec.ProductID], rec)
}

// snapshot produces the as-of profile view the feature builder needs,
// covering only the product being predicted.
func (a *venueAgg) snapshot(venueID, productID string) *models.VenueProfile {
	profile := &models.VenueProfile{
		VenueID:         venueID,
		SampleCount:     a.sampleCount,
		FirstSampleDate: a.firstDate,
		LastSampleDate:  a.lastDate,
		ByProduct:       make(map[string]*models.ProductStats, 1),
	}
	if p, ok := a.byProduct[productID]; ok {
		variance := 0.0
		if p.count > 1 {
			variance = p.m2 / float64(p.count-1)
		}
		profile.ByProduct[productID] = &models.ProductStats{
			SampleCount:  p.count,
			MeanQuantity: p.mean,
			MaxQuantity:  p.max,
			Variance:     variance,
			LastSaleDate: p.last,
		}
	}
	return profile
}

// SplitHoldout partitions rows into training and holdout sets. Rows are
// ordered by date and the most recent fraction is held out, so validation
// measures the candidate against the data closest to what it will serve
// and a drifting pattern fails the gate. The holdout always keeps at
// least one row when the fraction and input allow it.
func SplitHoldout(rows []Row, fraction float64) (train, holdout []Row) {
	if len(rows) == 0 {
		return nil, nil
	}
	ordered := make([]Row, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	n := int(float64(len(ordered)) * fraction)
	if n < 1 {
		n = 1
	}
	if n >= len(ordered) {
		n = len(ordered) - 1
	}
	cut := len(ordered) - n
	return ordered[:cut], ordered[cut:]
}
