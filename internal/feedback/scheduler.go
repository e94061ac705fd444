// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockpilot/stockpilot/internal/feature"
	"github.com/stockpilot/stockpilot/internal/logging"
	"github.com/stockpilot/stockpilot/internal/metrics"
	"github.com/stockpilot/stockpilot/internal/models"
	"github.com/stockpilot/stockpilot/internal/predict"
	"github.com/stockpilot/stockpilot/internal/storage"
)

// Phase is the scheduler's current position in the retraining cycle.
type Phase string

// Scheduler phases.
const (
	PhaseAccumulating Phase = "ACCUMULATING"
	PhaseTraining     Phase = "TRAINING"
	PhaseValidating   Phase = "VALIDATING"
)

// DatasetSource produces training rows from the sales ledger.
type DatasetSource interface {
	Build(ctx context.Context) ([]predict.Row, error)
}

// ModelWriter persists trained model versions and flips the active
// pointer.
type ModelWriter interface {
	SaveVersion(ctx context.Context, meta *models.ModelVersion, blob []byte) error
	SetActive(ctx context.Context, id, schemaHash string) error
	GetVersion(ctx context.Context, id string) (*models.ModelVersion, error)
	ActiveID(ctx context.Context) (string, error)
}

// PendingQueue exposes the feedback accumulated since the last run.
type PendingQueue interface {
	PendingCount(ctx context.Context) (int, error)
	ClearPending(ctx context.Context) error
}

// RunState tracks when the last retraining run finished.
type RunState interface {
	LastRunAt(ctx context.Context) (time.Time, error)
	SetLastRunAt(ctx context.Context, ts time.Time) error
}

// RegistryInvalidator drops the in-memory active model cache after an
// activation.
type RegistryInvalidator interface {
	Invalidate()
}

// SchedulerConfig controls retraining triggers and validation.
type SchedulerConfig struct {
	// BatchThreshold triggers a run once this many feedback records are
	// pending.
	BatchThreshold int

	// MaxInterval triggers a run when this much time has passed since
	// the last one and anything at all is pending.
	MaxInterval time.Duration

	// CheckInterval is how often the triggers are evaluated.
	CheckInterval time.Duration

	// Tolerance is the allowed holdout-error ratio of a candidate versus
	// the active model (1.10 = up to 10% worse still activates).
	Tolerance float64

	// HoldoutFraction is the share of rows reserved for validation.
	HoldoutFraction float64

	// TrainingTimeout bounds a single training run.
	TrainingTimeout time.Duration

	// Train configures the ensemble fit.
	Train predict.TrainConfig
}

func (c *SchedulerConfig) applyDefaults() {
	if c.BatchThreshold <= 0 {
		c.BatchThreshold = 50
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Minute
	}
	if c.Tolerance < 1 {
		c.Tolerance = 1.10
	}
	if c.HoldoutFraction <= 0 || c.HoldoutFraction >= 1 {
		c.HoldoutFraction = 0.2
	}
	if c.TrainingTimeout <= 0 {
		c.TrainingTimeout = 5 * time.Minute
	}
}

// SchedulerStatus is a point-in-time snapshot for the status endpoint.
type SchedulerStatus struct {
	Phase        Phase     `json:"phase"`
	PendingCount int       `json:"pending_count"`
	LastRunAt    time.Time `json:"last_run_at,omitempty"`
}

// Scheduler retrains the prediction model from accumulated feedback. It
// runs as a supervised service: the supervisor restarts it if Serve
// returns. Cycles are single-flight; a trigger that fires while a run is
// in progress is skipped, not queued.
type Scheduler struct {
	cfg      SchedulerConfig
	dataset  DatasetSource
	store    ModelWriter
	queue    PendingQueue
	state    RunState
	registry RegistryInvalidator
	log      zerolog.Logger
	now      func() time.Time

	runMu   sync.Mutex
	phaseMu sync.RWMutex
	phase   Phase
}

// NewScheduler wires a retraining scheduler.
func NewScheduler(cfg SchedulerConfig, dataset DatasetSource, store ModelWriter, queue PendingQueue, state RunState, registry RegistryInvalidator) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		cfg:      cfg,
		dataset:  dataset,
		store:    store,
		queue:    queue,
		state:    state,
		registry: registry,
		log:      logging.With().Str("component", "retrain_scheduler").Logger(),
		now:      time.Now,
		phase:    PhaseAccumulating,
	}
}

// Serve runs the trigger loop until ctx is cancelled. It satisfies the
// supervisor's service contract.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.log.Info().
		Int("batch_threshold", s.cfg.BatchThreshold).
		Dur("max_interval", s.cfg.MaxInterval).
		Dur("check_interval", s.cfg.CheckInterval).
		Msg("retraining scheduler started")

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("retraining scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error().Err(err).Msg("retraining cycle failed")
			}
		}
	}
}

// Status reports the current phase and trigger state.
func (s *Scheduler) Status(ctx context.Context) SchedulerStatus {
	s.phaseMu.RLock()
	phase := s.phase
	s.phaseMu.RUnlock()

	st := SchedulerStatus{Phase: phase}
	if n, err := s.queue.PendingCount(ctx); err == nil {
		st.PendingCount = n
	}
	if ts, err := s.state.LastRunAt(ctx); err == nil {
		st.LastRunAt = ts
	}
	return st
}

// Tick evaluates the triggers and runs one cycle if either fires. It is
// exported so an operator endpoint can force an evaluation.
func (s *Scheduler) Tick(ctx context.Context) error {
	pending, err := s.queue.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("count pending feedback: %w", err)
	}
	if pending == 0 {
		return nil
	}

	lastRun, err := s.state.LastRunAt(ctx)
	if err != nil {
		return fmt.Errorf("load last run: %w", err)
	}

	byBatch := pending >= s.cfg.BatchThreshold
	byAge := s.now().Sub(lastRun) >= s.cfg.MaxInterval
	if !byBatch && !byAge {
		return nil
	}
	return s.runCycle(ctx, pending)
}

func (s *Scheduler) runCycle(ctx context.Context, pending int) error {
	if !s.runMu.TryLock() {
		s.log.Debug().Msg("retraining already in progress, skipping trigger")
		return nil
	}
	defer s.runMu.Unlock()
	defer s.setPhase(PhaseAccumulating)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TrainingTimeout)
	defer cancel()

	s.setPhase(PhaseTraining)
	s.log.Info().Int("pending_feedback", pending).Msg("retraining cycle started")

	rows, err := s.dataset.Build(ctx)
	if err != nil {
		metrics.RetrainingRunsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("build training dataset: %w", err)
	}

	train, holdout := predict.SplitHoldout(rows, s.cfg.HoldoutFraction)
	candidate, err := predict.TrainEnsemble(train, feature.SchemaHash(), s.cfg.Train)
	if err != nil {
		if errors.Is(err, predict.ErrInsufficientData) {
			// Not enough history yet. Record the attempt so the
			// age trigger does not fire every tick.
			s.log.Warn().Err(err).Int("rows", len(train)).Msg("retraining skipped")
			return s.finishRun(ctx)
		}
		metrics.RetrainingRunsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("train candidate model: %w", err)
	}

	s.setPhase(PhaseValidating)
	candidateMAE, err := candidate.MAE(holdout)
	if err != nil {
		metrics.RetrainingRunsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("evaluate candidate model: %w", err)
	}

	ok, activeMAE, err := s.passesGate(ctx, candidateMAE)
	if err != nil {
		metrics.RetrainingRunsTotal.WithLabelValues("failed").Inc()
		return err
	}
	if !ok {
		metrics.RetrainingRunsTotal.WithLabelValues("discarded").Inc()
		s.log.Error().
			Float64("candidate_mae", candidateMAE).
			Float64("active_mae", activeMAE).
			Float64("tolerance", s.cfg.Tolerance).
			Msg("candidate model discarded: holdout error regressed past tolerance")
		return s.finishRun(ctx)
	}

	version, err := s.activate(ctx, candidate, len(train), candidateMAE)
	if err != nil {
		metrics.RetrainingRunsTotal.WithLabelValues("failed").Inc()
		return err
	}

	metrics.RetrainingRunsTotal.WithLabelValues("activated").Inc()
	metrics.SetActiveModel(version.ID)
	s.log.Info().
		Str("model_version", version.ID).
		Int("training_rows", version.TrainingRowCount).
		Float64("holdout_mae", version.HoldoutMAE).
		Msg("new model version activated")
	return s.finishRun(ctx)
}

// passesGate compares the candidate's holdout error against the active
// model's recorded one. With no active model any candidate activates.
func (s *Scheduler) passesGate(ctx context.Context, candidateMAE float64) (ok bool, activeMAE float64, err error) {
	activeID, err := s.store.ActiveID(ctx)
	if errors.Is(err, storage.ErrNoActiveModel) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("load active model id: %w", err)
	}
	active, err := s.store.GetVersion(ctx, activeID)
	if err != nil {
		return false, 0, fmt.Errorf("load active model version: %w", err)
	}
	return candidateMAE <= active.HoldoutMAE*s.cfg.Tolerance, active.HoldoutMAE, nil
}

func (s *Scheduler) activate(ctx context.Context, candidate *predict.Ensemble, trainRows int, holdoutMAE float64) (*models.ModelVersion, error) {
	blob, err := candidate.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode candidate model: %w", err)
	}
	version := &models.ModelVersion{
		ID:                uuid.NewString(),
		TrainedAt:         s.now().UTC(),
		TrainingRowCount:  trainRows,
		FeatureSchemaHash: candidate.SchemaHash,
		HoldoutMAE:        holdoutMAE,
		Checksum:          predict.Checksum(blob),
		SizeBytes:         int64(len(blob)),
	}
	if err := s.store.SaveVersion(ctx, version, blob); err != nil {
		return nil, fmt.Errorf("save model version: %w", err)
	}
	if err := s.store.SetActive(ctx, version.ID, feature.SchemaHash()); err != nil {
		return nil, fmt.Errorf("activate model version: %w", err)
	}
	if s.registry != nil {
		s.registry.Invalidate()
	}
	return version, nil
}

// finishRun drains the pending queue and stamps the run time. Discarded
// runs drain too: the feedback stays in the sales ledger and will be in
// every future dataset, so the queue only needs to count new arrivals.
func (s *Scheduler) finishRun(ctx context.Context) error {
	if err := s.queue.ClearPending(ctx); err != nil {
		return fmt.Errorf("clear pending feedback: %w", err)
	}
	if err := s.state.SetLastRunAt(ctx, s.now().UTC()); err != nil {
		return fmt.Errorf("record run time: %w", err)
	}
	return nil
}

func (s *Scheduler) setPhase(p Phase) {
	s.phaseMu.Lock()
	s.phase = p
	s.phaseMu.Unlock()
}
