// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kisanlabs/agroadvisor/internal/advisor/models"
	"github.com/kisanlabs/agroadvisor/internal/metrics"
)

// FeedbackLedger is the durable, append-only record of user feedback.
type FeedbackLedger interface {
	Append(ctx context.Context, entry FeedbackEntry) error
	All(ctx context.Context) ([]FeedbackEntry, error)
	User(ctx context.Context, userID string) ([]FeedbackEntry, error)
	Count(ctx context.Context) (int, error)
	UserCount(ctx context.Context) (int, error)
}

// TrainingStore holds the labelled training corpus.
type TrainingStore interface {
	// Seed inserts the bootstrap corpus if the store is empty.
	Seed(ctx context.Context, records []TrainingRecord) error

	// Append inserts new records, ignoring source IDs already present.
	Append(ctx context.Context, records []TrainingRecord) error

	All(ctx context.Context) ([]TrainingRecord, error)
	Count(ctx context.Context) (int, error)
}

// ArtifactStore persists trained model sets across restarts.
type ArtifactStore interface {
	Save(set *ModelSet) error

	// LoadLatest returns the newest persisted set, or ok=false when none
	// exists.
	LoadLatest() (*ModelSet, bool, error)
}

// RetrainEvent describes a completed retraining cycle.
type RetrainEvent struct {
	Version  int           `json:"version"`
	Records  int           `json:"records"`
	Trigger  string        `json:"trigger"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// EventSink receives engine lifecycle events. Implementations must be safe
// for concurrent use.
type EventSink interface {
	FeedbackRecorded(ctx context.Context, entry FeedbackEntry) error
	ModelRetrained(ctx context.Context, event RetrainEvent) error
}

// Service is the recommendation engine. It trains on a labelled corpus,
// serves predictions from an atomically published model set, and folds user
// feedback back into the corpus at retraining checkpoints.
type Service struct {
	cfg       Config
	log       zerolog.Logger
	store     TrainingStore
	ledger    FeedbackLedger
	artifacts ArtifactStore
	events    EventSink

	reg       registry
	rerankers []Reranker

	// feedbackMu serializes feedback ingestion so checkpoint counting
	// stays exact; trainMu serializes retraining itself.
	feedbackMu sync.Mutex
	trainMu    sync.Mutex

	now func() time.Time
}

// New creates the engine. The artifact store and event sink may be nil, in
// which case persistence of trained models and event publication are
// skipped.
func New(cfg Config, store TrainingStore, ledger FeedbackLedger, artifacts ArtifactStore, events EventSink, log zerolog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("advisor config: %w", err)
	}
	if store == nil {
		return nil, errors.New("training store is required")
	}
	if ledger == nil {
		return nil, errors.New("feedback ledger is required")
	}
	return &Service{
		cfg:       cfg,
		log:       log.With().Str("component", "advisor").Logger(),
		store:     store,
		ledger:    ledger,
		artifacts: artifacts,
		events:    events,
		now:       time.Now,
	}, nil
}

// RegisterReranker appends a post-processing stage to crop recommendations.
// Rerankers run in registration order. Not safe to call once the service is
// serving requests.
func (s *Service) RegisterReranker(r Reranker) {
	s.rerankers = append(s.rerankers, r)
	s.log.Info().Str("reranker", r.Name()).Msg("reranker registered")
}

// Init loads a persisted model set if one exists, otherwise seeds the
// training store with the bootstrap corpus and trains the first set.
func (s *Service) Init(ctx context.Context) error {
	count, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: count training rows: %v", ErrPersistence, err)
	}
	if count == 0 {
		if err := s.store.Seed(ctx, BootstrapRecords()); err != nil {
			return fmt.Errorf("%w: seed training store: %v", ErrPersistence, err)
		}
		s.log.Info().Int("records", len(BootstrapRecords())).Msg("training store seeded")
	}

	if s.artifacts != nil {
		set, ok, err := s.artifacts.LoadLatest()
		if err != nil {
			s.log.Warn().Err(err).Msg("loading persisted models failed, retraining from corpus")
		} else if ok {
			s.reg.Publish(set)
			metrics.SetModelVersion(set.Version)
			metrics.SetTrainingRows(set.RecordCount)
			s.log.Info().
				Int("version", set.Version).
				Int("records", set.RecordCount).
				Msg("persisted model set loaded")
			return nil
		}
	}

	return s.retrain(ctx, "startup")
}

// RecommendCrop returns the top ranked crops for the given conditions.
func (s *Service) RecommendCrop(ctx context.Context, cond Conditions) (*CropRecommendation, error) {
	set, err := s.reg.Current()
	if err != nil {
		return nil, err
	}

	x, err := set.Codec.Encode(cond)
	if err != nil {
		return nil, asValidationError(err)
	}

	proba, err := set.Bundle(TaskCrop).Classifier.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("crop prediction: %w", err)
	}

	scores := rankScores(proba, set.Bundle(TaskCrop).Classifier.Classes(), 3)
	for _, r := range s.rerankers {
		reranked, err := r.Rerank(ctx, cond, scores)
		if err != nil {
			s.log.Warn().Err(err).Str("reranker", r.Name()).Msg("reranker failed, keeping prior ranking")
			continue
		}
		scores = reranked
	}

	outlook, err := s.predictScaled(set, TaskPrice, x)
	if err != nil {
		return nil, fmt.Errorf("price prediction: %w", err)
	}

	metrics.PredictionServed(string(TaskCrop))
	return &CropRecommendation{
		Crops:         scores,
		MarketOutlook: outlook[0],
		ModelAccuracy: set.TaskMetrics(TaskCrop).Accuracy,
		ModelVersion:  set.Version,
		GeneratedAt:   s.now().UTC(),
	}, nil
}

// RecommendCropPersonalized ranks crops as RecommendCrop does and then
// boosts entries the user has had success with, provided the user has
// enough recent history.
func (s *Service) RecommendCropPersonalized(ctx context.Context, userID string, cond Conditions) (*CropRecommendation, error) {
	if userID == "" {
		return nil, validationErr("user_id", "must not be empty")
	}

	rec, err := s.RecommendCrop(ctx, cond)
	if err != nil {
		return nil, err
	}

	history, err := s.ledger.User(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load user history: %v", ErrPersistence, err)
	}

	now := s.now()
	if recentCount(s.cfg, history, now) < s.cfg.MinUserHistory {
		rec.Personalization = &Personalization{Applied: false}
		return rec, nil
	}

	profile := buildProfile(s.cfg, history, now)
	rec.Crops = personalize(s.cfg, rec.Crops, profile)
	rec.Personalization = &Personalization{
		Applied:        len(profile.preferredCrops) > 0,
		SuccessRate:    profile.successRate,
		PreferredCrops: profile.preferredCropNames(),
	}
	return rec, nil
}

// PredictYield estimates the yield for a crop under the given conditions,
// with a ±15% range and the weather suitability score for the conditions.
func (s *Service) PredictYield(ctx context.Context, crop string, cond Conditions) (*YieldPrediction, error) {
	if crop == "" {
		return nil, validationErr("crop", "must not be empty")
	}

	set, err := s.reg.Current()
	if err != nil {
		return nil, err
	}
	x, err := set.Codec.Encode(cond)
	if err != nil {
		return nil, asValidationError(err)
	}

	est, err := s.predictScaled(set, TaskYield, x)
	if err != nil {
		return nil, fmt.Errorf("yield prediction: %w", err)
	}
	impact, err := s.predictScaled(set, TaskWeatherImpact, x)
	if err != nil {
		return nil, fmt.Errorf("weather impact prediction: %w", err)
	}

	interval := est[0] * 0.15
	metrics.PredictionServed(string(TaskYield))
	return &YieldPrediction{
		Crop:          crop,
		Estimate:      est[0],
		Interval:      interval,
		Range:         YieldRange{Min: est[0] - interval, Max: est[0] + interval},
		WeatherImpact: impact[0],
		ModelR2:       set.TaskMetrics(TaskYield).R2,
		ModelVersion:  set.Version,
		GeneratedAt:   s.now().UTC(),
	}, nil
}

// PredictFertilizer estimates the NPK dose for a crop under the given
// conditions.
func (s *Service) PredictFertilizer(ctx context.Context, crop string, cond Conditions) (*FertilizerPlan, error) {
	if crop == "" {
		return nil, validationErr("crop", "must not be empty")
	}

	set, err := s.reg.Current()
	if err != nil {
		return nil, err
	}
	x, err := set.Codec.Encode(cond)
	if err != nil {
		return nil, asValidationError(err)
	}

	npk, err := s.predictScaled(set, TaskFertilizer, x)
	if err != nil {
		return nil, fmt.Errorf("fertilizer prediction: %w", err)
	}

	metrics.PredictionServed(string(TaskFertilizer))
	return &FertilizerPlan{
		Crop:         crop,
		NPK:          NPK{Nitrogen: npk[0], Phosphorus: npk[1], Potassium: npk[2]},
		ModelR2:      set.TaskMetrics(TaskFertilizer).R2,
		ModelVersion: set.Version,
		GeneratedAt:  s.now().UTC(),
	}, nil
}

// RecordFeedback appends a feedback entry to the ledger and evaluates the
// retraining checkpoint. Retraining failures are logged, not returned; the
// feedback itself is durable once this method succeeds.
func (s *Service) RecordFeedback(ctx context.Context, entry FeedbackEntry) (*FeedbackEntry, error) {
	if err := validateFeedback(&entry); err != nil {
		return nil, err
	}

	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	s.feedbackMu.Lock()
	defer s.feedbackMu.Unlock()

	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: append feedback: %v", ErrPersistence, err)
	}
	metrics.FeedbackRecorded(string(entry.PredictionType))

	if s.events != nil {
		if err := s.events.FeedbackRecorded(ctx, entry); err != nil {
			s.log.Warn().Err(err).Msg("publishing feedback event failed")
		}
	}

	total, err := s.ledger.Count(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("counting feedback failed, skipping checkpoint")
		return &entry, nil
	}
	metrics.SetLedgerSize(total)

	if total%s.cfg.RetrainEvery != 0 {
		return &entry, nil
	}
	if err := s.checkpointRetrain(ctx, total); err != nil {
		s.log.Error().Err(err).Int("feedback_total", total).Msg("checkpoint retraining failed")
	}
	return &entry, nil
}

// ModelPerformance reports the current model metrics and corpus counters.
func (s *Service) ModelPerformance(ctx context.Context) (*Performance, error) {
	set, err := s.reg.Current()
	if err != nil {
		return nil, err
	}

	feedback, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count feedback: %v", ErrPersistence, err)
	}
	users, err := s.ledger.UserCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count users: %v", ErrPersistence, err)
	}

	status := "initial"
	if feedback > 0 {
		status = "active"
	}
	return &Performance{
		Metrics:       set.Metrics,
		ModelVersion:  set.Version,
		TrainingRows:  set.RecordCount,
		FeedbackCount: feedback,
		UserCount:     users,
		LastRetrained: set.TrainedAt,
		Status:        status,
	}, nil
}

// Close persists the current model set.
func (s *Service) Close() error {
	if s.artifacts == nil {
		return nil
	}
	set, err := s.reg.Current()
	if err != nil {
		return nil
	}
	if err := s.artifacts.Save(set); err != nil {
		return fmt.Errorf("%w: save models: %v", ErrPersistence, err)
	}
	return nil
}

// checkpointRetrain applies the retraining gates and, when they pass, folds
// recent crop feedback into the corpus and retrains. Caller holds
// feedbackMu.
func (s *Service) checkpointRetrain(ctx context.Context, total int) error {
	if total < s.cfg.MinFeedback {
		s.log.Debug().Int("total", total).Msg("not enough feedback for retraining")
		return nil
	}

	entries, err := s.ledger.All(ctx)
	if err != nil {
		return fmt.Errorf("%w: load feedback: %v", ErrPersistence, err)
	}

	now := s.now()
	cutoff := now.Add(-s.cfg.RetrainWindow)
	var recent []FeedbackEntry
	for _, e := range entries {
		if !e.CreatedAt.Before(cutoff) {
			recent = append(recent, e)
		}
	}
	if len(recent) < s.cfg.MinRecentFeedback {
		s.log.Debug().Int("recent", len(recent)).Msg("not enough recent feedback for retraining")
		return nil
	}

	var converted []TrainingRecord
	for _, e := range recent {
		if e.PredictionType != TaskCrop || e.Outcome.Crop == nil {
			continue
		}
		crop := *e.Outcome.Crop
		npk := fertilizerFor(crop, e.Conditions.SoilType, e.Conditions.Season)
		converted = append(converted, TrainingRecord{
			SourceID:   e.ID,
			Conditions: e.Conditions,
			Crop:       crop,
			Yield:      baseYieldFor(crop, e.Conditions.SoilType),
			Nitrogen:   npk.Nitrogen,
			Phosphorus: npk.Phosphorus,
			Potassium:  npk.Potassium,
		})
	}
	if len(converted) > 0 {
		if err := s.store.Append(ctx, converted); err != nil {
			return fmt.Errorf("%w: append training rows: %v", ErrPersistence, err)
		}
	}

	return s.retrain(ctx, "checkpoint")
}

// retrain fits a fresh model set from the full corpus and publishes it.
// The previous set keeps serving if training fails.
func (s *Service) retrain(ctx context.Context, trigger string) error {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	start := s.now()
	records, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("%w: load corpus: %v", ErrPersistence, err)
	}

	version := 1
	if current, err := s.reg.Current(); err == nil {
		version = current.Version + 1
	}

	set, err := Train(s.cfg, records, version)
	if err != nil {
		metrics.RetrainingFailed()
		return err
	}

	s.reg.Publish(set)
	duration := s.now().Sub(start)
	metrics.RetrainingCompleted(duration)
	metrics.SetModelVersion(set.Version)
	metrics.SetTrainingRows(set.RecordCount)

	if s.artifacts != nil {
		if err := s.artifacts.Save(set); err != nil {
			s.log.Warn().Err(err).Int("version", set.Version).Msg("persisting model set failed")
		}
	}
	if s.events != nil {
		event := RetrainEvent{
			Version:  set.Version,
			Records:  set.RecordCount,
			Trigger:  trigger,
			Duration: duration,
			At:       s.now().UTC(),
		}
		if err := s.events.ModelRetrained(ctx, event); err != nil {
			s.log.Warn().Err(err).Msg("publishing retrain event failed")
		}
	}

	s.log.Info().
		Int("version", set.Version).
		Int("records", set.RecordCount).
		Str("trigger", trigger).
		Dur("duration", duration).
		Msg("model set trained")
	return nil
}

// predictScaled runs one regression bundle against an encoded feature
// vector.
func (s *Service) predictScaled(set *ModelSet, task Task, x []float64) ([]float64, error) {
	bundle := set.Bundle(task)
	if bundle == nil || bundle.Regressor == nil {
		return nil, fmt.Errorf("no %s model in set v%d", task, set.Version)
	}
	return bundle.Regressor.Predict(bundle.Scaler.Transform(x))
}

func validateFeedback(entry *FeedbackEntry) error {
	if entry.UserID == "" {
		return validationErr("user_id", "must not be empty")
	}
	if entry.Rating < 1 || entry.Rating > 5 {
		return validationErr("rating", "must be between 1 and 5, got %d", entry.Rating)
	}
	switch entry.PredictionType {
	case TaskCrop:
		if entry.Outcome.Yield != nil || entry.Outcome.Fertilizer != nil {
			return validationErr("outcome", "crop feedback must not carry yield or fertilizer outcomes")
		}
	case TaskYield:
		if entry.Outcome.Crop != nil || entry.Outcome.Fertilizer != nil {
			return validationErr("outcome", "yield feedback must not carry crop or fertilizer outcomes")
		}
	case TaskFertilizer:
		if entry.Outcome.Crop != nil || entry.Outcome.Yield != nil {
			return validationErr("outcome", "fertilizer feedback must not carry crop or yield outcomes")
		}
	default:
		return validationErr("prediction_type", "must be one of %s, %s, %s", TaskCrop, TaskYield, TaskFertilizer)
	}
	return nil
}

// rankScores converts a probability distribution into a ranked top-n list.
// Ties break lexically so results are deterministic.
func rankScores(proba map[string]float64, classes []string, n int) []CropScore {
	scores := make([]CropScore, 0, len(classes))
	for _, class := range classes {
		p := proba[class]
		scores = append(scores, CropScore{
			Crop:        class,
			Probability: p,
			Confidence:  ConfidenceLabel(p),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Probability != scores[j].Probability {
			return scores[i].Probability > scores[j].Probability
		}
		return scores[i].Crop < scores[j].Crop
	})
	if len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

// asValidationError converts codec category errors to the engine's
// validation error type, passing other errors through.
func asValidationError(err error) error {
	var unknown *models.UnknownCategoryError
	if errors.As(err, &unknown) {
		return validationErr(unknown.Field, "unknown value %q", unknown.Value)
	}
	return err
}
