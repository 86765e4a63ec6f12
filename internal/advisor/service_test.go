// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// In-memory stand-ins for the duckdb store, badger ledger, artifact store,
// and event bus.

type memStore struct {
	mu      sync.Mutex
	records []TrainingRecord
	seen    map[string]bool
}

func newMemStore() *memStore {
	return &memStore{seen: make(map[string]bool)}
}

func (s *memStore) Seed(ctx context.Context, records []TrainingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) > 0 {
		return nil
	}
	for _, r := range records {
		s.records = append(s.records, r)
		s.seen[r.SourceID] = true
	}
	return nil
}

func (s *memStore) Append(ctx context.Context, records []TrainingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if s.seen[r.SourceID] {
			continue
		}
		s.records = append(s.records, r)
		s.seen[r.SourceID] = true
	}
	return nil
}

func (s *memStore) All(ctx context.Context) ([]TrainingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrainingRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *memStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

type memLedger struct {
	mu      sync.Mutex
	entries []FeedbackEntry
}

func (l *memLedger) Append(ctx context.Context, entry FeedbackEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memLedger) All(ctx context.Context) ([]FeedbackEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]FeedbackEntry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

func (l *memLedger) User(ctx context.Context, userID string) ([]FeedbackEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []FeedbackEntry
	for _, e := range l.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *memLedger) Count(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries), nil
}

func (l *memLedger) UserCount(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	users := make(map[string]struct{})
	for _, e := range l.entries {
		users[e.UserID] = struct{}{}
	}
	return len(users), nil
}

type memArtifacts struct {
	mu  sync.Mutex
	set *ModelSet
}

func (a *memArtifacts) Save(set *ModelSet) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set = set
	return nil
}

func (a *memArtifacts) LoadLatest() (*ModelSet, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.set == nil {
		return nil, false, nil
	}
	return a.set, true, nil
}

type memSink struct {
	mu        sync.Mutex
	feedback  []FeedbackEntry
	retrained []RetrainEvent
}

func (s *memSink) FeedbackRecorded(ctx context.Context, entry FeedbackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, entry)
	return nil
}

func (s *memSink) ModelRetrained(ctx context.Context, event RetrainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retrained = append(s.retrained, event)
	return nil
}

func (s *memSink) retrainEvents() []RetrainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RetrainEvent, len(s.retrained))
	copy(out, s.retrained)
	return out
}

type testEnv struct {
	svc    *Service
	store  *memStore
	ledger *memLedger
	sink   *memSink
}

func newTestService(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	store := newMemStore()
	ledger := &memLedger{}
	sink := &memSink{}
	svc, err := New(cfg, store, ledger, &memArtifacts{}, sink, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return &testEnv{svc: svc, store: store, ledger: ledger, sink: sink}
}

func riceConditions() Conditions {
	return Conditions{
		SoilType:      "loamy",
		Season:        "kharif",
		Temperature:   28,
		Rainfall:      1200,
		Humidity:      70,
		PH:            6.5,
		OrganicMatter: 2.5,
	}
}

func wheatConditions() Conditions {
	return Conditions{
		SoilType:      "loamy",
		Season:        "rabi",
		Temperature:   22,
		Rainfall:      400,
		Humidity:      60,
		PH:            6.5,
		OrganicMatter: 2.5,
	}
}

func cropFeedback(user, crop string, rating int, at time.Time) FeedbackEntry {
	return FeedbackEntry{
		UserID:         user,
		PredictionType: TaskCrop,
		Conditions:     riceConditions(),
		Outcome:        Outcome{Crop: &crop},
		Rating:         rating,
		CreatedAt:      at,
	}
}

func TestInitTrainsFromBootstrap(t *testing.T) {
	env := newTestService(t, DefaultConfig())

	rec, err := env.svc.RecommendCrop(context.Background(), riceConditions())
	if err != nil {
		t.Fatalf("RecommendCrop: %v", err)
	}

	if rec.ModelVersion != 1 {
		t.Errorf("model version = %d, want 1", rec.ModelVersion)
	}
	if len(rec.Crops) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(rec.Crops))
	}
	if rec.Crops[0].Crop != "rice" {
		t.Errorf("top crop = %q, want rice", rec.Crops[0].Crop)
	}
	if rec.Crops[0].Confidence != "high" {
		t.Errorf("top confidence = %q, want high", rec.Crops[0].Confidence)
	}
	if rec.Crops[0].Probability < 0.99 {
		t.Errorf("top probability = %v, want near 1", rec.Crops[0].Probability)
	}
	if rec.MarketOutlook <= 0 {
		t.Errorf("market outlook = %v, want positive", rec.MarketOutlook)
	}
}

func TestRecommendCropRabiSeason(t *testing.T) {
	env := newTestService(t, DefaultConfig())

	rec, err := env.svc.RecommendCrop(context.Background(), wheatConditions())
	if err != nil {
		t.Fatalf("RecommendCrop: %v", err)
	}
	if rec.Crops[0].Crop != "wheat" {
		t.Errorf("top crop = %q, want wheat", rec.Crops[0].Crop)
	}
}

func TestRecommendCropUnknownSoil(t *testing.T) {
	env := newTestService(t, DefaultConfig())

	cond := riceConditions()
	cond.SoilType = "glacial"
	_, err := env.svc.RecommendCrop(context.Background(), cond)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Field != "soil_type" {
		t.Errorf("field = %q, want soil_type", verr.Field)
	}
}

func TestRecommendCropBeforeInit(t *testing.T) {
	svc, err := New(DefaultConfig(), newMemStore(), &memLedger{}, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = svc.RecommendCrop(context.Background(), riceConditions())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("error = %v, want ErrModelUnavailable", err)
	}
}

func TestPredictYield(t *testing.T) {
	env := newTestService(t, DefaultConfig())

	pred, err := env.svc.PredictYield(context.Background(), "rice", riceConditions())
	if err != nil {
		t.Fatalf("PredictYield: %v", err)
	}

	// Exact bootstrap conditions for loamy kharif rice: base yield 4.5 t/ha.
	if pred.Estimate < 4.4 || pred.Estimate > 4.6 {
		t.Errorf("estimate = %v, want near 4.5", pred.Estimate)
	}
	wantInterval := pred.Estimate * 0.15
	if diff := pred.Interval - wantInterval; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("interval = %v, want %v", pred.Interval, wantInterval)
	}
	if pred.Range.Min >= pred.Estimate || pred.Range.Max <= pred.Estimate {
		t.Errorf("range %+v does not bracket estimate %v", pred.Range, pred.Estimate)
	}
	if pred.WeatherImpact <= 0 || pred.WeatherImpact > 1 {
		t.Errorf("weather impact = %v, want in (0,1]", pred.WeatherImpact)
	}
}

func TestPredictYieldEmptyCrop(t *testing.T) {
	env := newTestService(t, DefaultConfig())
	_, err := env.svc.PredictYield(context.Background(), "", riceConditions())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}

func TestPredictFertilizer(t *testing.T) {
	env := newTestService(t, DefaultConfig())

	plan, err := env.svc.PredictFertilizer(context.Background(), "rice", riceConditions())
	if err != nil {
		t.Fatalf("PredictFertilizer: %v", err)
	}

	// Loamy kharif rice: N 100*1.0*1.1=110, P 50, K 50.
	if plan.NPK.Nitrogen < 109 || plan.NPK.Nitrogen > 111 {
		t.Errorf("nitrogen = %v, want near 110", plan.NPK.Nitrogen)
	}
	if plan.NPK.Phosphorus < 49 || plan.NPK.Phosphorus > 51 {
		t.Errorf("phosphorus = %v, want near 50", plan.NPK.Phosphorus)
	}
	if plan.NPK.Potassium < 49 || plan.NPK.Potassium > 51 {
		t.Errorf("potassium = %v, want near 50", plan.NPK.Potassium)
	}
}

func TestRecordFeedbackValidation(t *testing.T) {
	env := newTestService(t, DefaultConfig())
	ctx := context.Background()
	crop := "rice"
	yield := 4.2

	tests := []struct {
		name  string
		entry FeedbackEntry
	}{
		{"empty user", FeedbackEntry{PredictionType: TaskCrop, Rating: 4, Outcome: Outcome{Crop: &crop}}},
		{"rating too low", FeedbackEntry{UserID: "u1", PredictionType: TaskCrop, Rating: 0, Outcome: Outcome{Crop: &crop}}},
		{"rating too high", FeedbackEntry{UserID: "u1", PredictionType: TaskCrop, Rating: 6, Outcome: Outcome{Crop: &crop}}},
		{"unknown type", FeedbackEntry{UserID: "u1", PredictionType: "weather", Rating: 4}},
		{"mismatched outcome", FeedbackEntry{UserID: "u1", PredictionType: TaskCrop, Rating: 4, Outcome: Outcome{Yield: &yield}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.RecordFeedback(ctx, tt.entry)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestRecordFeedbackAssignsIdentity(t *testing.T) {
	env := newTestService(t, DefaultConfig())

	entry, err := env.svc.RecordFeedback(context.Background(), cropFeedback("u1", "rice", 5, time.Time{}))
	if err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	if entry.ID == "" {
		t.Error("feedback ID not assigned")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("feedback timestamp not assigned")
	}

	stored, err := env.ledger.All(context.Background())
	if err != nil {
		t.Fatalf("ledger.All: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != entry.ID {
		t.Errorf("ledger holds %d entries, want the recorded one", len(stored))
	}
	if len(env.sink.feedback) != 1 {
		t.Errorf("event sink saw %d feedback events, want 1", len(env.sink.feedback))
	}
}

func modelVersion(t *testing.T, svc *Service) int {
	t.Helper()
	set, err := svc.reg.Current()
	if err != nil {
		t.Fatalf("no current model set: %v", err)
	}
	return set.Version
}

func TestRetrainCheckpoints(t *testing.T) {
	env := newTestService(t, DefaultConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	feed := func(n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			_, err := env.svc.RecordFeedback(ctx, cropFeedback(fmt.Sprintf("u%d", i%7), "rice", 5, now))
			if err != nil {
				t.Fatalf("RecordFeedback: %v", err)
			}
		}
	}

	feed(49)
	if v := modelVersion(t, env.svc); v != 1 {
		t.Fatalf("version after 49 entries = %d, want 1", v)
	}

	feed(1) // checkpoint at 50
	if v := modelVersion(t, env.svc); v != 2 {
		t.Fatalf("version after 50 entries = %d, want 2", v)
	}

	feed(49)
	if v := modelVersion(t, env.svc); v != 2 {
		t.Fatalf("version after 99 entries = %d, want 2", v)
	}

	feed(1) // checkpoint at 100
	if v := modelVersion(t, env.svc); v != 3 {
		t.Fatalf("version after 100 entries = %d, want 3", v)
	}

	events := env.sink.retrainEvents()
	checkpoints := 0
	for _, e := range events {
		if e.Trigger == "checkpoint" {
			checkpoints++
		}
	}
	if checkpoints != 2 {
		t.Errorf("got %d checkpoint retrain events, want 2", checkpoints)
	}
}

func TestRetrainSkippedBelowMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrainEvery = 5
	cfg.MinFeedback = 10
	env := newTestService(t, cfg)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		if _, err := env.svc.RecordFeedback(ctx, cropFeedback("u1", "rice", 5, now)); err != nil {
			t.Fatalf("RecordFeedback: %v", err)
		}
	}
	if v := modelVersion(t, env.svc); v != 1 {
		t.Errorf("version = %d, want 1 (below minimum feedback)", v)
	}
}

func TestRetrainSkippedWithoutRecentFeedback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrainEvery = 10
	env := newTestService(t, cfg)
	ctx := context.Background()
	stale := time.Now().UTC().Add(-200 * 24 * time.Hour)

	for i := 0; i < 10; i++ {
		if _, err := env.svc.RecordFeedback(ctx, cropFeedback("u1", "rice", 5, stale)); err != nil {
			t.Fatalf("RecordFeedback: %v", err)
		}
	}
	if v := modelVersion(t, env.svc); v != 1 {
		t.Errorf("version = %d, want 1 (no recent feedback)", v)
	}
}

func TestRetrainIngestsCropFeedback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrainEvery = 10
	env := newTestService(t, cfg)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 10; i++ {
		if _, err := env.svc.RecordFeedback(ctx, cropFeedback("u1", "rice", 5, now)); err != nil {
			t.Fatalf("RecordFeedback: %v", err)
		}
	}

	count, err := env.store.Count(ctx)
	if err != nil {
		t.Fatalf("store.Count: %v", err)
	}
	if count != 22 { // 12 bootstrap + 10 converted
		t.Errorf("training rows = %d, want 22", count)
	}
}

func TestPersonalizedRecommendations(t *testing.T) {
	env := newTestService(t, DefaultConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	// Not enough history yet.
	rec, err := env.svc.RecommendCropPersonalized(ctx, "farmer-1", riceConditions())
	if err != nil {
		t.Fatalf("RecommendCropPersonalized: %v", err)
	}
	if rec.Personalization == nil || rec.Personalization.Applied {
		t.Fatalf("personalization = %+v, want present and not applied", rec.Personalization)
	}

	for i := 0; i < 3; i++ {
		if _, err := env.svc.RecordFeedback(ctx, cropFeedback("farmer-1", "wheat", 5, now)); err != nil {
			t.Fatalf("RecordFeedback: %v", err)
		}
	}

	rec, err = env.svc.RecommendCropPersonalized(ctx, "farmer-1", riceConditions())
	if err != nil {
		t.Fatalf("RecommendCropPersonalized: %v", err)
	}
	if rec.Personalization == nil || !rec.Personalization.Applied {
		t.Fatalf("personalization = %+v, want applied", rec.Personalization)
	}
	if len(rec.Personalization.PreferredCrops) != 1 || rec.Personalization.PreferredCrops[0] != "wheat" {
		t.Errorf("preferred crops = %v, want [wheat]", rec.Personalization.PreferredCrops)
	}

	var boosted bool
	for _, c := range rec.Crops {
		if c.Crop == "wheat" && c.Personalized {
			boosted = true
		}
		if c.Probability > 1 {
			t.Errorf("probability %v exceeds 1 after boost", c.Probability)
		}
	}
	if !boosted {
		t.Error("wheat not boosted despite user preference")
	}
}

func TestPersonalizedRequiresUser(t *testing.T) {
	env := newTestService(t, DefaultConfig())
	_, err := env.svc.RecommendCropPersonalized(context.Background(), "", riceConditions())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}

type reversingReranker struct{}

func (reversingReranker) Name() string { return "reversing" }

func (reversingReranker) Rerank(ctx context.Context, cond Conditions, scores []CropScore) ([]CropScore, error) {
	out := make([]CropScore, len(scores))
	for i, s := range scores {
		out[len(scores)-1-i] = s
	}
	return out, nil
}

type failingReranker struct{}

func (failingReranker) Name() string { return "failing" }

func (failingReranker) Rerank(ctx context.Context, cond Conditions, scores []CropScore) ([]CropScore, error) {
	return nil, errors.New("market data unavailable")
}

func TestRerankersApplyInOrder(t *testing.T) {
	env := newTestService(t, DefaultConfig())
	env.svc.RegisterReranker(reversingReranker{})

	rec, err := env.svc.RecommendCrop(context.Background(), riceConditions())
	if err != nil {
		t.Fatalf("RecommendCrop: %v", err)
	}
	if rec.Crops[len(rec.Crops)-1].Crop != "rice" {
		t.Errorf("reranker not applied, last crop = %q", rec.Crops[len(rec.Crops)-1].Crop)
	}
}

func TestFailingRerankerKeepsRanking(t *testing.T) {
	env := newTestService(t, DefaultConfig())
	env.svc.RegisterReranker(failingReranker{})

	rec, err := env.svc.RecommendCrop(context.Background(), riceConditions())
	if err != nil {
		t.Fatalf("RecommendCrop: %v", err)
	}
	if rec.Crops[0].Crop != "rice" {
		t.Errorf("top crop = %q, want rice (failed reranker must not alter ranking)", rec.Crops[0].Crop)
	}
}

func TestModelPerformance(t *testing.T) {
	env := newTestService(t, DefaultConfig())
	ctx := context.Background()

	perf, err := env.svc.ModelPerformance(ctx)
	if err != nil {
		t.Fatalf("ModelPerformance: %v", err)
	}
	if perf.ModelVersion != 1 || perf.TrainingRows != 12 {
		t.Errorf("perf = v%d rows %d, want v1 rows 12", perf.ModelVersion, perf.TrainingRows)
	}
	if perf.Status != "initial" {
		t.Errorf("status = %q, want initial", perf.Status)
	}
	if acc := perf.Metrics.Tasks[TaskCrop].Accuracy; acc < 0.99 {
		t.Errorf("in-sample crop accuracy = %v, want near 1", acc)
	}

	if _, err := env.svc.RecordFeedback(ctx, cropFeedback("u1", "rice", 4, time.Now().UTC())); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	perf, err = env.svc.ModelPerformance(ctx)
	if err != nil {
		t.Fatalf("ModelPerformance: %v", err)
	}
	if perf.Status != "active" {
		t.Errorf("status = %q, want active", perf.Status)
	}
	if perf.FeedbackCount != 1 || perf.UserCount != 1 {
		t.Errorf("feedback=%d users=%d, want 1/1", perf.FeedbackCount, perf.UserCount)
	}
}

func TestInitLoadsPersistedModels(t *testing.T) {
	store := newMemStore()
	ledger := &memLedger{}
	artifacts := &memArtifacts{}

	first, err := New(DefaultConfig(), store, ledger, artifacts, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := New(DefaultConfig(), store, ledger, artifacts, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// The persisted set is reused instead of retraining.
	if v := modelVersion(t, second); v != 1 {
		t.Errorf("version after reload = %d, want 1", v)
	}
	rec, err := second.RecommendCrop(context.Background(), riceConditions())
	if err != nil {
		t.Fatalf("RecommendCrop after reload: %v", err)
	}
	if rec.Crops[0].Crop != "rice" {
		t.Errorf("top crop after reload = %q, want rice", rec.Crops[0].Crop)
	}
}
