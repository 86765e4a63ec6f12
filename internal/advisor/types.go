// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"context"
	"time"
)

// Task identifies one of the trained prediction tasks.
type Task string

const (
	TaskCrop          Task = "crop_recommendation"
	TaskYield         Task = "yield_prediction"
	TaskFertilizer    Task = "fertilizer_recommendation"
	TaskPrice         Task = "price_prediction"
	TaskWeatherImpact Task = "weather_impact"
)

// AllTasks returns every prediction task in a stable order.
func AllTasks() []Task {
	return []Task{TaskCrop, TaskYield, TaskFertilizer, TaskPrice, TaskWeatherImpact}
}

// Conditions describes the environment a prediction is made for.
type Conditions struct {
	SoilType      string  `json:"soil_type"`
	Season        string  `json:"season"`
	Temperature   float64 `json:"temperature"`
	Rainfall      float64 `json:"rainfall"`
	Humidity      float64 `json:"humidity"`
	PH            float64 `json:"ph"`
	OrganicMatter float64 `json:"organic_matter"`
}

// TrainingRecord is one labelled observation in the training corpus.
// Price and weather targets are derived from agronomic reference tables at
// training time rather than stored per record.
type TrainingRecord struct {
	Conditions

	// SourceID identifies where the record came from, either a bootstrap
	// slot or the feedback entry it was derived from. Stores use it to
	// deduplicate ingestion across retraining cycles.
	SourceID string `json:"source_id"`

	Crop       string  `json:"crop"`
	Yield      float64 `json:"yield"`
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
}

// NPK is a fertilizer dose in kg per hectare.
type NPK struct {
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
}

// Outcome is the observed result attached to a feedback entry. Exactly one
// field is set, matching the entry's prediction type.
type Outcome struct {
	Crop       *string  `json:"crop,omitempty"`
	Yield      *float64 `json:"yield,omitempty"`
	Fertilizer *NPK     `json:"fertilizer,omitempty"`
}

// FeedbackEntry records how a prediction worked out for a user.
type FeedbackEntry struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	PredictionType Task       `json:"prediction_type"`
	Conditions     Conditions `json:"conditions"`
	Outcome        Outcome    `json:"outcome"`
	Rating         int        `json:"rating"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CropScore is one entry of a ranked crop recommendation.
type CropScore struct {
	Crop         string  `json:"crop"`
	Probability  float64 `json:"probability"`
	Confidence   string  `json:"confidence"`
	Personalized bool    `json:"personalized,omitempty"`
}

// CropRecommendation is the ranked result of a crop query.
type CropRecommendation struct {
	Crops []CropScore `json:"recommendations"`

	// MarketOutlook is the price model's estimate, in rupees per quintal,
	// for produce grown under the queried conditions.
	MarketOutlook   float64          `json:"market_outlook"`
	ModelAccuracy   float64          `json:"model_accuracy"`
	ModelVersion    int              `json:"model_version"`
	Personalization *Personalization `json:"personalization,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Personalization describes how user history influenced a recommendation.
type Personalization struct {
	Applied        bool     `json:"applied"`
	SuccessRate    float64  `json:"success_rate"`
	PreferredCrops []string `json:"preferred_crops"`
}

// YieldRange bounds a yield estimate.
type YieldRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// YieldPrediction is the result of a yield query, in tonnes per hectare.
type YieldPrediction struct {
	Crop          string     `json:"crop"`
	Estimate      float64    `json:"predicted_yield"`
	Interval      float64    `json:"confidence_interval"`
	Range         YieldRange `json:"yield_range"`
	WeatherImpact float64    `json:"weather_impact"`
	ModelR2       float64    `json:"model_r2"`
	ModelVersion  int        `json:"model_version"`
	GeneratedAt   time.Time  `json:"generated_at"`
}

// FertilizerPlan is the recommended NPK dose for a crop under the given
// conditions.
type FertilizerPlan struct {
	Crop         string    `json:"crop"`
	NPK          NPK       `json:"npk"`
	ModelR2      float64   `json:"model_r2"`
	ModelVersion int       `json:"model_version"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// TaskMetrics holds in-sample quality figures for one task.
type TaskMetrics struct {
	Accuracy float64 `json:"accuracy,omitempty"`
	R2       float64 `json:"r2_score,omitempty"`
	RMSE     float64 `json:"rmse,omitempty"`
}

// Metrics aggregates per-task quality figures for a trained model set.
type Metrics struct {
	Tasks       map[Task]TaskMetrics `json:"tasks"`
	LastUpdated time.Time            `json:"last_updated"`
}

// Performance is the operator-facing view of the engine's state.
type Performance struct {
	Metrics       Metrics   `json:"model_metrics"`
	ModelVersion  int       `json:"model_version"`
	TrainingRows  int       `json:"training_rows"`
	FeedbackCount int       `json:"total_feedback_entries"`
	UserCount     int       `json:"total_users"`
	LastRetrained time.Time `json:"last_retraining"`
	Status        string    `json:"system_status"`
}

// Reranker post-processes a ranked crop list, typically with signals the
// models do not see such as market prices.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, cond Conditions, scores []CropScore) ([]CropScore, error)
}

// ConfidenceLabel maps a probability to a coarse confidence band.
func ConfidenceLabel(p float64) string {
	switch {
	case p > 0.7:
		return "high"
	case p > 0.4:
		return "medium"
	default:
		return "low"
	}
}
