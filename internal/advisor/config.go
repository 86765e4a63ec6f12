// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"fmt"
	"time"
)

// Config tunes the engine's estimators, retraining checkpoints, and
// personalization gates.
type Config struct {
	// Neighbors is the k used by the nearest-neighbour estimators.
	Neighbors int `koanf:"neighbors"`

	// RidgeLambda is the L2 penalty of the price regressor.
	RidgeLambda float64 `koanf:"ridge_lambda"`

	// RetrainEvery triggers a retraining checkpoint each time the total
	// feedback count reaches a multiple of this value.
	RetrainEvery int `koanf:"retrain_every"`

	// MinFeedback is the minimum total feedback before any retraining.
	MinFeedback int `koanf:"min_feedback"`

	// MinRecentFeedback is the minimum feedback inside RetrainWindow
	// required for a checkpoint to proceed.
	MinRecentFeedback int `koanf:"min_recent_feedback"`

	// RetrainWindow bounds how old feedback may be to count as recent.
	RetrainWindow time.Duration `koanf:"retrain_window"`

	// PersonalizeWindow bounds the user history considered for
	// personalization.
	PersonalizeWindow time.Duration `koanf:"personalize_window"`

	// MinUserHistory is the minimum recent entries a user needs before
	// recommendations are personalized.
	MinUserHistory int `koanf:"min_user_history"`

	// MinPreferredRating is the lowest rating that marks a feedback entry
	// as a success when building a user profile.
	MinPreferredRating int `koanf:"min_preferred_rating"`

	// PreferenceBoost multiplies the probability of crops the user has
	// succeeded with. The boosted probability is capped at 1.
	PreferenceBoost float64 `koanf:"preference_boost"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Neighbors:          5,
		RidgeLambda:        0.1,
		RetrainEvery:       50,
		MinFeedback:        10,
		MinRecentFeedback:  5,
		RetrainWindow:      180 * 24 * time.Hour,
		PersonalizeWindow:  90 * 24 * time.Hour,
		MinUserHistory:     3,
		MinPreferredRating: 4,
		PreferenceBoost:    1.2,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.Neighbors <= 0 {
		return fmt.Errorf("neighbors must be positive, got %d", c.Neighbors)
	}
	if c.RetrainEvery <= 0 {
		return fmt.Errorf("retrain_every must be positive, got %d", c.RetrainEvery)
	}
	if c.MinFeedback < 0 || c.MinRecentFeedback < 0 {
		return fmt.Errorf("feedback minimums must not be negative")
	}
	if c.RetrainWindow <= 0 || c.PersonalizeWindow <= 0 {
		return fmt.Errorf("retrain and personalize windows must be positive")
	}
	if c.MinUserHistory <= 0 {
		return fmt.Errorf("min_user_history must be positive, got %d", c.MinUserHistory)
	}
	if c.MinPreferredRating < 1 || c.MinPreferredRating > 5 {
		return fmt.Errorf("min_preferred_rating must be in [1,5], got %d", c.MinPreferredRating)
	}
	if c.PreferenceBoost < 1 {
		return fmt.Errorf("preference_boost must be at least 1, got %v", c.PreferenceBoost)
	}
	return nil
}
