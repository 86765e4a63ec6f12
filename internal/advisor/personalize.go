// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"sort"
	"time"
)

// userProfile summarizes a user's recent feedback for personalization.
type userProfile struct {
	preferredCrops map[string]int
	successRate    float64
}

// buildProfile derives a preference profile from a user's feedback inside
// the personalization window. Only highly rated crop feedback with an
// observed crop counts toward preferences.
func buildProfile(cfg Config, entries []FeedbackEntry, now time.Time) userProfile {
	cutoff := now.Add(-cfg.PersonalizeWindow)

	profile := userProfile{preferredCrops: make(map[string]int)}
	total := 0
	successful := 0
	for _, e := range entries {
		if e.CreatedAt.Before(cutoff) {
			continue
		}
		total++
		if e.Rating < cfg.MinPreferredRating {
			continue
		}
		successful++
		if e.PredictionType == TaskCrop && e.Outcome.Crop != nil {
			profile.preferredCrops[*e.Outcome.Crop]++
		}
	}
	if total > 0 {
		profile.successRate = float64(successful) / float64(total)
	}
	return profile
}

// recentCount counts a user's feedback entries inside the personalization
// window, gating whether personalization applies at all.
func recentCount(cfg Config, entries []FeedbackEntry, now time.Time) int {
	cutoff := now.Add(-cfg.PersonalizeWindow)
	n := 0
	for _, e := range entries {
		if !e.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n
}

// personalize boosts crops the user has succeeded with and re-sorts the
// ranking. Boosted probabilities are capped at 1; the returned slice is a
// copy, the input is left untouched.
func personalize(cfg Config, scores []CropScore, profile userProfile) []CropScore {
	out := make([]CropScore, len(scores))
	copy(out, scores)

	for i := range out {
		if profile.preferredCrops[out[i].Crop] == 0 {
			continue
		}
		p := out[i].Probability * cfg.PreferenceBoost
		if p > 1 {
			p = 1
		}
		out[i].Probability = p
		out[i].Confidence = ConfidenceLabel(p)
		out[i].Personalized = true
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out
}

// preferredCropNames lists the profile's crops in a stable order for the
// response payload.
func (p userProfile) preferredCropNames() []string {
	names := make([]string, 0, len(p.preferredCrops))
	for crop := range p.preferredCrops {
		names = append(names, crop)
	}
	sort.Strings(names)
	return names
}
