// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package advisor

import (
	"testing"
	"time"
)

func TestBuildProfile(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now().UTC()
	wheat := "wheat"
	rice := "rice"

	entries := []FeedbackEntry{
		cropFeedback("u1", wheat, 5, now.Add(-24*time.Hour)),
		cropFeedback("u1", wheat, 4, now.Add(-48*time.Hour)),
		cropFeedback("u1", rice, 2, now.Add(-24*time.Hour)),               // low rating
		cropFeedback("u1", rice, 5, now.Add(-100*24*time.Hour)),           // outside window
		{UserID: "u1", PredictionType: TaskYield, Rating: 5, CreatedAt: now}, // no crop outcome
	}

	profile := buildProfile(cfg, entries, now)
	if profile.preferredCrops["wheat"] != 2 {
		t.Errorf("wheat count = %d, want 2", profile.preferredCrops["wheat"])
	}
	if profile.preferredCrops["rice"] != 0 {
		t.Errorf("rice count = %d, want 0", profile.preferredCrops["rice"])
	}
	// 3 of the 4 in-window entries are highly rated.
	if profile.successRate < 0.74 || profile.successRate > 0.76 {
		t.Errorf("success rate = %v, want 0.75", profile.successRate)
	}
}

func TestRecentCount(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now().UTC()

	entries := []FeedbackEntry{
		cropFeedback("u1", "rice", 5, now.Add(-24*time.Hour)),
		cropFeedback("u1", "rice", 5, now.Add(-89*24*time.Hour)),
		cropFeedback("u1", "rice", 5, now.Add(-91*24*time.Hour)),
	}
	if n := recentCount(cfg, entries, now); n != 2 {
		t.Errorf("recent count = %d, want 2", n)
	}
}

func TestPersonalizeBoostAndCap(t *testing.T) {
	cfg := DefaultConfig()
	profile := userProfile{preferredCrops: map[string]int{"wheat": 3, "maize": 1}}

	scores := []CropScore{
		{Crop: "rice", Probability: 0.5, Confidence: "medium"},
		{Crop: "wheat", Probability: 0.45, Confidence: "medium"},
		{Crop: "maize", Probability: 0.9, Confidence: "high"},
	}
	out := personalize(cfg, scores, profile)

	// 0.9 * 1.2 caps at 1.0 and takes the lead.
	if out[0].Crop != "maize" || out[0].Probability != 1.0 {
		t.Errorf("top = %+v, want maize at 1.0", out[0])
	}
	// 0.45 * 1.2 = 0.54 overtakes 0.5.
	if out[1].Crop != "wheat" {
		t.Errorf("second = %+v, want boosted wheat", out[1])
	}
	if out[1].Probability < 0.539 || out[1].Probability > 0.541 {
		t.Errorf("wheat probability = %v, want 0.54", out[1].Probability)
	}
	if !out[0].Personalized || !out[1].Personalized || out[2].Personalized {
		t.Error("personalized flags wrong")
	}

	// Input untouched.
	if scores[1].Probability != 0.45 {
		t.Errorf("input mutated: %v", scores[1].Probability)
	}
}

func TestPersonalizeNoPreferences(t *testing.T) {
	cfg := DefaultConfig()
	profile := userProfile{preferredCrops: map[string]int{}}

	scores := []CropScore{
		{Crop: "rice", Probability: 0.8, Confidence: "high"},
		{Crop: "wheat", Probability: 0.2, Confidence: "low"},
	}
	out := personalize(cfg, scores, profile)
	for i := range out {
		if out[i] != scores[i] {
			t.Errorf("score %d changed without preferences: %+v", i, out[i])
		}
	}
}
