// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
)

// trainedSet trains a model set from the bootstrap corpus so the round trip
// exercises real estimator state.
func trainedSet(t *testing.T, version int) *advisor.ModelSet {
	t.Helper()
	set, err := advisor.Train(advisor.DefaultConfig(), advisor.BootstrapRecords(), version)
	if err != nil {
		t.Fatalf("train model set: %v", err)
	}
	return set
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	set := trainedSet(t, 1)
	if err := store.Save(set); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if !ok {
		t.Fatal("LoadLatest found nothing after Save")
	}
	if loaded.Version != 1 || loaded.RecordCount != set.RecordCount {
		t.Errorf("loaded v%d rows %d, want v1 rows %d", loaded.Version, loaded.RecordCount, set.RecordCount)
	}

	// The decoded set must produce identical predictions.
	cond := advisor.Conditions{
		SoilType: "loamy", Season: "kharif",
		Temperature: 28, Rainfall: 1200, Humidity: 70, PH: 6.5, OrganicMatter: 2.5,
	}
	x, err := loaded.Codec.Encode(cond)
	if err != nil {
		t.Fatalf("Encode after load: %v", err)
	}
	proba, err := loaded.Bundle(advisor.TaskCrop).Classifier.PredictProba(x)
	if err != nil {
		t.Fatalf("PredictProba after load: %v", err)
	}
	if proba["rice"] < 0.99 {
		t.Errorf("rice probability after load = %v, want near 1", proba["rice"])
	}
	yield, err := loaded.Bundle(advisor.TaskYield).Regressor.Predict(
		loaded.Bundle(advisor.TaskYield).Scaler.Transform(x))
	if err != nil {
		t.Fatalf("yield Predict after load: %v", err)
	}
	if yield[0] < 4.4 || yield[0] > 4.6 {
		t.Errorf("yield after load = %v, want near 4.5", yield[0])
	}
}

func TestLoadLatestEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, ok, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if ok {
		t.Error("LoadLatest reported an artifact in an empty store")
	}
}

func TestScanFindsExistingArtifacts(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for v := 1; v <= 3; v++ {
		if err := first.Save(trainedSet(t, v)); err != nil {
			t.Fatalf("Save v%d: %v", v, err)
		}
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	version, ok := reopened.LatestVersion()
	if !ok || version != 3 {
		t.Errorf("latest after reopen = %d (%v), want 3", version, ok)
	}
}

func TestChecksumMismatchDetected(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save(trainedSet(t, 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Rewrite the artifact with a corrupted checksum by tampering with the
	// stored bytes directly.
	path := filepath.Join(dir, "modelset_v1.gob.gz")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	if _, err := store.Load(1); err == nil {
		t.Error("Load accepted a tampered artifact")
	}
}

func TestListAndPrune(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for v := 1; v <= 4; v++ {
		if err := store.Save(trainedSet(t, v)); err != nil {
			t.Fatalf("Save v%d: %v", v, err)
		}
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 4 || metas[0].Version != 1 || metas[3].Version != 4 {
		t.Fatalf("List = %v, want versions 1..4", metas)
	}

	if err := store.Prune(2); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	metas, err = store.List()
	if err != nil {
		t.Fatalf("List after prune: %v", err)
	}
	if len(metas) != 2 || metas[0].Version != 3 {
		t.Errorf("after prune List = %v, want versions 3 and 4", metas)
	}
}

func TestParseArtifactName(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"modelset_v1.gob.gz", 1, true},
		{"modelset_v42.gob.gz", 42, true},
		{"modelset_v0.gob.gz", 0, false},
		{"other_v1.gob.gz", 0, false},
		{"modelset_v1.gob", 0, false},
		{"modelset.gob.gz", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseArtifactName(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseArtifactName(%q) = %d, %v, want %d, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
