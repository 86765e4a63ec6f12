// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Package storage persists trained model sets to disk.
//
// A model set is serialized with Go's gob encoding, gzip-compressed, and
// written as one versioned file. Each file carries metadata with a SHA-256
// checksum so a corrupted artifact is detected at load time instead of
// silently serving bad predictions.
package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
	"github.com/kisanlabs/agroadvisor/internal/advisor/models"
)

func init() {
	// Concrete estimator types reachable through the Regressor interface.
	gob.Register(&models.KNNRegressor{})
	gob.Register(&models.RidgeRegressor{})
}

const (
	artifactPrefix = "modelset"
	artifactSuffix = ".gob.gz"
)

// Metadata describes one stored model set.
type Metadata struct {
	Version     int       `json:"version"`
	TrainedAt   time.Time `json:"trained_at"`
	SavedAt     time.Time `json:"saved_at"`
	RecordCount int       `json:"record_count"`
	Checksum    string    `json:"checksum"`
	SizeBytes   int64     `json:"size_bytes"`
}

// storedFile is the on-disk format.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store manages model set artifacts in a directory.
type Store struct {
	baseDir string

	mu     sync.RWMutex
	latest int
}

// NewStore opens (creating if needed) an artifact directory and indexes the
// versions already present.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	s := &Store{baseDir: baseDir}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan artifacts: %w", err)
	}
	return s, nil
}

func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseArtifactName(entry.Name()); ok && v > s.latest {
			s.latest = v
		}
	}
	return nil
}

// parseArtifactName extracts the version from a filename like
// "modelset_v3.gob.gz".
func parseArtifactName(name string) (int, bool) {
	if !strings.HasPrefix(name, artifactPrefix+"_v") || !strings.HasSuffix(name, artifactSuffix) {
		return 0, false
	}
	versionStr := strings.TrimSuffix(strings.TrimPrefix(name, artifactPrefix+"_v"), artifactSuffix)
	v, err := strconv.Atoi(versionStr)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func (s *Store) artifactPath(version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", artifactPrefix, version, artifactSuffix))
}

// Save writes a model set as a new versioned artifact.
func (s *Store) Save(set *advisor.ModelSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(set); err != nil {
		return fmt.Errorf("encode model set: %w", err)
	}
	raw := buf.Bytes()

	hash := sha256.Sum256(raw)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return fmt.Errorf("compress model set: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	sf := storedFile{
		Metadata: Metadata{
			Version:     set.Version,
			TrainedAt:   set.TrainedAt,
			SavedAt:     time.Now().UTC(),
			RecordCount: set.RecordCount,
			Checksum:    hex.EncodeToString(hash[:]),
			SizeBytes:   int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	f, err := os.Create(s.artifactPath(set.Version)) //nolint:gosec // path built from the numeric version
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		return fmt.Errorf("write artifact file: %w", err)
	}

	if set.Version > s.latest {
		s.latest = set.Version
	}
	return nil
}

// LoadLatest returns the newest stored model set, or ok=false when the
// directory holds none.
func (s *Store) LoadLatest() (*advisor.ModelSet, bool, error) {
	s.mu.RLock()
	version := s.latest
	s.mu.RUnlock()

	if version == 0 {
		return nil, false, nil
	}
	set, err := s.Load(version)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Load reads and verifies one stored version.
func (s *Store) Load(version int) (*advisor.ModelSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.artifactPath(version)) //nolint:gosec // path built from the numeric version
	if err != nil {
		return nil, fmt.Errorf("open artifact file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read artifact file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model set: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch for v%d: expected %s, got %s",
			version, sf.Metadata.Checksum, checksum)
	}

	var set advisor.ModelSet
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode model set: %w", err)
	}
	return &set, nil
}

// LatestVersion returns the newest stored version, ok=false when none.
func (s *Store) LatestVersion() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest > 0
}

// List returns metadata for every stored artifact, oldest first.
func (s *Store) List() ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read artifact directory: %w", err)
	}

	var metas []Metadata
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, ok := parseArtifactName(entry.Name())
		if !ok {
			continue
		}

		f, err := os.Open(filepath.Join(s.baseDir, entry.Name())) //nolint:gosec // name matched the artifact pattern
		if err != nil {
			continue
		}
		var sf storedFile
		decodeErr := gob.NewDecoder(f).Decode(&sf)
		_ = f.Close()
		if decodeErr != nil {
			continue
		}
		sf.Metadata.Version = version
		metas = append(metas, sf.Metadata)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].Version < metas[j].Version })
	return metas, nil
}

// Prune deletes all but the newest keep artifacts.
func (s *Store) Prune(keep int) error {
	if keep < 1 {
		keep = 1
	}

	metas, err := s.List()
	if err != nil {
		return err
	}
	if len(metas) <= keep {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, meta := range metas[:len(metas)-keep] {
		if err := os.Remove(s.artifactPath(meta.Version)); err != nil {
			return fmt.Errorf("remove artifact v%d: %w", meta.Version, err)
		}
	}
	return nil
}

var _ advisor.ArtifactStore = (*Store)(nil)
