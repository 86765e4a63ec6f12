// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Package database stores the training corpus in DuckDB.
//
// The corpus is small but long-lived: bootstrap rows plus every feedback
// entry ever converted to a training record. DuckDB gives us a durable
// single-file store with SQL access for offline analysis, and the
// source_id primary key makes ingestion idempotent across retraining
// cycles.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
)

// Config holds training store options.
type Config struct {
	// Path is the DuckDB file. Empty opens an in-memory database.
	Path string `koanf:"path"`

	// Threads caps DuckDB's worker threads. Zero uses all CPUs.
	Threads int `koanf:"threads"`

	// MaxMemory is DuckDB's memory limit, e.g. "256MB".
	MaxMemory string `koanf:"max_memory"`
}

// DB is the DuckDB-backed training store.
type DB struct {
	conn *sql.DB
	log  zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS training_records (
    source_id      VARCHAR PRIMARY KEY,
    soil_type      VARCHAR NOT NULL,
    season         VARCHAR NOT NULL,
    temperature    DOUBLE NOT NULL,
    rainfall       DOUBLE NOT NULL,
    humidity       DOUBLE NOT NULL,
    ph             DOUBLE NOT NULL,
    organic_matter DOUBLE NOT NULL,
    crop           VARCHAR NOT NULL,
    crop_yield     DOUBLE NOT NULL,
    nitrogen       DOUBLE NOT NULL,
    phosphorus     DOUBLE NOT NULL,
    potassium      DOUBLE NOT NULL,
    ingested_at    TIMESTAMP DEFAULT current_timestamp
);
`

// New opens (or creates) the training store and ensures the schema exists.
func New(cfg Config, log zerolog.Logger) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "256MB"
	}

	connStr := fmt.Sprintf(":memory:?threads=%d&max_memory=%s", threads, maxMemory)
	if cfg.Path != "" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", cfg.Path, threads, maxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	// DuckDB is an embedded database; a single connection avoids write
	// contention between retraining and ingestion.
	conn.SetMaxOpenConns(1)

	db := &DB{
		conn: conn,
		log:  log.With().Str("component", "database").Logger(),
	}
	if _, err := conn.ExecContext(context.Background(), schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db.log.Info().Str("path", cfg.Path).Msg("training store opened")
	return db, nil
}

const insertRecord = `
INSERT INTO training_records (
    source_id, soil_type, season, temperature, rainfall, humidity, ph,
    organic_matter, crop, crop_yield, nitrogen, phosphorus, potassium
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source_id) DO NOTHING;
`

// Append inserts records, skipping source IDs already present.
func (db *DB) Append(ctx context.Context, records []advisor.TrainingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if r.SourceID == "" {
			return fmt.Errorf("training record has no source ID")
		}
		_, err := stmt.ExecContext(ctx,
			r.SourceID, r.SoilType, r.Season, r.Temperature, r.Rainfall,
			r.Humidity, r.PH, r.OrganicMatter, r.Crop, r.Yield,
			r.Nitrogen, r.Phosphorus, r.Potassium,
		)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", r.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Seed inserts the bootstrap corpus when the store is empty.
func (db *DB) Seed(ctx context.Context, records []advisor.TrainingRecord) error {
	count, err := db.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := db.Append(ctx, records); err != nil {
		return err
	}
	db.log.Info().Int("records", len(records)).Msg("training corpus seeded")
	return nil
}

const selectRecords = `
SELECT source_id, soil_type, season, temperature, rainfall, humidity, ph,
       organic_matter, crop, crop_yield, nitrogen, phosphorus, potassium
FROM training_records
ORDER BY ingested_at, source_id;
`

// All returns the full corpus in ingestion order.
func (db *DB) All(ctx context.Context) ([]advisor.TrainingRecord, error) {
	rows, err := db.conn.QueryContext(ctx, selectRecords)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []advisor.TrainingRecord
	for rows.Next() {
		var r advisor.TrainingRecord
		err := rows.Scan(
			&r.SourceID, &r.SoilType, &r.Season, &r.Temperature, &r.Rainfall,
			&r.Humidity, &r.PH, &r.OrganicMatter, &r.Crop, &r.Yield,
			&r.Nitrogen, &r.Phosphorus, &r.Potassium,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM training_records").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// CropCounts returns the number of records per crop, for operator
// inspection of corpus balance.
func (db *DB) CropCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT crop, COUNT(*) FROM training_records GROUP BY crop")
	if err != nil {
		return nil, fmt.Errorf("query crop counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var crop string
		var n int
		if err := rows.Scan(&crop, &n); err != nil {
			return nil, fmt.Errorf("scan crop count: %w", err)
		}
		counts[crop] = n
	}
	return counts, rows.Err()
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

var _ advisor.TrainingStore = (*DB)(nil)
