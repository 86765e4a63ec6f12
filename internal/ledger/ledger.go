// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Package ledger stores user feedback durably in BadgerDB.
//
// Feedback is the engine's most valuable data: every retraining cycle and
// every personalized recommendation is derived from it, so entries are
// written append-only with fsync before the engine acknowledges them.
// Entries are keyed by a monotonic sequence, which keeps iteration in
// insertion order.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
)

const (
	entryPrefix  = "feedback:"
	sequenceKey  = "seq:feedback"
	seqBandwidth = 64
)

// Config holds ledger storage options.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps the ledger in memory only. Intended for tests.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites fsyncs every append. Defaults to true in production
	// configuration; feedback loss silently degrades retraining.
	SyncWrites bool `koanf:"sync_writes"`
}

// Ledger is an append-only feedback log backed by BadgerDB.
type Ledger struct {
	db  *badger.DB
	seq *badger.Sequence
	log zerolog.Logger

	count atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the ledger and counts existing entries.
func Open(cfg Config, log zerolog.Logger) (*Ledger, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("ledger path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sequence: %w", err)
	}

	l := &Ledger{
		db:  db,
		seq: seq,
		log: log.With().Str("component", "ledger").Logger(),
	}

	n, err := l.replayCount()
	if err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, fmt.Errorf("replay ledger: %w", err)
	}
	l.count.Store(int64(n))

	l.log.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int("entries", n).
		Msg("feedback ledger opened")
	return l, nil
}

// replayCount scans the ledger once at startup to establish the entry
// count.
func (l *Ledger) replayCount() (int, error) {
	n := 0
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIteratorOptions())
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func prefixIteratorOptions() badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(entryPrefix)
	return opts
}

// Append persists one feedback entry. The entry must already carry its ID
// and timestamp.
func (l *Ledger) Append(ctx context.Context, entry advisor.FeedbackEntry) error {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return fmt.Errorf("ledger closed")
	}
	l.mu.RUnlock()

	if entry.ID == "" {
		return fmt.Errorf("feedback entry has no ID")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	seq, err := l.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	key := []byte(fmt.Sprintf("%s%020d", entryPrefix, seq))

	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	l.count.Add(1)
	return nil
}

// All returns every entry in insertion order.
func (l *Ledger) All(ctx context.Context) ([]advisor.FeedbackEntry, error) {
	return l.scan(ctx, func(advisor.FeedbackEntry) bool { return true })
}

// User returns every entry recorded by one user, in insertion order.
func (l *Ledger) User(ctx context.Context, userID string) ([]advisor.FeedbackEntry, error) {
	return l.scan(ctx, func(e advisor.FeedbackEntry) bool { return e.UserID == userID })
}

func (l *Ledger) scan(ctx context.Context, keep func(advisor.FeedbackEntry) bool) ([]advisor.FeedbackEntry, error) {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return nil, fmt.Errorf("ledger closed")
	}
	l.mu.RUnlock()

	var entries []advisor.FeedbackEntry
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIteratorOptions())
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry advisor.FeedbackEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return fmt.Errorf("unmarshal entry: %w", err)
			}
			if keep(entry) {
				entries = append(entries, entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the total number of entries.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	return int(l.count.Load()), nil
}

// UserCount returns the number of distinct users in the ledger.
func (l *Ledger) UserCount(ctx context.Context) (int, error) {
	users := make(map[string]struct{})
	_, err := l.scan(ctx, func(e advisor.FeedbackEntry) bool {
		users[e.UserID] = struct{}{}
		return false
	})
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// Close releases the sequence and closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.seq.Release(); err != nil {
		l.log.Warn().Err(err).Msg("releasing sequence failed")
	}
	return l.db.Close()
}

var _ advisor.FeedbackLedger = (*Ledger)(nil)
