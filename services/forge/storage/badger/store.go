// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/autoforge/services/forge/pipeline"
)

// runKeyPrefix namespaces run records in the key space.
const runKeyPrefix = "run:"

// Sentinel errors for the run store.
var (
	// ErrNotFound indicates no run exists for the requested trace id.
	ErrNotFound = errors.New("run not found")

	// ErrUnsealedRun indicates an attempt to persist an open run.
	ErrUnsealedRun = errors.New("run is not sealed")
)

// Store persists sealed pipeline runs keyed by trace id.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// OpenStore opens a run store with the given configuration.
//
// Outputs:
//
//	*Store - The opened store. Caller must Close() when done.
//	error - Non-nil if the database cannot be opened.
func OpenStore(cfg Config) (*Store, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// runKey builds the storage key for a trace id.
func runKey(traceID string) []byte {
	return []byte(runKeyPrefix + traceID)
}

// Save persists a sealed run.
//
// Description:
//
//	Serializes the run record as JSON under its trace id. Open runs are
//	rejected: the store holds audit history, not in-flight state.
//
// Inputs:
//
//	ctx - Context for cancellation
//	run - The sealed run record
//
// Outputs:
//
//	error - ErrUnsealedRun for open runs, or a wrapped storage error
//
// Thread Safety: Safe for concurrent use.
func (s *Store) Save(ctx context.Context, run *pipeline.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if run == nil || !run.Sealed() {
		return ErrUnsealedRun
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.TraceID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.TraceID), data)
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.TraceID, err)
	}
	return nil
}

// Get loads a sealed run by trace id.
//
// Outputs:
//
//	*pipeline.RunRecord - The stored run
//	error - ErrNotFound when the trace id is unknown
//
// Thread Safety: Safe for concurrent use.
func (s *Store) Get(ctx context.Context, traceID string) (*pipeline.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var run pipeline.RunRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(traceID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, traceID)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListTraceIDs returns all stored trace ids in key order.
//
// Thread Safety: Safe for concurrent use.
func (s *Store) ListTraceIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, runKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return ids, nil
}
