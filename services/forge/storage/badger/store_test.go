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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/autoforge/services/forge/gate"
	"github.com/AleutianAI/autoforge/services/forge/llm"
	"github.com/AleutianAI/autoforge/services/forge/pipeline"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

const requirement = `
service:
  name: EchoService
  language: python
`

// sealedRun produces a sealed run through the real coordinator with mock
// generation and a scripted gate.
func sealedRun(t *testing.T) *pipeline.RunRecord {
	t.Helper()

	runner := tools.NewScriptedRunner().
		Script("python3", tools.Outcome{ExitOK: true}).
		Script("pylint", tools.Outcome{ExitOK: true}).
		Script("pytest", tools.Outcome{ExitOK: true})
	g := gate.New(runner, gate.WithMinLines(1))

	auditor := llm.NewAuditor(llm.NewMockClient("import pytest\n\ndef test_echo():\n    assert True\n"))
	architect := llm.NewArchitect(llm.NewMockClient("x = 1\ny = 2\n"))

	run, err := pipeline.New(auditor, architect, g).Run(context.Background(), []byte(requirement))
	require.NoError(t, err)
	require.True(t, run.Sealed())
	return run
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGetRun(t *testing.T) {
	store := openTestStore(t)
	run := sealedRun(t)

	require.NoError(t, store.Save(context.Background(), run))

	loaded, err := store.Get(context.Background(), run.TraceID)
	require.NoError(t, err)
	assert.Equal(t, run.TraceID, loaded.TraceID)
	assert.Equal(t, run.Service, loaded.Service)
	assert.Equal(t, run.FinalStatus, loaded.FinalStatus)
	assert.Len(t, loaded.Attempts, len(run.Attempts))
	require.NotNil(t, loaded.Audit)
	assert.Equal(t, run.Audit.TraceID, loaded.Audit.TraceID)

	// A loaded record is still sealed and can be written back.
	assert.True(t, loaded.Sealed())
	require.NoError(t, store.Save(context.Background(), loaded))
}

func TestSaveRejectsUnsealedRun(t *testing.T) {
	store := openTestStore(t)

	err := store.Save(context.Background(), &pipeline.RunRecord{TraceID: "TRACE-open"})
	assert.ErrorIs(t, err, ErrUnsealedRun)

	err = store.Save(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnsealedRun)
}

func TestGetUnknownTraceID(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "TRACE-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTraceIDs(t *testing.T) {
	store := openTestStore(t)

	first := sealedRun(t)
	second := sealedRun(t)
	require.NoError(t, store.Save(context.Background(), first))
	require.NoError(t, store.Save(context.Background(), second))

	ids, err := store.ListTraceIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, first.TraceID)
	assert.Contains(t, ids, second.TraceID)
}

func TestPersistentStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	run := sealedRun(t)

	store, err := OpenStore(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), run))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(DefaultConfig(dir))
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Get(context.Background(), run.TraceID)
	require.NoError(t, err)
	assert.Equal(t, run.TraceID, loaded.TraceID)
}

func TestOpenStoreRequiresPath(t *testing.T) {
	_, err := OpenStore(Config{})
	assert.Error(t, err)
}

func TestSaveCancelledContext(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, sealedRun(t))
	assert.Error(t, err)
}
