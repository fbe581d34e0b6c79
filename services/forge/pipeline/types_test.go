// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
)

func TestRunRecordSealOnce(t *testing.T) {
	run := newRunRecord()
	assert.False(t, run.Sealed())

	run.seal(StatusRejected, nil, []string{"bad"})
	assert.True(t, run.Sealed())
	assert.False(t, run.Accepted())
	assert.False(t, run.SealedAt.IsZero())

	assert.Panics(t, func() {
		run.seal(StatusAccepted, nil, nil)
	})
}

func TestRunRecordRejectsAttemptsAfterSeal(t *testing.T) {
	run := newRunRecord()
	run.seal(StatusRejected, nil, nil)

	assert.Panics(t, func() {
		run.recordAttempt(AttemptRecord{Index: 1})
	})
}

func TestRunRecordAcceptedArtifactOnlyWhenAccepted(t *testing.T) {
	accepted := &artifact.Artifact{Content: "x = 1"}

	run := newRunRecord()
	run.seal(StatusAccepted, accepted, nil)
	assert.Equal(t, accepted, run.AcceptedArtifact)
	assert.True(t, run.Accepted())

	rejected := newRunRecord()
	rejected.seal(StatusRejected, accepted, []string{"nope"})
	assert.Nil(t, rejected.AcceptedArtifact)
}

func TestRunRecordSealedSurvivesSerialization(t *testing.T) {
	run := newRunRecord()
	run.seal(StatusRejected, nil, []string{"bad"})

	data, err := json.Marshal(run)
	require.NoError(t, err)

	var loaded RunRecord
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.True(t, loaded.Sealed())
	assert.Panics(t, func() {
		loaded.seal(StatusAccepted, nil, nil)
	})
}

func TestAttemptRecordIssues(t *testing.T) {
	withErr := AttemptRecord{GenerationError: "backend down"}
	assert.Equal(t, []string{"backend down"}, withErr.Issues())

	empty := AttemptRecord{}
	assert.Nil(t, empty.Issues())
}

func TestPhaseStrings(t *testing.T) {
	assert.Equal(t, "parse", PhaseParse.String())
	assert.Equal(t, "test_generation", PhaseTestGen.String())
	assert.Equal(t, "code_generation", PhaseCodeGen.String())
	assert.Equal(t, "validation", PhaseValidate.String())
	assert.Equal(t, "unknown", Phase(99).String())
}

func TestAuditTrailJSON(t *testing.T) {
	trail := NewAuditTrail("TRACE-test")
	timer := trail.begin(PhaseParse, 0)
	timer.done(true, "service Echo (python)")
	trail.finalize(StatusAccepted, 1)

	data, err := trail.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "TRACE-test", decoded["trace_id"])
	assert.Equal(t, "accepted", decoded["final_status"])

	phases, ok := decoded["phases"].([]any)
	require.True(t, ok)
	require.Len(t, phases, 1)
	first := phases[0].(map[string]any)
	assert.Equal(t, "parse", first["phase"])
	assert.Equal(t, "ok", first["status"])
}

func TestAuditTrailYAML(t *testing.T) {
	trail := NewAuditTrail("TRACE-test")
	trail.begin(PhaseParse, 0).done(true, "")
	trail.finalize(StatusRejected, 2)

	data, err := trail.YAML()
	require.NoError(t, err)

	var decoded struct {
		TraceID     string `yaml:"trace_id"`
		FinalStatus string `yaml:"final_status"`
		Attempts    int    `yaml:"attempts"`
	}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "TRACE-test", decoded.TraceID)
	assert.Equal(t, "rejected", decoded.FinalStatus)
	assert.Equal(t, 2, decoded.Attempts)
}
