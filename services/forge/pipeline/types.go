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
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/gate"
	"github.com/AleutianAI/autoforge/services/forge/spec"
)

// =============================================================================
// PHASES AND FINAL STATUS
// =============================================================================

// Phase is one pipeline state.
type Phase int

const (
	PhaseParse Phase = iota
	PhaseTestGen
	PhaseCodeGen
	PhaseValidate
)

// String returns the phase name used in audit records.
func (p Phase) String() string {
	switch p {
	case PhaseParse:
		return "parse"
	case PhaseTestGen:
		return "test_generation"
	case PhaseCodeGen:
		return "code_generation"
	case PhaseValidate:
		return "validation"
	default:
		return "unknown"
	}
}

// FinalStatus is the sealed outcome of a run.
type FinalStatus string

const (
	// StatusAccepted means the last attempt's report was valid.
	StatusAccepted FinalStatus = "accepted"

	// StatusRejected means the run failed structurally or exhausted retries.
	StatusRejected FinalStatus = "rejected"
)

// =============================================================================
// ATTEMPT RECORD
// =============================================================================

// AttemptRecord captures one code generation attempt and its verdict.
//
// Owned exclusively by the coordinator while the run is open; immutable once
// the run is sealed.
type AttemptRecord struct {
	// Index is the 1-based attempt number.
	Index int `json:"attempt_index"`

	// Implementation is the artifact produced for this attempt. Zero when
	// generation itself failed.
	Implementation artifact.Artifact `json:"implementation"`

	// Report is the gate verdict. Nil when generation failed before
	// validation.
	Report *gate.Report `json:"report,omitempty"`

	// GenerationError holds the generation failure, if any.
	GenerationError string `json:"generation_error,omitempty"`

	// Timestamp is when the attempt was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Issues returns the attempt's issue list: gate issues, or the generation
// error when validation never ran.
func (a AttemptRecord) Issues() []string {
	if a.Report != nil {
		return a.Report.Issues
	}
	if a.GenerationError != "" {
		return []string{a.GenerationError}
	}
	return nil
}

// =============================================================================
// RUN RECORD
// =============================================================================

// RunRecord is the append-only history of one pipeline execution.
//
// Created at run start, appended to per attempt, sealed exactly once at run
// end. Never mutated after sealing.
type RunRecord struct {
	// TraceID correlates the run across attempts and audit records.
	TraceID string `json:"trace_id"`

	// Service is the requirement's service name. Empty if parsing failed
	// before the name was known.
	Service string `json:"service"`

	// Language is the target language.
	Language spec.Language `json:"language"`

	// StartedAt is the run start time.
	StartedAt time.Time `json:"started_at"`

	// SealedAt is the run end time. Zero while the run is open.
	SealedAt time.Time `json:"sealed_at"`

	// Attempts are the recorded attempts, strictly ordered by index.
	Attempts []AttemptRecord `json:"attempts"`

	// FinalStatus is accepted or rejected. Empty while the run is open.
	FinalStatus FinalStatus `json:"final_status"`

	// AcceptedArtifact is set iff FinalStatus is accepted.
	AcceptedArtifact *artifact.Artifact `json:"accepted_artifact,omitempty"`

	// TestArtifact is the Auditor's test artifact, kept for packaging.
	TestArtifact artifact.Artifact `json:"test_artifact"`

	// Issues is the final attempt's issue list for rejected runs, or the
	// structural failure description.
	Issues []string `json:"issues"`

	// Audit is the per-phase execution trail.
	Audit *AuditTrail `json:"audit"`

	sealed bool
}

// newRunRecord opens a run record with a fresh trace id.
func newRunRecord() *RunRecord {
	traceID := fmt.Sprintf("TRACE-%s", uuid.NewString())
	return &RunRecord{
		TraceID:   traceID,
		StartedAt: time.Now().UTC(),
		Attempts:  make([]AttemptRecord, 0),
		Issues:    make([]string, 0),
		Audit:     NewAuditTrail(traceID),
	}
}

// recordAttempt appends an attempt. Panics if the run is already sealed;
// that is a coordinator bug, not a runtime condition.
func (r *RunRecord) recordAttempt(a AttemptRecord) {
	if r.Sealed() {
		panic("attempt recorded on sealed run")
	}
	a.Timestamp = time.Now().UTC()
	r.Attempts = append(r.Attempts, a)
}

// seal closes the run. AcceptedArtifact is set iff status is accepted.
func (r *RunRecord) seal(status FinalStatus, accepted *artifact.Artifact, issues []string) {
	if r.Sealed() {
		panic("run sealed twice")
	}
	r.sealed = true
	r.SealedAt = time.Now().UTC()
	r.FinalStatus = status
	r.Issues = append(r.Issues[:0], issues...)
	if status == StatusAccepted {
		r.AcceptedArtifact = accepted
	}
}

// Sealed reports whether the run has been sealed. The final status backs the
// unexported flag so sealedness survives serialization round-trips.
func (r *RunRecord) Sealed() bool {
	return r.sealed || r.FinalStatus != ""
}

// Accepted reports whether the run was accepted.
func (r *RunRecord) Accepted() bool {
	return r.FinalStatus == StatusAccepted
}
