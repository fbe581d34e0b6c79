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
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// PhaseRecord is one completed phase execution in the audit trail.
type PhaseRecord struct {
	// Sequence is the 1-based position of the record within the run.
	Sequence int `json:"sequence" yaml:"sequence"`

	// Phase is the phase name.
	Phase string `json:"phase" yaml:"phase"`

	// Attempt is the attempt number the phase ran under, 0 for phases
	// outside the retry loop.
	Attempt int `json:"attempt,omitempty" yaml:"attempt,omitempty"`

	// Status is "ok" or "failed".
	Status string `json:"status" yaml:"status"`

	// Detail is a short human-readable outcome description.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`

	// StartedAt and DurationMS bound the phase execution.
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
}

// AuditTrail records every phase transition of a run in order, for the
// machine-readable audit report emitted alongside the artifacts.
//
// Thread Safety: NOT safe for concurrent use. Owned by one coordinator run.
type AuditTrail struct {
	TraceID     string        `json:"trace_id" yaml:"trace_id"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time     `json:"completed_at" yaml:"completed_at"`
	Phases      []PhaseRecord `json:"phases" yaml:"phases"`
	FinalStatus FinalStatus   `json:"final_status" yaml:"final_status"`
	Attempts    int           `json:"attempts" yaml:"attempts"`
}

// NewAuditTrail opens a trail for the given trace id.
func NewAuditTrail(traceID string) *AuditTrail {
	return &AuditTrail{
		TraceID:   traceID,
		StartedAt: time.Now().UTC(),
		Phases:    make([]PhaseRecord, 0),
	}
}

// phaseTimer tracks one in-flight phase. Returned by begin, closed by done.
type phaseTimer struct {
	trail   *AuditTrail
	phase   Phase
	attempt int
	started time.Time
}

// begin opens a phase record.
func (t *AuditTrail) begin(phase Phase, attempt int) *phaseTimer {
	return &phaseTimer{
		trail:   t,
		phase:   phase,
		attempt: attempt,
		started: time.Now().UTC(),
	}
}

// done closes the phase record with an outcome.
func (pt *phaseTimer) done(ok bool, detail string) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	pt.trail.Phases = append(pt.trail.Phases, PhaseRecord{
		Sequence:   len(pt.trail.Phases) + 1,
		Phase:      pt.phase.String(),
		Attempt:    pt.attempt,
		Status:     status,
		Detail:     detail,
		StartedAt:  pt.started,
		DurationMS: time.Since(pt.started).Milliseconds(),
	})
}

// finalize stamps the terminal status and attempt count.
func (t *AuditTrail) finalize(status FinalStatus, attempts int) {
	t.CompletedAt = time.Now().UTC()
	t.FinalStatus = status
	t.Attempts = attempts
}

// JSON renders the trail as indented JSON for the audit report file.
func (t *AuditTrail) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// YAML renders the trail for the per-run trace file.
func (t *AuditTrail) YAML() ([]byte, error) {
	return yaml.Marshal(t)
}
