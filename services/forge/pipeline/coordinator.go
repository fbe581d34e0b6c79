// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline coordinates the adversarial generation loop.
//
// One run is an explicit state machine: parse, test generation, code
// generation, validation, then accept, retry into code generation, or reject.
// Only code generation and validation sit inside the retry loop; parse and
// test generation failures reject the run immediately. Every run produces a
// sealed RunRecord with a full audit trail, accepted or not.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/gate"
	"github.com/AleutianAI/autoforge/services/forge/llm"
	"github.com/AleutianAI/autoforge/services/forge/spec"
)

// DefaultMaxAttempts bounds the code generation retry loop.
const DefaultMaxAttempts = 3

// =============================================================================
// STATES
// =============================================================================

// state is the coordinator's position in the run state machine.
type state int

const (
	stateParse state = iota
	stateTestGen
	stateCodeGen
	stateValidate
	stateAccepted
	stateRejected
)

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator drives one requirement through the governance pipeline.
//
// Thread Safety: Safe for concurrent Run calls. All per-run state lives in
// local variables and the RunRecord.
type Coordinator struct {
	auditor     *llm.RoleClient
	architect   *llm.RoleClient
	gate        *gate.Gate
	maxAttempts int
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithMaxAttempts overrides the retry bound. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

// New creates a coordinator over the two generation roles and the gate.
func New(auditor, architect *llm.RoleClient, g *gate.Gate, opts ...Option) *Coordinator {
	c := &Coordinator{
		auditor:     auditor,
		architect:   architect,
		gate:        g,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the full pipeline for one raw requirement document.
//
// Description:
//
//	Walks the state machine until a terminal state. The returned record is
//	always sealed: structural failures (unparseable requirement, test
//	generation failure) seal it rejected with zero attempts; otherwise the
//	code generation and validation loop runs up to the attempt bound. The
//	gate's issue lists accumulate across attempts and feed back into the
//	Architect's prompt, while the sealed record reports only the final
//	attempt's issues.
//
// Inputs:
//
//	ctx - Context for cancellation; checked at every state transition
//	requirement - Raw requirement document bytes (YAML)
//
// Outputs:
//
//	*RunRecord - The sealed run history; never nil
//	error - Non-nil only for infrastructure failures from the gate
//
// Thread Safety: Safe for concurrent use.
func (c *Coordinator) Run(ctx context.Context, requirement []byte) (*RunRecord, error) {
	run := newRunRecord()
	ctx, span := startRunSpan(ctx, run.TraceID)
	defer span.End()
	start := time.Now()

	slog.Info("Pipeline run started", slog.String("trace_id", run.TraceID))

	var (
		svc      *spec.Spec
		test     artifact.Artifact
		impl     artifact.Artifact
		report   *gate.Report
		feedback []string
		attempt  int
	)

	st := stateParse
	for {
		if err := ctx.Err(); err != nil {
			c.sealRejected(run, attempt, []string{fmt.Sprintf("run cancelled: %v", err)})
			finishRunSpan(ctx, span, run, time.Since(start))
			return run, nil
		}

		switch st {
		case stateParse:
			timer := run.Audit.begin(PhaseParse, 0)
			parsed, err := spec.Parse(requirement)
			if err != nil {
				timer.done(false, err.Error())
				c.sealRejected(run, attempt, []string{fmt.Sprintf("requirement rejected: %v", err)})
				finishRunSpan(ctx, span, run, time.Since(start))
				return run, nil
			}
			svc = parsed
			run.Service = svc.Name
			run.Language = svc.Language
			timer.done(true, fmt.Sprintf("service %s (%s)", svc.Name, svc.Language))
			st = stateTestGen

		case stateTestGen:
			timer := run.Audit.begin(PhaseTestGen, 0)
			generated, err := c.auditor.Produce(ctx, svc, llm.Context{})
			if err != nil {
				timer.done(false, err.Error())
				c.sealRejected(run, attempt, []string{fmt.Sprintf("test generation failed: %v", err)})
				finishRunSpan(ctx, span, run, time.Since(start))
				return run, nil
			}
			test = generated
			run.TestArtifact = test
			timer.done(true, fmt.Sprintf("%d non-blank lines", test.NonBlankLines()))
			st = stateCodeGen

		case stateCodeGen:
			attempt++
			timer := run.Audit.begin(PhaseCodeGen, attempt)
			generated, err := c.architect.Produce(ctx, svc, llm.Context{
				Test:        test,
				PriorIssues: feedback,
			})
			if err != nil {
				timer.done(false, err.Error())
				genErr := fmt.Sprintf("code generation failed: %v", err)
				run.recordAttempt(AttemptRecord{Index: attempt, GenerationError: genErr})
				feedback = append(feedback, genErr)
				slog.Warn("Code generation attempt failed",
					slog.String("trace_id", run.TraceID),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()),
				)
				if attempt < c.maxAttempts {
					st = stateCodeGen
					continue
				}
				st = stateRejected
				continue
			}
			impl = generated
			timer.done(true, fmt.Sprintf("%d non-blank lines", impl.NonBlankLines()))
			st = stateValidate

		case stateValidate:
			timer := run.Audit.begin(PhaseValidate, attempt)
			r, err := c.gate.Validate(ctx, impl, test, svc.Language)
			if err != nil {
				timer.done(false, err.Error())
				c.sealRejected(run, attempt, []string{fmt.Sprintf("validation infrastructure failed: %v", err)})
				finishRunSpan(ctx, span, run, time.Since(start))
				return run, err
			}
			report = r
			run.recordAttempt(AttemptRecord{
				Index:          attempt,
				Implementation: impl,
				Report:         report,
			})

			if report.Valid {
				timer.done(true, "valid")
				st = stateAccepted
				continue
			}
			timer.done(false, fmt.Sprintf("%d issues", len(report.Issues)))
			feedback = append(feedback, report.Issues...)
			slog.Info("Validation rejected attempt",
				slog.String("trace_id", run.TraceID),
				slog.Int("attempt", attempt),
				slog.Int("issues", len(report.Issues)),
			)
			if attempt < c.maxAttempts {
				st = stateCodeGen
				continue
			}
			st = stateRejected

		case stateAccepted:
			accepted := impl
			run.seal(StatusAccepted, &accepted, nil)
			run.Audit.finalize(StatusAccepted, attempt)
			slog.Info("Pipeline run accepted",
				slog.String("trace_id", run.TraceID),
				slog.String("service", run.Service),
				slog.Int("attempts", attempt),
			)
			finishRunSpan(ctx, span, run, time.Since(start))
			return run, nil

		case stateRejected:
			c.sealRejected(run, attempt, c.finalIssues(run))
			finishRunSpan(ctx, span, run, time.Since(start))
			return run, nil
		}
	}
}

// sealRejected seals the run rejected and finalizes the audit trail.
func (c *Coordinator) sealRejected(run *RunRecord, attempts int, issues []string) {
	run.seal(StatusRejected, nil, issues)
	run.Audit.finalize(StatusRejected, attempts)
	slog.Warn("Pipeline run rejected",
		slog.String("trace_id", run.TraceID),
		slog.String("service", run.Service),
		slog.Int("attempts", attempts),
		slog.Int("issues", len(issues)),
	)
}

// finalIssues returns the last attempt's issue list. The sealed record
// reports only the terminal verdict, not the accumulated feedback.
func (c *Coordinator) finalIssues(run *RunRecord) []string {
	if len(run.Attempts) == 0 {
		return nil
	}
	return run.Attempts[len(run.Attempts)-1].Issues()
}
