// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gate decides accept/reject for generated implementations.
//
// The gate dispatches to a closed set of per-language strategies. Each
// strategy runs an ordered pipeline of checks in an isolated scratch
// workspace: size floor, syntax/compile, static analysis, dynamic tests
// (Python), and safety heuristics (C++). A compile failure short-circuits
// the remaining checks; everything else continues so a single report carries
// maximal evidence.
//
// The gate is stateless per call and explicitly constructed: tool execution
// goes through an injected tools.Runner so tests never need real toolchains.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/asil"
	"github.com/AleutianAI/autoforge/services/forge/spec"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

// DefaultMinLines is the default size floor for generated implementations.
const DefaultMinLines = 200

// =============================================================================
// STRATEGY
// =============================================================================

// strategyEnv carries per-invocation resources into a strategy.
type strategyEnv struct {
	runner   tools.Runner
	scratch  *scratch
	minLines int
	safety   *asil.Validator
}

// strategy is one per-language validation pipeline.
type strategy interface {
	language() spec.Language
	validate(ctx context.Context, impl, test artifact.Artifact, env *strategyEnv) *Report
}

// =============================================================================
// GATE
// =============================================================================

// Gate validates generated implementations against their paired tests.
//
// Thread Safety: Safe for concurrent use. The strategy registry is read-only
// after construction and each validation owns its own scratch workspace.
type Gate struct {
	runner     tools.Runner
	minLines   int
	safety     *asil.Validator
	strategies map[spec.Language]strategy
}

// Option configures the Gate.
type Option func(*Gate)

// WithMinLines overrides the size floor.
func WithMinLines(n int) Option {
	return func(g *Gate) {
		g.minLines = n
	}
}

// WithSafetyValidator overrides the safety heuristic validator.
func WithSafetyValidator(v *asil.Validator) Option {
	return func(g *Gate) {
		g.safety = v
	}
}

// New creates a gate with the closed strategy set.
//
// Description:
//
//	Builds the language registry once; it is read-only afterwards and safe
//	for concurrent validations. The runner is required so tool execution is
//	always injectable.
//
// Inputs:
//
//	runner - Executes external tools; use tools.NewExecRunner() in production
//	opts - Optional configuration
//
// Outputs:
//
//	*Gate - The configured gate
func New(runner tools.Runner, opts ...Option) *Gate {
	g := &Gate{
		runner:   runner,
		minLines: DefaultMinLines,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.safety == nil {
		g.safety = asil.NewValidator(runner)
	}

	g.strategies = map[spec.Language]strategy{
		spec.LangPython: &pythonStrategy{},
		spec.LangCpp:    &cppStrategy{},
		spec.LangJava:   &javaStrategy{},
		spec.LangRust:   &rustStrategy{},
	}
	return g
}

// Validate runs the language strategy and aggregates one verdict.
//
// Description:
//
//	Creates a fresh scratch workspace, dispatches to the strategy for the
//	language, and returns the aggregated report. The workspace is removed
//	on every exit path. Languages outside the strategy set (including
//	Kotlin) yield an invalid report, not an error: the verdict is part of
//	the gate's contract, not an infrastructure failure.
//
// Inputs:
//
//	ctx - Context for cancellation; tool timeouts are layered on top
//	impl - The implementation artifact
//	test - The paired test artifact
//	lang - Target language
//
// Outputs:
//
//	*Report - The aggregated verdict with structured evidence
//	error - Non-nil only for infrastructure failures (nil ctx, no scratch)
//
// Thread Safety: Safe for concurrent use.
func (g *Gate) Validate(ctx context.Context, impl, test artifact.Artifact, lang spec.Language) (*Report, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}

	ctx, span := startValidateSpan(ctx, lang.String())
	defer span.End()
	start := time.Now()

	strat, ok := g.strategies[lang]
	if !ok {
		report := newReport()
		report.addIssue("unsupported language: %s", lang)
		report.Valid = false
		slog.Warn("No validation strategy for language", slog.String("language", lang.String()))
		setValidateSpanResult(span, false, len(report.Issues))
		return report, nil
	}

	ws, err := newScratch()
	if err != nil {
		return nil, err
	}
	defer ws.cleanup()

	env := &strategyEnv{
		runner:   g.runner,
		scratch:  ws,
		minLines: g.minLines,
		safety:   g.safety,
	}

	report := strat.validate(ctx, impl, test, env)
	report.finalize()

	setValidateSpanResult(span, report.Valid, len(report.Issues))
	recordValidateMetrics(ctx, lang.String(), time.Since(start), report)

	slog.Debug("Gate validation completed",
		slog.String("language", lang.String()),
		slog.Bool("valid", report.Valid),
		slog.Int("issues", len(report.Issues)),
		slog.Duration("duration", time.Since(start)),
	)

	return report, nil
}

// =============================================================================
// SHARED CHECKS
// =============================================================================

// sizeFloorCheck records the service size check. Fatal below the floor, but
// never short-circuits the rest of the pipeline.
func sizeFloorCheck(report *Report, impl artifact.Artifact, minLines int) {
	lines := impl.NonBlankLines()
	if lines < minLines {
		report.record(CheckServiceSize, StatusFail,
			fmt.Sprintf("%d non-blank lines", lines))
		report.addIssue("service size too small: %d lines (minimum %d required)", lines, minLines)
		return
	}
	report.record(CheckServiceSize, StatusPass,
		fmt.Sprintf("%d non-blank lines", lines))
}

// truncateDetail caps tool output stored in check details.
func truncateDetail(s string) string {
	const max = 2000
	if len(s) > max {
		return s[:max] + "\n...truncated..."
	}
	return s
}
