// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package asil performs heuristic safety checks on generated native code.
//
// The checks are transparent token and pattern scans, not a parser. They
// gather evidence aligned with ISO 26262 expectations; they do not replace
// a formal safety case. An optional clang static analyzer pass contributes
// an advisory signal when clang is installed.
package asil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/autoforge/services/forge/tools"
)

// =============================================================================
// SIGNALS
// =============================================================================

// Signal is the outcome of one heuristic category or the analyzer pass.
type Signal string

const (
	// SignalPass means the category found no violations.
	SignalPass Signal = "pass"

	// SignalFail means the category found at least one violation.
	SignalFail Signal = "fail"

	// SignalSkip means the check could not run (tool unavailable).
	// Skip never blocks compliance.
	SignalSkip Signal = "skip"
)

// Result is the evidence bundle from one safety check.
//
// Thread Safety: Immutable after Check returns.
type Result struct {
	// Compliant is true iff all five heuristic categories pass.
	// The analyzer signal is advisory and never flips this.
	Compliant bool `json:"compliant"`

	// Issues are human-readable violation descriptions, one per finding.
	Issues []string `json:"issues"`

	// Evidence maps category name to its signal.
	Evidence map[string]Signal `json:"evidence"`

	// Analyzer is the clang static analyzer signal (advisory).
	Analyzer Signal `json:"analyzer"`

	// AnalyzerOutput holds truncated analyzer diagnostics when it failed.
	AnalyzerOutput string `json:"analyzer_output,omitempty"`
}

// analyzerTimeout bounds the clang --analyze pass.
const analyzerTimeout = 20 * time.Second

// maxAnalyzerOutput caps stored analyzer diagnostics.
const maxAnalyzerOutput = 2000

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator runs the heuristic safety categories over native source text.
//
// Thread Safety: Safe for concurrent use; holds no per-call state.
type Validator struct {
	runner tools.Runner
}

// NewValidator creates a validator.
//
// Inputs:
//
//	runner - Tool runner for the optional clang analyzer pass. May be nil,
//	         in which case the analyzer signal is always Skip.
func NewValidator(runner tools.Runner) *Validator {
	return &Validator{runner: runner}
}

// Check scans source text against the five heuristic categories.
//
// Description:
//
//	Token scans run over the raw text in a fixed category order. When
//	sourcePath is non-empty and clang is available, a clang --analyze pass
//	contributes an advisory signal; its absence degrades to Skip, never
//	to Fail.
//
// Inputs:
//
//	ctx - Context for the analyzer subprocess
//	sourceText - The native source to scan
//	sourcePath - On-disk path for the analyzer pass; empty skips the analyzer
//
// Outputs:
//
//	Result - Compliance verdict with per-category evidence
//
// Thread Safety: Safe for concurrent use.
func (v *Validator) Check(ctx context.Context, sourceText, sourcePath string) Result {
	res := Result{
		Evidence: make(map[string]Signal, 5),
		Analyzer: SignalSkip,
	}

	v.checkTokens(&res, CategoryMemorySafety, sourceText, unsafeAPIs,
		"memory safety: unsafe APIs used")
	v.checkTokens(&res, CategoryDeterminism, sourceText, nonDeterministicAPIs,
		"determinism: non-deterministic APIs detected")
	v.checkTokens(&res, CategoryTiming, sourceText, unboundedLoops,
		"timing: unbounded loop(s) detected")
	v.checkPresence(&res, CategoryDefensive, sourceText, defensivePatterns,
		"defensive programming: no guard, assertion, or error-return construct found")
	v.checkPresence(&res, CategoryBounds, sourceText, boundsPatterns,
		"bounds checking: no length check or bounded access pattern found")

	if sourcePath != "" && v.runner != nil {
		v.runAnalyzer(ctx, &res, sourcePath)
	}

	res.Compliant = true
	for _, cat := range []string{
		CategoryMemorySafety, CategoryDeterminism, CategoryTiming,
		CategoryDefensive, CategoryBounds,
	} {
		if res.Evidence[cat] != SignalPass {
			res.Compliant = false
		}
	}

	slog.Debug("Safety heuristics completed",
		slog.Bool("compliant", res.Compliant),
		slog.Int("issues", len(res.Issues)),
		slog.String("analyzer", string(res.Analyzer)),
	)

	return res
}

// checkTokens fails the category when any forbidden token appears.
func (v *Validator) checkTokens(res *Result, category, text string, forbidden []string, issuePrefix string) {
	var hits []string
	for _, token := range forbidden {
		if strings.Contains(text, token) {
			hits = append(hits, token)
		}
	}
	if len(hits) == 0 {
		res.Evidence[category] = SignalPass
		return
	}
	res.Evidence[category] = SignalFail
	res.Issues = append(res.Issues, fmt.Sprintf("%s: %s", issuePrefix, strings.Join(hits, ", ")))
}

// checkPresence fails the category when none of the required patterns appear.
func (v *Validator) checkPresence(res *Result, category, text string, required []*guardPattern, issue string) {
	for _, p := range required {
		if p.compiled().MatchString(text) {
			res.Evidence[category] = SignalPass
			return
		}
	}
	res.Evidence[category] = SignalFail
	res.Issues = append(res.Issues, issue)
}

// runAnalyzer contributes the advisory clang --analyze signal.
func (v *Validator) runAnalyzer(ctx context.Context, res *Result, sourcePath string) {
	out, err := v.runner.Run(ctx, tools.Invocation{
		Command: "clang",
		Args:    []string{"--analyze", "-std=c++17", sourcePath},
		Timeout: analyzerTimeout,
	})
	if err != nil {
		// Caller cancellation; leave the signal as Skip.
		return
	}

	switch {
	case out.NotFound:
		res.Analyzer = SignalSkip
	case out.Infrastructure():
		res.Analyzer = SignalSkip
		slog.Warn("Static analyzer unavailable",
			slog.Bool("timed_out", out.TimedOut),
			slog.Bool("crashed", out.Crashed),
		)
	case out.ExitOK:
		res.Analyzer = SignalPass
	default:
		res.Analyzer = SignalFail
		diag := strings.TrimSpace(out.Stderr)
		if diag == "" {
			diag = strings.TrimSpace(out.Stdout)
		}
		if len(diag) > maxAnalyzerOutput {
			diag = diag[:maxAnalyzerOutput] + "\n...truncated..."
		}
		res.AnalyzerOutput = diag
	}
}
