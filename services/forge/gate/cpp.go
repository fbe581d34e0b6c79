// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/asil"
	"github.com/AleutianAI/autoforge/services/forge/spec"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

// Tool timeouts for the C++ pipeline.
const (
	cppCompileTimeout = 10 * time.Second
	clangTidyTimeout  = 15 * time.Second
	cppcheckTimeout   = 15 * time.Second
)

// clangTidyChecks approximates a MISRA-relevant check set.
const clangTidyChecks = "--checks=-*,readability-*,bugprone-*,cppcoreguidelines-*"

// maxCppcheckIssues caps how many cppcheck errors surface as issues.
const maxCppcheckIssues = 3

// advisoryFinding is the buffered outcome of one advisory check, merged into
// the report in a fixed order after the parallel fan-out completes.
type advisoryFinding struct {
	name   string
	status CheckStatus
	detail string
	issues []string
}

// cppStrategy validates C++ implementations.
//
// Pipeline: size floor → compile (g++ syntax-only) → clang-tidy and cppcheck
// in parallel → safety heuristics. The advisory fan-out merges results by
// check name so reports stay deterministic regardless of completion order.
type cppStrategy struct{}

func (s *cppStrategy) language() spec.Language {
	return spec.LangCpp
}

func (s *cppStrategy) validate(ctx context.Context, impl, test artifact.Artifact, env *strategyEnv) *Report {
	report := newReport()

	sizeFloorCheck(report, impl, env.minLines)

	implPath, err := env.scratch.write("implementation.cpp", impl.Content)
	if err != nil {
		report.record(CheckCompile, StatusError, err.Error())
		report.addIssue("scratch workspace error: %v", err)
		return report
	}

	out, runErr := env.runner.Run(ctx, tools.Invocation{
		Command: "g++",
		Args:    []string{"-std=c++17", "-fsyntax-only", implPath},
		Dir:     env.scratch.dir,
		Timeout: cppCompileTimeout,
	})
	if runErr != nil {
		report.record(CheckCompile, StatusError, runErr.Error())
		return report
	}
	switch {
	case out.NotFound:
		report.record(CheckCompile, StatusSkip, "g++ not installed")
	case out.Infrastructure():
		report.record(CheckCompile, StatusError, truncateDetail(out.Stderr))
		report.addIssue("compile check did not complete")
	case !out.ExitOK:
		report.record(CheckCompile, StatusFail, truncateDetail(out.Stderr))
		report.addIssue("compilation error: %s", firstLine(out.Stderr))
		// Short-circuit: no point analyzing code that doesn't compile.
		return report
	default:
		report.record(CheckCompile, StatusPass, "")
	}

	// Advisory fan-out. Each check writes into its own slot; the merge order
	// below is fixed.
	var tidy, cppchk advisoryFinding
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tidy = s.runClangTidy(gctx, env, implPath)
		return nil
	})
	g.Go(func() error {
		cppchk = s.runCppcheck(gctx, env, implPath)
		return nil
	})
	_ = g.Wait()

	for _, f := range []advisoryFinding{tidy, cppchk} {
		report.record(f.name, f.status, f.detail)
		for _, issue := range f.issues {
			report.addIssue("%s", issue)
		}
	}

	s.runSafetyHeuristics(ctx, report, env, impl.Content, implPath)

	return report
}

// runClangTidy classifies clang-tidy violations. Only error-level violations
// block; warnings record as a passing check with a count.
func (s *cppStrategy) runClangTidy(ctx context.Context, env *strategyEnv, implPath string) advisoryFinding {
	f := advisoryFinding{name: CheckClangTidy}

	out, err := env.runner.Run(ctx, tools.Invocation{
		Command: "clang-tidy",
		Args:    []string{implPath, clangTidyChecks, "--", "-std=c++17"},
		Dir:     env.scratch.dir,
		Timeout: clangTidyTimeout,
	})
	if err != nil {
		f.status = StatusError
		f.detail = err.Error()
		return f
	}

	switch {
	case out.NotFound:
		f.status = StatusSkip
		f.detail = "clang-tidy not installed"
	case out.Infrastructure():
		f.status = StatusError
		f.detail = "clang-tidy timed out or crashed"
	default:
		violations := parseClangTidyOutput(out.Stdout)
		critical := criticalViolations(violations)
		switch {
		case len(violations) == 0:
			f.status = StatusPass
		case len(critical) > 0:
			f.status = StatusFail
			f.detail = fmt.Sprintf("%d violations (%d errors)", len(violations), len(critical))
			for _, v := range critical {
				f.issues = append(f.issues, "clang-tidy violation: "+v)
			}
		default:
			f.status = StatusPass
			f.detail = fmt.Sprintf("%d warnings", len(violations))
		}
	}
	return f
}

// runCppcheck records the cppcheck result. Always advisory: findings surface
// as issues but never block on their own.
func (s *cppStrategy) runCppcheck(ctx context.Context, env *strategyEnv, implPath string) advisoryFinding {
	f := advisoryFinding{name: CheckCppcheck}

	out, err := env.runner.Run(ctx, tools.Invocation{
		Command: "cppcheck",
		Args: []string{
			"--enable=all", "--error-exitcode=1",
			"--suppress=missingIncludeSystem", implPath,
		},
		Dir:     env.scratch.dir,
		Timeout: cppcheckTimeout,
	})
	if err != nil {
		f.status = StatusError
		f.detail = err.Error()
		return f
	}

	switch {
	case out.NotFound:
		f.status = StatusSkip
		f.detail = "cppcheck not installed"
	case out.Infrastructure():
		f.status = StatusError
		f.detail = "cppcheck timed out or crashed"
	case out.ExitOK:
		f.status = StatusPass
	default:
		f.status = StatusFail
		f.detail = truncateDetail(out.Stderr)
		// cppcheck tags each finding with its severity, e.g.
		// "[file.cpp:3]: (error) Array index out of bounds".
		count := 0
		for _, line := range strings.Split(out.Stderr, "\n") {
			if strings.Contains(line, "(error)") {
				f.issues = append(f.issues, "cppcheck: "+strings.TrimSpace(line))
				count++
				if count >= maxCppcheckIssues {
					break
				}
			}
		}
	}
	return f
}

// runSafetyHeuristics records the safety heuristic verdict and the advisory
// static analyzer signal contributed alongside it.
func (s *cppStrategy) runSafetyHeuristics(ctx context.Context, report *Report, env *strategyEnv, code, implPath string) {
	res := env.safety.Check(ctx, code, implPath)

	if res.Compliant {
		report.record(CheckAsil, StatusPass, "all categories pass")
	} else {
		report.record(CheckAsil, StatusFail, categorySummary(res))
		for _, issue := range res.Issues {
			report.addIssue("%s", issue)
		}
	}

	switch res.Analyzer {
	case asil.SignalPass:
		report.record(CheckClangAnalyze, StatusPass, "")
	case asil.SignalFail:
		report.record(CheckClangAnalyze, StatusFail, truncateDetail(res.AnalyzerOutput))
	default:
		report.record(CheckClangAnalyze, StatusSkip, "clang not installed")
	}
}

// categorySummary renders the failed category names for the check detail.
func categorySummary(res asil.Result) string {
	var failed []string
	for _, cat := range []string{
		asil.CategoryMemorySafety, asil.CategoryDeterminism, asil.CategoryTiming,
		asil.CategoryDefensive, asil.CategoryBounds,
	} {
		if res.Evidence[cat] == asil.SignalFail {
			failed = append(failed, cat)
		}
	}
	return "failed: " + strings.Join(failed, ", ")
}

// parseClangTidyOutput extracts violation lines from clang-tidy output.
func parseClangTidyOutput(output string) []string {
	var violations []string
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "warning:") || strings.Contains(line, "error:") {
			violations = append(violations, strings.TrimSpace(line))
		}
	}
	return violations
}

// criticalViolations filters the error-level violations.
func criticalViolations(violations []string) []string {
	var critical []string
	for _, v := range violations {
		if strings.Contains(v, "error:") {
			critical = append(critical, v)
		}
	}
	return critical
}
