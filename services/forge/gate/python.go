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
	"strings"
	"time"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/spec"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

// Tool timeouts for the Python pipeline.
const (
	pySyntaxTimeout = 10 * time.Second
	pylintTimeout   = 10 * time.Second
	pytestTimeout   = 30 * time.Second
)

// pythonStrategy validates Python implementations.
//
// Pipeline: size floor → syntax (py_compile) → pylint → pytest.
// The test artifact is rewritten to import the implementation module before
// dynamic execution.
type pythonStrategy struct{}

func (s *pythonStrategy) language() spec.Language {
	return spec.LangPython
}

func (s *pythonStrategy) validate(ctx context.Context, impl, test artifact.Artifact, env *strategyEnv) *Report {
	report := newReport()

	sizeFloorCheck(report, impl, env.minLines)

	implPath, err := env.scratch.write("implementation.py", impl.Content)
	if err != nil {
		report.record(CheckSyntax, StatusError, err.Error())
		report.addIssue("scratch workspace error: %v", err)
		return report
	}

	// Syntax check via byte-compilation. A failure here short-circuits:
	// nothing else is meaningful against code that doesn't parse.
	out, runErr := env.runner.Run(ctx, tools.Invocation{
		Command: "python3",
		Args:    []string{"-m", "py_compile", implPath},
		Dir:     env.scratch.dir,
		Timeout: pySyntaxTimeout,
	})
	if runErr != nil {
		report.record(CheckSyntax, StatusError, runErr.Error())
		return report
	}
	switch {
	case out.NotFound:
		report.record(CheckSyntax, StatusSkip, "python3 not installed")
	case out.Infrastructure():
		report.record(CheckSyntax, StatusError, truncateDetail(out.Stderr))
		report.addIssue("syntax check did not complete")
		return report
	case !out.ExitOK:
		report.record(CheckSyntax, StatusFail, truncateDetail(out.Stderr))
		report.addIssue("syntax error: %s", firstLine(out.Stderr))
		return report
	default:
		report.record(CheckSyntax, StatusPass, "")
	}

	s.runPylint(ctx, report, env, implPath)
	s.runPytest(ctx, report, env, test)

	return report
}

// runPylint records the static analysis check. Only E and F messages are
// enabled, so any non-zero exit means error-class findings exist. A missing
// binary degrades to Skip, a timeout is an advisory Error.
func (s *pythonStrategy) runPylint(ctx context.Context, report *Report, env *strategyEnv, implPath string) {
	out, err := env.runner.Run(ctx, tools.Invocation{
		Command: "pylint",
		Args: []string{
			"--rcfile=/dev/null", "--disable=all", "--enable=E,F", implPath,
		},
		Dir:     env.scratch.dir,
		Timeout: pylintTimeout,
	})
	if err != nil {
		report.record(CheckPylint, StatusError, err.Error())
		return
	}

	switch {
	case out.NotFound:
		report.record(CheckPylint, StatusSkip, "pylint not installed")
	case out.Infrastructure():
		report.record(CheckPylint, StatusError, "pylint timed out or crashed")
	case out.ExitOK:
		report.record(CheckPylint, StatusPass, "")
	default:
		report.record(CheckPylint, StatusFail, truncateDetail(out.Stdout))
		report.addIssue("pylint errors: %s", firstLine(out.Stdout))
	}
}

// runPytest rewrites the test artifact to import the implementation module,
// then executes it with a hard wall-clock timeout. Failing test names are
// surfaced as discrete issues.
func (s *pythonStrategy) runPytest(ctx context.Context, report *Report, env *strategyEnv, test artifact.Artifact) {
	testPath, err := env.scratch.write("test_implementation.py", rewriteTestImports(test.Content))
	if err != nil {
		report.record(CheckPytest, StatusError, err.Error())
		report.addIssue("scratch workspace error: %v", err)
		return
	}

	out, runErr := env.runner.Run(ctx, tools.Invocation{
		Command: "pytest",
		Args:    []string{testPath, "-v", "--tb=short"},
		Dir:     env.scratch.dir,
		Timeout: pytestTimeout,
	})
	if runErr != nil {
		report.record(CheckPytest, StatusError, runErr.Error())
		return
	}

	switch {
	case out.NotFound:
		// Dynamic test execution is the core of the gate; it cannot be
		// skipped the way an advisory linter can.
		report.record(CheckPytest, StatusError, "pytest not installed")
		report.addIssue("pytest not installed")
	case out.TimedOut:
		report.record(CheckPytest, StatusError, "timed out")
		report.addIssue("tests timed out (>%s)", pytestTimeout)
	case out.Crashed:
		report.record(CheckPytest, StatusError, truncateDetail(out.Stderr))
		report.addIssue("test execution error: %s", firstLine(out.Stderr))
	case out.ExitOK:
		report.record(CheckPytest, StatusPass, "")
	default:
		report.record(CheckPytest, StatusFail, truncateDetail(out.Stdout))
		failures := extractPytestFailures(out.Stdout)
		if len(failures) == 0 {
			report.addIssue("tests failed")
		}
		for _, name := range failures {
			report.addIssue("test failed: %s", name)
		}
	}
}

// rewriteTestImports points the test artifact at the implementation module.
func rewriteTestImports(testCode string) string {
	const anchor = "import pytest"
	if strings.Contains(testCode, anchor) {
		return strings.Replace(testCode, anchor,
			anchor+"\nfrom implementation import *", 1)
	}
	return "from implementation import *\n" + testCode
}

// extractPytestFailures pulls failing test names out of pytest -v output.
// Each failing test appears on both the progress line and the short summary
// line, so names are deduplicated in first-seen order.
func extractPytestFailures(output string) []string {
	var failures []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "FAILED") {
			continue
		}
		name := "unknown"
		if idx := strings.LastIndex(line, "::"); idx >= 0 {
			if fields := strings.Fields(line[idx+2:]); len(fields) > 0 {
				name = fields[0]
			}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		failures = append(failures, name)
	}
	return failures
}

// firstLine returns the first non-empty line of tool output.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(s)
}
