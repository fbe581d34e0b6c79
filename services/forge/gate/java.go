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
	"regexp"
	"time"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/spec"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

const javacTimeout = 15 * time.Second

// javaClassPattern finds the public class so the source file can carry the
// name javac requires.
var javaClassPattern = regexp.MustCompile(`public\s+class\s+([A-Za-z_][A-Za-z0-9_]*)`)

// javaStrategy validates Java implementations: size floor → javac.
type javaStrategy struct{}

func (s *javaStrategy) language() spec.Language {
	return spec.LangJava
}

func (s *javaStrategy) validate(ctx context.Context, impl, test artifact.Artifact, env *strategyEnv) *Report {
	report := newReport()

	sizeFloorCheck(report, impl, env.minLines)

	className := "Implementation"
	if m := javaClassPattern.FindStringSubmatch(impl.Content); m != nil {
		className = m[1]
	}

	implPath, err := env.scratch.write(className+".java", impl.Content)
	if err != nil {
		report.record(CheckCompile, StatusError, err.Error())
		report.addIssue("scratch workspace error: %v", err)
		return report
	}

	out, runErr := env.runner.Run(ctx, tools.Invocation{
		Command: "javac",
		Args:    []string{implPath},
		Dir:     env.scratch.dir,
		Timeout: javacTimeout,
	})
	if runErr != nil {
		report.record(CheckCompile, StatusError, runErr.Error())
		return report
	}

	switch {
	case out.NotFound:
		report.record(CheckCompile, StatusSkip, "javac not installed")
	case out.Infrastructure():
		report.record(CheckCompile, StatusError, truncateDetail(out.Stderr))
		report.addIssue("compile check did not complete")
	case out.ExitOK:
		report.record(CheckCompile, StatusPass, "")
	default:
		report.record(CheckCompile, StatusFail, truncateDetail(out.Stderr))
		report.addIssue("java compile error: %s", firstLine(out.Stderr))
	}

	return report
}
