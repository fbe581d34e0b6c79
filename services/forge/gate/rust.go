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
	"time"

	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/spec"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

const rustcTimeout = 15 * time.Second

// rustStrategy validates Rust implementations: size floor → rustc metadata
// check. Metadata emission type-checks the crate without full codegen.
type rustStrategy struct{}

func (s *rustStrategy) language() spec.Language {
	return spec.LangRust
}

func (s *rustStrategy) validate(ctx context.Context, impl, test artifact.Artifact, env *strategyEnv) *Report {
	report := newReport()

	sizeFloorCheck(report, impl, env.minLines)

	implPath, err := env.scratch.write("implementation.rs", impl.Content)
	if err != nil {
		report.record(CheckCompile, StatusError, err.Error())
		report.addIssue("scratch workspace error: %v", err)
		return report
	}

	out, runErr := env.runner.Run(ctx, tools.Invocation{
		Command: "rustc",
		Args:    []string{"--edition=2021", "--emit=metadata", implPath},
		Dir:     env.scratch.dir,
		Timeout: rustcTimeout,
	})
	if runErr != nil {
		report.record(CheckCompile, StatusError, runErr.Error())
		return report
	}

	switch {
	case out.NotFound:
		report.record(CheckCompile, StatusSkip, "rustc not installed")
	case out.Infrastructure():
		report.record(CheckCompile, StatusError, truncateDetail(out.Stderr))
		report.addIssue("compile check did not complete")
	case out.ExitOK:
		report.record(CheckCompile, StatusPass, "")
	default:
		report.record(CheckCompile, StatusFail, truncateDetail(out.Stderr))
		report.addIssue("rust compile error: %s", firstLine(out.Stderr))
	}

	return report
}
