// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/autoforge/pkg/ux"
	"github.com/AleutianAI/autoforge/services/forge/artifact"
	"github.com/AleutianAI/autoforge/services/forge/gate"
	"github.com/AleutianAI/autoforge/services/forge/spec"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

// runValidate gates an existing implementation without generation.
func runValidate(cmd *cobra.Command, args []string) error {
	lang, err := spec.ParseLanguage(languageName)
	if err != nil {
		ux.Error(fmt.Sprintf("invalid language: %v", err))
		os.Exit(ExitError)
	}

	implBytes, err := os.ReadFile(args[0])
	if err != nil {
		ux.Error(fmt.Sprintf("cannot read implementation: %v", err))
		os.Exit(ExitError)
	}
	testBytes, err := os.ReadFile(args[1])
	if err != nil {
		ux.Error(fmt.Sprintf("cannot read tests: %v", err))
		os.Exit(ExitError)
	}

	var gateOpts []gate.Option
	if minLines > 0 {
		gateOpts = append(gateOpts, gate.WithMinLines(minLines))
	}
	g := gate.New(tools.NewExecRunner(), gateOpts...)

	impl := artifact.Artifact{Content: string(implBytes), Language: lang, Role: artifact.RoleImplementation}
	test := artifact.Artifact{Content: string(testBytes), Language: spec.LangPython, Role: artifact.RoleTest}

	report, err := g.Validate(context.Background(), impl, test, lang)
	if err != nil {
		ux.Error(fmt.Sprintf("validation infrastructure failed: %v", err))
		os.Exit(ExitError)
	}

	printReport(report)
	if !report.Valid {
		os.Exit(ExitRejected)
	}
	return nil
}

// printReport renders every check and issue of a gate report.
func printReport(report *gate.Report) {
	ux.Title("validation report")
	for _, name := range report.CheckNames() {
		check := report.Checks[name]
		var icon ux.Icon
		switch check.Status {
		case gate.StatusPass:
			icon = ux.IconSuccess
		case gate.StatusSkip:
			icon = ux.IconWarning
		default:
			icon = ux.IconError
		}
		detail := check.Status.String()
		if check.Detail != "" {
			detail = fmt.Sprintf("%s: %s", check.Status, firstLineOf(check.Detail))
		}
		ux.CheckLine(name, icon, detail)
	}

	for _, issue := range report.Issues {
		ux.CheckLine(string(ux.IconBullet), ux.IconWarning, issue)
	}

	if report.Valid {
		ux.Success("valid")
		return
	}
	ux.Error("invalid")
}

// firstLineOf trims a detail string to its first line for display.
func firstLineOf(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
