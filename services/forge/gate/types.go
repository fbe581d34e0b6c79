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
	"fmt"
	"sort"
)

// =============================================================================
// CHECK STATUS
// =============================================================================

// CheckStatus is the outcome of one validation check.
type CheckStatus int

const (
	// StatusPass means the check ran and found no blocking problems.
	StatusPass CheckStatus = iota

	// StatusFail means the check ran and the implementation failed it.
	StatusFail

	// StatusSkip means the check could not run because its tool is not
	// installed. Skip never blocks validity.
	StatusSkip

	// StatusError means the check's tool timed out or crashed. Distinct from
	// Fail: it says nothing about the implementation itself.
	StatusError
)

// String returns the status name used in reports and logs.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusSkip:
		return "skip"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON/YAML reports.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================
// SEVERITY
// =============================================================================

// Severity says whether a check result alone can invalidate a report.
type Severity int

const (
	// SeverityAdvisory results are recorded as evidence but never flip
	// a report to invalid.
	SeverityAdvisory Severity = iota

	// SeverityFatal results with status Fail or Error make the report invalid.
	SeverityFatal
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "advisory"
}

// MarshalText implements encoding.TextMarshaler for JSON/YAML reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================
// CHECK NAMES AND DECLARED SEVERITY
// =============================================================================

// Check names are stable report keys; audit consumers depend on them.
const (
	CheckServiceSize  = "service_size"
	CheckSyntax       = "syntax"
	CheckCompile      = "compile"
	CheckPylint       = "pylint"
	CheckPytest       = "pytest"
	CheckClangTidy    = "clang_tidy"
	CheckCppcheck     = "cppcheck"
	CheckClangAnalyze = "clang_analyze"
	CheckAsil         = "asil_heuristic"
)

// severityPolicy declares, per check, whether Fail and Error outcomes are
// fatal. The classification is a fixed property of the check, never inferred
// from tool output.
type severityPolicy struct {
	failFatal  bool
	errorFatal bool
}

var checkPolicies = map[string]severityPolicy{
	CheckServiceSize:  {failFatal: true, errorFatal: true},
	CheckSyntax:       {failFatal: true, errorFatal: true},
	CheckCompile:      {failFatal: true, errorFatal: true},
	CheckPylint:       {failFatal: true, errorFatal: false},
	CheckPytest:       {failFatal: true, errorFatal: true},
	CheckClangTidy:    {failFatal: true, errorFatal: false},
	CheckCppcheck:     {failFatal: false, errorFatal: false},
	CheckClangAnalyze: {failFatal: false, errorFatal: false},
	CheckAsil:         {failFatal: true, errorFatal: true},
}

// severityFor resolves the severity of a result from the declared policy.
func severityFor(name string, status CheckStatus) Severity {
	p, ok := checkPolicies[name]
	if !ok {
		return SeverityAdvisory
	}
	switch status {
	case StatusFail:
		if p.failFatal {
			return SeverityFatal
		}
	case StatusError:
		if p.errorFatal {
			return SeverityFatal
		}
	}
	return SeverityAdvisory
}

// =============================================================================
// CHECK RESULT
// =============================================================================

// CheckResult is the recorded outcome of one check.
//
// Thread Safety: Immutable after recording.
type CheckResult struct {
	// Name is the stable check identifier.
	Name string `json:"name"`

	// Status is the check outcome.
	Status CheckStatus `json:"status"`

	// Severity is the resolved severity of this result.
	Severity Severity `json:"severity"`

	// Detail is a short human-readable elaboration (tool output excerpt).
	Detail string `json:"detail,omitempty"`
}

// Blocking reports whether this result alone invalidates the report.
func (c CheckResult) Blocking() bool {
	return c.Severity == SeverityFatal && (c.Status == StatusFail || c.Status == StatusError)
}

// =============================================================================
// VALIDATION REPORT
// =============================================================================

// Report is the aggregated verdict of one gate invocation.
//
// Valid is true iff no fatal-severity check has status Fail or Error.
// Skip never blocks validity.
//
// Thread Safety: Built by one strategy call; immutable afterwards.
type Report struct {
	// Valid is the aggregate accept/reject verdict.
	Valid bool `json:"valid"`

	// Issues are discrete problem descriptions in discovery order.
	Issues []string `json:"issues"`

	// Checks maps check name to its result.
	Checks map[string]CheckResult `json:"checks"`
}

// newReport creates an empty report.
func newReport() *Report {
	return &Report{
		Issues: make([]string, 0),
		Checks: make(map[string]CheckResult),
	}
}

// record adds a check result, resolving severity from the declared policy.
func (r *Report) record(name string, status CheckStatus, detail string) CheckResult {
	c := CheckResult{
		Name:     name,
		Status:   status,
		Severity: severityFor(name, status),
		Detail:   detail,
	}
	r.Checks[name] = c
	return c
}

// addIssue appends a formatted issue string.
func (r *Report) addIssue(format string, args ...any) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}

// finalize computes Valid from the recorded checks.
func (r *Report) finalize() *Report {
	r.Valid = true
	for _, c := range r.Checks {
		if c.Blocking() {
			r.Valid = false
			return r
		}
	}
	return r
}

// CheckNames returns the recorded check names in sorted order.
//
// Reports must serialize deterministically regardless of whether advisory
// checks ran in parallel.
func (r *Report) CheckNames() []string {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FatalFindings returns the blocking check results in sorted name order.
func (r *Report) FatalFindings() []CheckResult {
	var out []CheckResult
	for _, name := range r.CheckNames() {
		if c := r.Checks[name]; c.Blocking() {
			out = append(out, c)
		}
	}
	return out
}
