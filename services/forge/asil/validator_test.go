// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package asil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/autoforge/services/forge/tools"
)

// cleanSource has guards, bounded loops, and checked accesses throughout.
const cleanSource = `
#include <array>
#include <cstdint>

int32_t read_cell(const std::array<int32_t, 16>& cells, size_t idx) {
    if (idx < cells.size()) {
        return cells.at(idx);
    }
    return -1;
}

int32_t sum_cells(const std::array<int32_t, 16>& cells) {
    int32_t total = 0;
    for (size_t i = 0; i < cells.size(); ++i) {
        total += cells.at(i);
    }
    return total;
}
`

func TestCheckCompliantSource(t *testing.T) {
	v := NewValidator(nil)
	res := v.Check(context.Background(), cleanSource, "")

	assert.True(t, res.Compliant)
	assert.Empty(t, res.Issues)
	assert.Equal(t, SignalSkip, res.Analyzer)
	for _, cat := range []string{
		CategoryMemorySafety, CategoryDeterminism, CategoryTiming,
		CategoryDefensive, CategoryBounds,
	} {
		assert.Equal(t, SignalPass, res.Evidence[cat], cat)
	}
}

func TestCheckUnsafeAPIFailsMemorySafety(t *testing.T) {
	src := cleanSource + "\nvoid copy(char* d, const char* s) { strcpy(d, s); }\n"
	v := NewValidator(nil)
	res := v.Check(context.Background(), src, "")

	assert.False(t, res.Compliant)
	assert.Equal(t, SignalFail, res.Evidence[CategoryMemorySafety])
	require.NotEmpty(t, res.Issues)
	assert.Contains(t, res.Issues[0], "strcpy(")
}

func TestCheckNonDeterministicAPIFails(t *testing.T) {
	src := cleanSource + "\nint jitter() { return rand(); }\n"
	v := NewValidator(nil)
	res := v.Check(context.Background(), src, "")

	assert.False(t, res.Compliant)
	assert.Equal(t, SignalFail, res.Evidence[CategoryDeterminism])
}

func TestCheckUnboundedLoopFails(t *testing.T) {
	tests := []string{"while(true)", "while (true)", "for(;;)", "for (;;)"}
	for _, loop := range tests {
		src := cleanSource + "\nvoid spin() { " + loop + " {} }\n"
		v := NewValidator(nil)
		res := v.Check(context.Background(), src, "")

		assert.False(t, res.Compliant, loop)
		assert.Equal(t, SignalFail, res.Evidence[CategoryTiming], loop)
	}
}

func TestCheckMissingGuardsFails(t *testing.T) {
	// No conditionals, assertions, throws, or bounded accesses at all.
	src := "int just_math(int a, int b) { return a + b; }"
	v := NewValidator(nil)
	res := v.Check(context.Background(), src, "")

	assert.False(t, res.Compliant)
	assert.Equal(t, SignalFail, res.Evidence[CategoryDefensive])
	assert.Equal(t, SignalFail, res.Evidence[CategoryBounds])
	assert.Len(t, res.Issues, 2)
}

func TestCheckMultipleViolationsAccumulate(t *testing.T) {
	src := "void bad() { char b[8]; strcpy(b, \"x\"); srand(1); while(true) {} }"
	v := NewValidator(nil)
	res := v.Check(context.Background(), src, "")

	assert.False(t, res.Compliant)
	// memory, determinism, timing, defensive, bounds all fail.
	assert.Len(t, res.Issues, 5)
}

func TestAnalyzerPassSignal(t *testing.T) {
	runner := tools.NewScriptedRunner().
		Script("clang", tools.Outcome{ExitOK: true})
	v := NewValidator(runner)

	res := v.Check(context.Background(), cleanSource, "/tmp/impl.cpp")
	assert.True(t, res.Compliant)
	assert.Equal(t, SignalPass, res.Analyzer)
	assert.Equal(t, []string{"clang"}, runner.CalledCommands())
}

func TestAnalyzerFailureIsAdvisory(t *testing.T) {
	runner := tools.NewScriptedRunner().
		Script("clang", tools.Outcome{Stderr: "warning: garbage value"})
	v := NewValidator(runner)

	res := v.Check(context.Background(), cleanSource, "/tmp/impl.cpp")

	// Analyzer findings never flip compliance.
	assert.True(t, res.Compliant)
	assert.Equal(t, SignalFail, res.Analyzer)
	assert.Contains(t, res.AnalyzerOutput, "garbage value")
}

func TestAnalyzerMissingDegradesToSkip(t *testing.T) {
	runner := tools.NewScriptedRunner() // clang unscripted -> not found
	v := NewValidator(runner)

	res := v.Check(context.Background(), cleanSource, "/tmp/impl.cpp")
	assert.True(t, res.Compliant)
	assert.Equal(t, SignalSkip, res.Analyzer)
}

func TestAnalyzerTimeoutDegradesToSkip(t *testing.T) {
	runner := tools.NewScriptedRunner().
		Script("clang", tools.Outcome{TimedOut: true})
	v := NewValidator(runner)

	res := v.Check(context.Background(), cleanSource, "/tmp/impl.cpp")
	assert.Equal(t, SignalSkip, res.Analyzer)
	assert.True(t, res.Compliant)
}

func TestCheckIsDeterministic(t *testing.T) {
	src := "void bad() { char b[8]; strcat(b, \"x\"); std::thread t; }"
	v := NewValidator(nil)

	first := v.Check(context.Background(), src, "")
	second := v.Check(context.Background(), src, "")

	assert.Equal(t, first.Compliant, second.Compliant)
	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, first.Evidence, second.Evidence)
}
