// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/autoforge/services/forge/gate"
	"github.com/AleutianAI/autoforge/services/forge/llm"
	"github.com/AleutianAI/autoforge/services/forge/tools"
)

const pythonRequirement = `
service:
  name: EchoService
  language: python
methods:
  - name: Echo
    description: Return the input unchanged
`

const testResponse = "```python\nimport pytest\n\ndef test_echo():\n    assert echo(1) == 1\n```"

// implResponse builds an implementation response with n non-blank lines.
func implResponse(n int) string {
	return "```python\n" + strings.Repeat("x = 1\n", n) + "```"
}

// passingGate validates anything with at least minLines non-blank lines.
func passingGate(minLines int) *gate.Gate {
	runner := tools.NewScriptedRunner().
		Script("python3", tools.Outcome{ExitOK: true}).
		Script("pylint", tools.Outcome{ExitOK: true}).
		Script("pytest", tools.Outcome{ExitOK: true})
	return gate.New(runner, gate.WithMinLines(minLines))
}

// failingGate rejects every attempt with a pytest failure.
func failingGate() *gate.Gate {
	runner := tools.NewScriptedRunner().
		Script("python3", tools.Outcome{ExitOK: true}).
		Script("pylint", tools.Outcome{ExitOK: true}).
		Script("pytest", tools.Outcome{Stdout: "test_implementation.py::test_echo FAILED"})
	return gate.New(runner, gate.WithMinLines(1))
}

func TestRunAcceptedFirstAttempt(t *testing.T) {
	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	architect := llm.NewArchitect(llm.NewMockClient(implResponse(5)))
	c := New(auditor, architect, passingGate(1))

	run, err := c.Run(context.Background(), []byte(pythonRequirement))
	require.NoError(t, err)

	assert.True(t, run.Accepted())
	assert.True(t, run.Sealed())
	assert.Equal(t, StatusAccepted, run.FinalStatus)
	assert.Equal(t, "EchoService", run.Service)
	require.Len(t, run.Attempts, 1)
	assert.Equal(t, 1, run.Attempts[0].Index)
	require.NotNil(t, run.AcceptedArtifact)
	assert.Contains(t, run.AcceptedArtifact.Content, "x = 1")
	assert.Empty(t, run.Issues)
	assert.NotEmpty(t, run.TestArtifact.Content)
	assert.True(t, strings.HasPrefix(run.TraceID, "TRACE-"))
}

func TestRunExhaustsAttempts(t *testing.T) {
	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	architect := llm.NewArchitect(llm.NewMockClient(implResponse(5)))
	c := New(auditor, architect, failingGate())

	run, err := c.Run(context.Background(), []byte(pythonRequirement))
	require.NoError(t, err)

	assert.False(t, run.Accepted())
	assert.Equal(t, StatusRejected, run.FinalStatus)
	assert.Nil(t, run.AcceptedArtifact)

	// Attempt bound is exact: DefaultMaxAttempts attempts, 1-based indexes.
	require.Len(t, run.Attempts, DefaultMaxAttempts)
	for i, attempt := range run.Attempts {
		assert.Equal(t, i+1, attempt.Index)
		require.NotNil(t, attempt.Report)
		assert.False(t, attempt.Report.Valid)
	}

	// The sealed record reports the final attempt's issues.
	last := run.Attempts[len(run.Attempts)-1]
	assert.Equal(t, last.Report.Issues, run.Issues)
	assert.Contains(t, run.Issues, "test failed: test_echo")
}

func TestRunFeedbackAccumulatesAcrossAttempts(t *testing.T) {
	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	architectBackend := llm.NewMockClient(implResponse(5))
	architect := llm.NewArchitect(architectBackend)
	c := New(auditor, architect, failingGate())

	_, err := c.Run(context.Background(), []byte(pythonRequirement))
	require.NoError(t, err)

	prompts := architectBackend.Prompts()
	require.Len(t, prompts, DefaultMaxAttempts)

	// First attempt sees no feedback; later attempts see the gate issues.
	assert.NotContains(t, prompts[0], "test failed: test_echo")
	assert.Contains(t, prompts[1], "test failed: test_echo")
	assert.Contains(t, prompts[2], "test failed: test_echo")
}

func TestRunAcceptedOnRetry(t *testing.T) {
	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	// First implementation is below the size floor, second clears it.
	architect := llm.NewArchitect(llm.NewMockClient(implResponse(2), implResponse(8)))
	c := New(auditor, architect, passingGate(5))

	run, err := c.Run(context.Background(), []byte(pythonRequirement))
	require.NoError(t, err)

	assert.True(t, run.Accepted())
	require.Len(t, run.Attempts, 2)
	assert.False(t, run.Attempts[0].Report.Valid)
	assert.True(t, run.Attempts[1].Report.Valid)
	assert.Empty(t, run.Issues)
}

func TestRunParseFailureRejectsWithoutAttempts(t *testing.T) {
	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	architect := llm.NewArchitect(llm.NewMockClient(implResponse(5)))
	c := New(auditor, architect, passingGate(1))

	run, err := c.Run(context.Background(), []byte("service:\n  name: NoLang\n"))
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, run.FinalStatus)
	assert.Empty(t, run.Attempts)
	require.NotEmpty(t, run.Issues)
	assert.Contains(t, run.Issues[0], "requirement rejected")
}

func TestRunTestGenFailureRejectsWithoutAttempts(t *testing.T) {
	backendErr := errors.New("backend down")
	auditor := llm.NewAuditor(llm.NewMockClient().FailWith(backendErr))
	architect := llm.NewArchitect(llm.NewMockClient(implResponse(5)))
	c := New(auditor, architect, passingGate(1))

	run, err := c.Run(context.Background(), []byte(pythonRequirement))
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, run.FinalStatus)
	assert.Empty(t, run.Attempts)
	require.NotEmpty(t, run.Issues)
	assert.Contains(t, run.Issues[0], "test generation failed")
}

func TestRunCodeGenErrorsAreRetried(t *testing.T) {
	backendErr := errors.New("rate limited")
	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	architect := llm.NewArchitect(llm.NewMockClient().FailWith(backendErr))
	c := New(auditor, architect, passingGate(1))

	run, err := c.Run(context.Background(), []byte(pythonRequirement))
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, run.FinalStatus)
	require.Len(t, run.Attempts, DefaultMaxAttempts)
	for _, attempt := range run.Attempts {
		assert.Nil(t, attempt.Report)
		assert.Contains(t, attempt.GenerationError, "code generation failed")
	}
	require.NotEmpty(t, run.Issues)
	assert.Contains(t, run.Issues[0], "code generation failed")
}

func TestRunWithMaxAttemptsOverride(t *testing.T) {
	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	architect := llm.NewArchitect(llm.NewMockClient(implResponse(5)))
	c := New(auditor, architect, failingGate(), WithMaxAttempts(1))

	run, err := c.Run(context.Background(), []byte(pythonRequirement))
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, run.FinalStatus)
	assert.Len(t, run.Attempts, 1)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	architect := llm.NewArchitect(llm.NewMockClient(implResponse(5)))
	c := New(auditor, architect, passingGate(1))

	run, err := c.Run(ctx, []byte(pythonRequirement))
	require.NoError(t, err)

	assert.True(t, run.Sealed())
	assert.Equal(t, StatusRejected, run.FinalStatus)
	require.NotEmpty(t, run.Issues)
	assert.Contains(t, run.Issues[0], "run cancelled")
}

func TestRunAuditTrailRecordsPhases(t *testing.T) {
	auditor := llm.NewAuditor(llm.NewMockClient(testResponse))
	architect := llm.NewArchitect(llm.NewMockClient(implResponse(5)))
	c := New(auditor, architect, passingGate(1))

	run, err := c.Run(context.Background(), []byte(pythonRequirement))
	require.NoError(t, err)

	trail := run.Audit
	require.NotNil(t, trail)
	assert.Equal(t, run.TraceID, trail.TraceID)
	assert.Equal(t, StatusAccepted, trail.FinalStatus)
	assert.Equal(t, 1, trail.Attempts)

	var phases []string
	for i, rec := range trail.Phases {
		assert.Equal(t, i+1, rec.Sequence)
		phases = append(phases, rec.Phase)
	}
	assert.Equal(t, []string{"parse", "test_generation", "code_generation", "validation"}, phases)
	assert.False(t, trail.CompletedAt.IsZero())
}
